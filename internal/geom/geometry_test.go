/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestToSceneCenteredBox(t *testing.T) {
	img := ImageRect(1000, 800)
	r, err := ToScene(Normalized{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.2}, img)
	require.NoError(t, err)
	assert.InDelta(t, 400, r.X1, 1e-9)
	assert.InDelta(t, 320, r.Y1, 1e-9)
	assert.InDelta(t, 600, r.X2, 1e-9)
	assert.InDelta(t, 480, r.Y2, 1e-9)
}

func TestToNormalizedInverse(t *testing.T) {
	img := ImageRect(640, 480)
	cases := []Normalized{
		{0.5, 0.5, 0.2, 0.2},
		{0.1, 0.9, 0.05, 0.1},
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{1.2, -0.1, 0.3, 2}, // out of range input is projected as-is
	}
	for _, n := range cases {
		r, err := ToScene(n, img)
		require.NoError(t, err)
		back, err := ToNormalized(r, img)
		require.NoError(t, err)
		if !almostEqual(back.XCenter, n.XCenter) || !almostEqual(back.YCenter, n.YCenter) ||
			!almostEqual(back.Width, n.Width) || !almostEqual(back.Height, n.Height) {
			t.Fatalf("round trip mismatch: in=%+v out=%+v", n, back)
		}
	}
}

func TestProjectionHonorsImageOrigin(t *testing.T) {
	img := R(100, 50, 300, 250)
	r, err := ToScene(Normalized{XCenter: 0.5, YCenter: 0.5, Width: 0.5, Height: 0.5}, img)
	require.NoError(t, err)
	assert.Equal(t, R(150, 100, 250, 200), r)

	n, err := ToNormalized(R(100, 50, 200, 150), img)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, n.XCenter, 1e-12)
	assert.InDelta(t, 0.25, n.YCenter, 1e-12)
	assert.InDelta(t, 0.5, n.Width, 1e-12)
	assert.InDelta(t, 0.5, n.Height, 1e-12)
}

func TestInvalidImageExtent(t *testing.T) {
	for _, img := range []Rect{ImageRect(0, 100), ImageRect(100, 0), ImageRect(-5, 10), {}} {
		_, err := ToScene(Normalized{0.5, 0.5, 0.1, 0.1}, img)
		if !errors.Is(err, ErrInvalidImageExtent) {
			t.Fatalf("ToScene(%+v) err = %v, want ErrInvalidImageExtent", img, err)
		}
		_, err = ToNormalized(R(0, 0, 10, 10), img)
		if !errors.Is(err, ErrInvalidImageExtent) {
			t.Fatalf("ToNormalized(%+v) err = %v, want ErrInvalidImageExtent", img, err)
		}
	}
}

func TestClampInvertedRangePrefersLow(t *testing.T) {
	assert.Equal(t, 5.0, Clamp(7, 5, 3))
	assert.Equal(t, 3.0, Clamp(1, 3, 9))
	assert.Equal(t, 9.0, Clamp(12, 3, 9))
	assert.Equal(t, 4.0, Clamp(4, 3, 9))
}

func TestRectHelpers(t *testing.T) {
	r := R(10, 20, 30, 60)
	assert.Equal(t, 20.0, r.Width())
	assert.Equal(t, 40.0, r.Height())
	assert.Equal(t, Pt{20, 40}, r.Center())
	assert.True(t, r.Contains(Pt{10, 20}))
	assert.False(t, r.Contains(Pt{31, 20}))
	assert.Equal(t, R(15, 15, 35, 55), r.Translate(5, -5))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.123457, Round(0.1234567, 6))
	assert.Equal(t, 2.5, Round(2.5, -1))
}
