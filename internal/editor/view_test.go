/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yololabel/internal/geom"
)

func TestViewFitCentersImage(t *testing.T) {
	v := NewView()
	v.Fit(geom.ImageRect(1000, 800), 500, 500)
	assert.InDelta(t, 0.5, v.Scale, 1e-12)
	assert.InDelta(t, 0, v.Offset.X, 1e-12)
	assert.InDelta(t, 50, v.Offset.Y, 1e-12)

	p := v.ToScreen(geom.Pt{X: 1000, Y: 800})
	assert.InDelta(t, 500, p.X, 1e-9)
	assert.InDelta(t, 450, p.Y, 1e-9)
	s := v.ToScene(geom.Pt{X: 250, Y: 250})
	assert.InDelta(t, 500, s.X, 1e-9)
	assert.InDelta(t, 400, s.Y, 1e-9)
}

func TestViewFitDegenerate(t *testing.T) {
	v := NewView()
	v.Scale = 3
	v.Fit(geom.Rect{}, 100, 100)
	assert.Equal(t, 1.0, v.Scale)
	assert.Equal(t, geom.Pt{}, v.Offset)
}

func TestViewZoomAtKeepsAnchor(t *testing.T) {
	v := NewView()
	anchor := geom.Pt{X: 120, Y: 80}
	before := v.ToScene(anchor)
	require.True(t, v.ZoomAt(anchor, 1))
	assert.InDelta(t, 1.1, v.Scale, 1e-12)
	after := v.ToScene(anchor)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)

	require.True(t, v.ZoomAt(anchor, -1))
	assert.InDelta(t, 0.99, v.Scale, 1e-12)
}

func TestViewZoomLimits(t *testing.T) {
	v := NewView()
	v.Scale = 4.8
	assert.False(t, v.ZoomAt(geom.Pt{}, 1), "4.8*1.1 exceeds the maximum")
	assert.Equal(t, 4.8, v.Scale)

	v.Scale = 0.21
	assert.False(t, v.ZoomAt(geom.Pt{}, -1), "0.21*0.9 is below the minimum")
	assert.True(t, v.ZoomAt(geom.Pt{}, 1))
}

func TestViewHandleSizeAndPan(t *testing.T) {
	v := NewView()
	v.Scale = 2
	assert.Equal(t, 4.0, v.HandleSize(8))
	v.Pan(10, -5)
	assert.Equal(t, geom.Pt{X: 10, Y: -5}, v.Offset)
}
