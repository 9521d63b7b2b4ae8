/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package labels holds the annotation domain model: boxes in normalized
// label space, the per-image ordered box store and the YOLO text codec.
package labels

import (
	"fmt"

	"yololabel/internal/geom"
)

// Precision is the number of decimals written per coordinate.
const Precision = 6

// Box is one annotation of the current image. Coordinates are normalized
// center/size values, nominally in [0,1]; out-of-range values read from disk
// are kept until the next save clamps them.
type Box struct {
	ID      int
	ClassID int
	XCenter float64
	YCenter float64
	Width   float64
	Height  float64
}

// NewBox returns a box with the given id and class at the given normalized
// position and size.
func NewBox(id, classID int, n geom.Normalized) Box {
	b := Box{ID: id, ClassID: classID}
	b.SetNormalized(n)
	return b
}

// Normalized returns the four coordinate fields.
func (b Box) Normalized() geom.Normalized {
	return geom.Normalized{XCenter: b.XCenter, YCenter: b.YCenter, Width: b.Width, Height: b.Height}
}

// SetNormalized overwrites the four coordinate fields.
func (b *Box) SetNormalized(n geom.Normalized) {
	b.XCenter, b.YCenter, b.Width, b.Height = n.XCenter, n.YCenter, n.Width, n.Height
}

// Clamped returns a copy with every coordinate limited to [0,1].
func (b Box) Clamped() Box {
	b.XCenter = clamp01(b.XCenter)
	b.YCenter = clamp01(b.YCenter)
	b.Width = clamp01(b.Width)
	b.Height = clamp01(b.Height)
	return b
}

// Persisted returns the box as a label file stores it: clamped and rounded
// to six decimals.
func (b Box) Persisted() Box {
	b = b.Clamped()
	b.XCenter = geom.Round(b.XCenter, Precision)
	b.YCenter = geom.Round(b.YCenter, Precision)
	b.Width = geom.Round(b.Width, Precision)
	b.Height = geom.Round(b.Height, Precision)
	return b
}

// Row is the list-view caption of a box.
func (b Box) Row() string { return fmt.Sprintf("ID%d | Class: %d", b.ID, b.ClassID) }

// clamp01 maps NaN and negative zero to 0 as well.
func clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
