/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"math"

	"yololabel/internal/geom"
)

// HandlePos identifies one of the eight resize handles.
type HandlePos int

const (
	TopLeft HandlePos = iota
	Top
	TopRight
	Right
	BottomRight
	Bottom
	BottomLeft
	Left
)

// HandleCount is the number of handles per box.
const HandleCount = 8

// AllHandles lists handles in drawing order.
var AllHandles = [HandleCount]HandlePos{TopLeft, Top, TopRight, Right, BottomRight, Bottom, BottomLeft, Left}

var hitOrder = [HandleCount]HandlePos{TopLeft, TopRight, BottomRight, BottomLeft, Top, Right, Bottom, Left}

type edge uint8

const (
	edgeLeft edge = 1 << iota
	edgeRight
	edgeTop
	edgeBottom
)

// ownedEdges maps each handle to the edges it moves. Everything else stays
// fixed during a resize.
var ownedEdges = [HandleCount]edge{
	TopLeft:     edgeLeft | edgeTop,
	Top:         edgeTop,
	TopRight:    edgeRight | edgeTop,
	Right:       edgeRight,
	BottomRight: edgeRight | edgeBottom,
	Bottom:      edgeBottom,
	BottomLeft:  edgeLeft | edgeBottom,
	Left:        edgeLeft,
}

var handleNames = [HandleCount]string{"tl", "t", "tr", "r", "br", "b", "bl", "l"}

func (h HandlePos) String() string {
	if h < 0 || int(h) >= HandleCount {
		return "invalid"
	}
	return handleNames[h]
}

// Valid reports whether h is one of the eight positions.
func (h HandlePos) Valid() bool { return h >= 0 && int(h) < HandleCount }

// Point returns the handle position on r: corners, or edge midpoints.
func (h HandlePos) Point(r geom.Rect) geom.Pt {
	e := ownedEdges[h]
	p := r.Center()
	switch {
	case e&edgeLeft != 0:
		p.X = r.X1
	case e&edgeRight != 0:
		p.X = r.X2
	}
	switch {
	case e&edgeTop != 0:
		p.Y = r.Y1
	case e&edgeBottom != 0:
		p.Y = r.Y2
	}
	return p
}

// Cursor is a pointer shape hint for hovering a handle.
type Cursor int

const (
	CursorDefault Cursor = iota
	// top-left and bottom-right
	CursorResizeDiagonal
	// top-right and bottom-left
	CursorResizeAntiDiagonal
	CursorResizeHorizontal
	CursorResizeVertical
)

func (h HandlePos) Cursor() Cursor {
	switch h {
	case TopLeft, BottomRight:
		return CursorResizeDiagonal
	case TopRight, BottomLeft:
		return CursorResizeAntiDiagonal
	case Left, Right:
		return CursorResizeHorizontal
	case Top, Bottom:
		return CursorResizeVertical
	}
	return CursorDefault
}

// Resize computes the rectangle produced by dragging handle h of orig to
// target. For each owned edge the minimum-size rule is applied against the
// opposite fixed edge first, then the edge is clamped to the image. When the
// image leaves less than minSize room next to the fixed edge the image bound
// wins and the box ends up narrower than minSize. This holds for the left and
// top edges too: clamping those to the image before the minimum-size rule
// would keep the minimum size and let the box stick out of the image instead.
func Resize(h HandlePos, orig geom.Rect, target geom.Pt, image geom.Rect, minSize float64) geom.Rect {
	e := ownedEdges[h]
	r := orig
	if e&edgeRight != 0 {
		x := math.Max(target.X, orig.X1+minSize)
		r.X2 = math.Min(x, image.X2)
	}
	if e&edgeLeft != 0 {
		x := math.Min(target.X, orig.X2-minSize)
		r.X1 = math.Max(x, image.X1)
	}
	if e&edgeBottom != 0 {
		y := math.Max(target.Y, orig.Y1+minSize)
		r.Y2 = math.Min(y, image.Y2)
	}
	if e&edgeTop != 0 {
		y := math.Min(target.Y, orig.Y2-minSize)
		r.Y1 = math.Max(y, image.Y1)
	}
	return r
}
