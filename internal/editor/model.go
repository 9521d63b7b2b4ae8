/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor implements direct manipulation of bounding boxes in scene
// space: the per-box geometry model, the eight resize handles, whole-box
// dragging and pointer routing across all boxes of one image.
//
// The package is UI-agnostic and synchronous. Every call runs on the thread
// delivering input events; nothing blocks and nothing is deferred.
package editor

import "yololabel/internal/geom"

// DefaultMinSize is the smallest width or height a resize may produce.
const DefaultMinSize = 20.0

// Projector receives the normalized projection of a box after every geometry
// change. labels.Store implements it.
type Projector interface {
	SetNormalized(id int, n geom.Normalized) bool
}

// BoxModel is the scene geometry of one rendered box. SetRect is the only
// writer of the rectangle and always projects the result into the owning
// domain box before returning.
type BoxModel struct {
	id    int
	rect  geom.Rect
	image geom.Rect
	sink  Projector
}

// NewBoxModel places a box given in normalized coordinates onto the image.
// It fails with geom.ErrInvalidImageExtent for an image without area.
func NewBoxModel(id int, n geom.Normalized, image geom.Rect, sink Projector) (*BoxModel, error) {
	r, err := geom.ToScene(n, image)
	if err != nil {
		return nil, err
	}
	return &BoxModel{id: id, rect: r, image: image, sink: sink}, nil
}

func (m *BoxModel) ID() int              { return m.id }
func (m *BoxModel) Rect() geom.Rect      { return m.rect }
func (m *BoxModel) ImageRect() geom.Rect { return m.image }

// SetRect replaces the rectangle and re-projects it.
func (m *BoxModel) SetRect(r geom.Rect) {
	m.rect = r
	// image extent was validated in NewBoxModel
	n, _ := geom.ToNormalized(r, m.image)
	if m.sink != nil {
		m.sink.SetNormalized(m.id, n)
	}
}

// Normalized returns the current projection without writing it anywhere.
func (m *BoxModel) Normalized() geom.Normalized {
	n, _ := geom.ToNormalized(m.rect, m.image)
	return n
}

// HandlePoints returns the scene position of every handle, indexed by
// HandlePos.
func (m *BoxModel) HandlePoints() [HandleCount]geom.Pt {
	var pts [HandleCount]geom.Pt
	for _, h := range AllHandles {
		pts[h] = h.Point(m.rect)
	}
	return pts
}

// HandleAt returns the handle whose square hit area of the given side length
// contains p. Corners are checked before edges.
func (m *BoxModel) HandleAt(p geom.Pt, size float64) (HandlePos, bool) {
	half := size / 2
	for _, h := range hitOrder {
		c := h.Point(m.rect)
		if geom.R(c.X-half, c.Y-half, c.X+half, c.Y+half).Contains(p) {
			return h, true
		}
	}
	return 0, false
}

// Contains reports whether p hits the box body.
func (m *BoxModel) Contains(p geom.Pt) bool { return m.rect.Contains(p) }
