/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import "yololabel/internal/geom"

// Gesture is one pointer interaction: Begin, any number of Updates, End.
// Update and End are ignored while idle.
type Gesture interface {
	Begin(p geom.Pt)
	Update(p geom.Pt)
	End()
	Active() bool
}

// HandleController resizes a box through one of its handles.
type HandleController struct {
	model    *BoxModel
	pos      HandlePos
	minSize  float64
	original geom.Rect
	active   bool
}

func NewHandleController(m *BoxModel, pos HandlePos, minSize float64) *HandleController {
	return &HandleController{model: m, pos: pos, minSize: minSize}
}

func (c *HandleController) Position() HandlePos { return c.pos }
func (c *HandleController) Model() *BoxModel    { return c.model }
func (c *HandleController) Active() bool        { return c.active }

// Begin snapshots the box rectangle. Every Update of this gesture is computed
// from the snapshot, not from the live rectangle.
func (c *HandleController) Begin(_ geom.Pt) {
	c.original = c.model.Rect()
	c.active = true
}

func (c *HandleController) Update(p geom.Pt) {
	if !c.active {
		return
	}
	c.model.SetRect(Resize(c.pos, c.original, p, c.model.ImageRect(), c.minSize))
}

func (c *HandleController) End() { c.active = false }

// BoxDragger translates a box without changing its size, keeping it inside
// the image.
type BoxDragger struct {
	model  *BoxModel
	start  geom.Pt
	origin geom.Rect
	active bool
}

func NewBoxDragger(m *BoxModel) *BoxDragger { return &BoxDragger{model: m} }

func (d *BoxDragger) Model() *BoxModel { return d.model }
func (d *BoxDragger) Active() bool     { return d.active }

func (d *BoxDragger) Begin(p geom.Pt) {
	d.start = p
	d.origin = d.model.Rect()
	d.active = true
}

func (d *BoxDragger) Update(p geom.Pt) {
	if !d.active {
		return
	}
	d.model.SetRect(Translate(d.origin, p.X-d.start.X, p.Y-d.start.Y, d.model.ImageRect()))
}

func (d *BoxDragger) End() { d.active = false }

// Translate moves r by dx,dy and clamps it into image. If the box is wider or
// taller than the image, it is pinned to the image's left or top edge.
func Translate(r geom.Rect, dx, dy float64, image geom.Rect) geom.Rect {
	w, h := r.Width(), r.Height()
	m := r.Translate(dx, dy)
	left := geom.Clamp(m.X1, image.X1, image.X2-w)
	top := geom.Clamp(m.Y1, image.Y1, image.Y2-h)
	return geom.R(left, top, left+w, top+h)
}
