/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"yololabel/internal/geom"
	"yololabel/internal/labels"
)

// DefaultHandleSize is the side length of a handle hit square in scene units
// at zoom 1.
const DefaultHandleSize = 8.0

// Options tunes the interaction rules of a Canvas.
type Options struct {
	MinSize    float64
	HandleSize float64
}

func (o Options) withDefaults() Options {
	if o.MinSize <= 0 {
		o.MinSize = DefaultMinSize
	}
	if o.HandleSize <= 0 {
		o.HandleSize = DefaultHandleSize
	}
	return o
}

// Hit is the result of a pointer hit test.
type Hit struct {
	ID       int
	Handle   HandlePos
	OnHandle bool
}

// Canvas holds the rendered boxes of one image in stacking order (last is
// top-most), the current selection and at most one in-flight gesture.
type Canvas struct {
	opts     Options
	image    geom.Rect
	sink     Projector
	models   []*BoxModel
	selected int
	hasSel   bool
	gesture  Gesture

	// OnChange, if set, is called after every geometry mutation with the id
	// of the changed box so a render surface can redraw it and its handles.
	OnChange func(id int)
}

func NewCanvas(opts Options) *Canvas {
	return &Canvas{opts: opts.withDefaults()}
}

func (c *Canvas) Options() Options { return c.opts }

// SetHandleSize changes the handle hit size, e.g. to keep handles a constant
// screen size while zooming.
func (c *Canvas) SetHandleSize(size float64) {
	if size > 0 {
		c.opts.HandleSize = size
	}
}

// Load replaces all content with boxes placed on image. Any in-flight
// gesture is discarded first since its snapshot refers to the old image.
func (c *Canvas) Load(image geom.Rect, boxes []labels.Box, sink Projector) error {
	c.Reset()
	if !image.HasArea() {
		return geom.ErrInvalidImageExtent
	}
	models := make([]*BoxModel, 0, len(boxes))
	for _, b := range boxes {
		m, err := NewBoxModel(b.ID, b.Normalized(), image, sink)
		if err != nil {
			return err
		}
		models = append(models, m)
	}
	c.image = image
	c.sink = sink
	c.models = models
	c.hasSel = false
	return nil
}

// Clear drops all boxes and the image.
func (c *Canvas) Clear() {
	c.Reset()
	c.image = geom.Rect{}
	c.models = nil
	c.hasSel = false
}

func (c *Canvas) ImageRect() geom.Rect { return c.image }

// Add renders b on the current image on top of the existing boxes.
func (c *Canvas) Add(b labels.Box) (*BoxModel, error) {
	m, err := NewBoxModel(b.ID, b.Normalized(), c.image, c.sink)
	if err != nil {
		return nil, err
	}
	c.models = append(c.models, m)
	return m, nil
}

// Remove drops the rendered box id. A gesture on that box is discarded.
func (c *Canvas) Remove(id int) bool {
	for i, m := range c.models {
		if m.ID() != id {
			continue
		}
		if c.gestureModel() == m {
			c.Reset()
		}
		c.models = append(c.models[:i], c.models[i+1:]...)
		if c.hasSel && c.selected == id {
			c.hasSel = false
		}
		return true
	}
	return false
}

// Models returns the rendered boxes in stacking order.
func (c *Canvas) Models() []*BoxModel { return append([]*BoxModel(nil), c.models...) }

func (c *Canvas) Model(id int) (*BoxModel, bool) {
	for _, m := range c.models {
		if m.ID() == id {
			return m, true
		}
	}
	return nil, false
}

// Select makes id the only selected box.
func (c *Canvas) Select(id int) bool {
	if _, ok := c.Model(id); !ok {
		return false
	}
	c.selected, c.hasSel = id, true
	return true
}

func (c *Canvas) Deselect() { c.hasSel = false }

func (c *Canvas) Selected() (int, bool) { return c.selected, c.hasSel }

// HitTest finds the top-most box under p. A box's handles sit above its body.
func (c *Canvas) HitTest(p geom.Pt) (Hit, bool) {
	for i := len(c.models) - 1; i >= 0; i-- {
		m := c.models[i]
		if h, ok := m.HandleAt(p, c.opts.HandleSize); ok {
			return Hit{ID: m.ID(), Handle: h, OnHandle: true}, true
		}
		if m.Contains(p) {
			return Hit{ID: m.ID()}, true
		}
	}
	return Hit{}, false
}

// PointerDown starts a resize when p is on a handle, a move when p is on a
// box body, and clears the selection otherwise. It reports whether a gesture
// started.
func (c *Canvas) PointerDown(p geom.Pt) bool {
	c.Reset()
	hit, ok := c.HitTest(p)
	if !ok {
		c.hasSel = false
		return false
	}
	m, _ := c.Model(hit.ID)
	c.selected, c.hasSel = hit.ID, true
	if hit.OnHandle {
		c.gesture = NewHandleController(m, hit.Handle, c.opts.MinSize)
	} else {
		c.gesture = NewBoxDragger(m)
	}
	c.gesture.Begin(p)
	return true
}

// PointerMove feeds p to the active gesture. Each call is fully applied,
// including projection, before it returns.
func (c *Canvas) PointerMove(p geom.Pt) {
	if c.gesture == nil || !c.gesture.Active() {
		return
	}
	c.gesture.Update(p)
	if c.OnChange != nil {
		if m := c.gestureModel(); m != nil {
			c.OnChange(m.ID())
		}
	}
}

// PointerUp ends the active gesture.
func (c *Canvas) PointerUp() {
	if c.gesture != nil {
		c.gesture.End()
	}
	c.gesture = nil
}

// Dragging reports whether a gesture is in flight.
func (c *Canvas) Dragging() bool { return c.gesture != nil && c.gesture.Active() }

// ActiveHandle reports the handle of an in-flight resize.
func (c *Canvas) ActiveHandle() (HandlePos, bool) {
	if hc, ok := c.gesture.(*HandleController); ok && hc.Active() {
		return hc.Position(), true
	}
	return 0, false
}

// Reset returns to idle, discarding any in-flight gesture.
func (c *Canvas) Reset() {
	if c.gesture != nil {
		c.gesture.End()
	}
	c.gesture = nil
}

func (c *Canvas) gestureModel() *BoxModel {
	switch g := c.gesture.(type) {
	case *HandleController:
		return g.Model()
	case *BoxDragger:
		return g.Model()
	}
	return nil
}
