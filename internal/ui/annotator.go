//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"yololabel/internal/editor"
	"yololabel/internal/geom"
	"yololabel/internal/workspace"
)

// Annotator renders the current image of a session with its boxes and routes
// pointer input to the session's canvas. Drag on a box moves it, drag on a
// handle resizes it, drag on empty space pans and the wheel zooms.
type Annotator struct {
	widget.BaseWidget

	session  *workspace.Session
	view     *editor.View
	handlePx float64

	imagePath string
	needsFit  bool
	panning   bool
	dragging  bool
	cursor    desktop.Cursor

	// OnSelectionChanged is called after a tap or drag may have changed the selection.
	OnSelectionChanged func()
	// OnBoxesChanged is called when a gesture ends.
	OnBoxesChanged func()
}

// NewAnnotator creates the canvas widget. handlePx is the on-screen handle size.
func NewAnnotator(s *workspace.Session, view *editor.View, handlePx float64) *Annotator {
	if view == nil {
		view = editor.NewView()
	}
	if handlePx <= 0 {
		handlePx = editor.DefaultHandleSize
	}
	a := &Annotator{session: s, view: view, handlePx: handlePx, needsFit: true}
	a.ExtendBaseWidget(a)
	s.Canvas().OnChange = func(int) { a.Refresh() }
	return a
}

// PreferredSize sets a decent default size for the widget.
func (a *Annotator) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

// ImageChanged schedules a fit-to-view for the next layout.
func (a *Annotator) ImageChanged() {
	a.needsFit = true
	a.Refresh()
}

// FitToView resets zoom so the whole image is visible.
func (a *Annotator) FitToView() {
	sz := a.Size()
	a.view.Fit(a.session.Canvas().ImageRect(), float64(sz.Width), float64(sz.Height))
	a.syncHandleSize()
	a.needsFit = false
	a.Refresh()
}

// Zoom steps the zoom in (delta > 0) or out around the widget center.
func (a *Annotator) Zoom(delta float64) {
	sz := a.Size()
	a.zoomAt(geom.Pt{X: float64(sz.Width) / 2, Y: float64(sz.Height) / 2}, delta)
}

func (a *Annotator) zoomAt(anchor geom.Pt, delta float64) {
	if a.view.ZoomAt(anchor, delta) {
		a.syncHandleSize()
		a.Refresh()
	}
}

func (a *Annotator) syncHandleSize() {
	a.session.Canvas().SetHandleSize(a.view.HandleSize(a.handlePx))
}

func (a *Annotator) toScene(p fyne.Position) geom.Pt {
	return a.view.ToScene(geom.Pt{X: float64(p.X), Y: float64(p.Y)})
}

func (a *Annotator) toScreen(p geom.Pt) fyne.Position {
	s := a.view.ToScreen(p)
	return fyne.NewPos(float32(s.X), float32(s.Y))
}

// Tapped selects the top-most box under the pointer or clears the selection.
func (a *Annotator) Tapped(e *fyne.PointEvent) {
	c := a.session.Canvas()
	c.PointerDown(a.toScene(e.Position))
	c.PointerUp()
	a.Refresh()
	if a.OnSelectionChanged != nil {
		a.OnSelectionChanged()
	}
}

// Dragged starts a gesture on the first event of a drag and feeds it afterwards.
func (a *Annotator) Dragged(e *fyne.DragEvent) {
	c := a.session.Canvas()
	if !a.dragging && !a.panning {
		start := e.Position.Subtract(e.Dragged)
		if c.PointerDown(a.toScene(start)) {
			a.dragging = true
			if a.OnSelectionChanged != nil {
				a.OnSelectionChanged()
			}
		} else {
			a.panning = true
		}
	}
	if a.panning {
		a.view.Pan(float64(e.Dragged.DX), float64(e.Dragged.DY))
		a.Refresh()
		return
	}
	c.PointerMove(a.toScene(e.Position))
}

func (a *Annotator) DragEnd() {
	wasDragging := a.dragging
	a.session.Canvas().PointerUp()
	a.dragging, a.panning = false, false
	if wasDragging && a.OnBoxesChanged != nil {
		a.OnBoxesChanged()
	}
}

// Scrolled zooms around the pointer.
func (a *Annotator) Scrolled(e *fyne.ScrollEvent) {
	if e.Scrolled.DY == 0 {
		return
	}
	a.zoomAt(geom.Pt{X: float64(e.Position.X), Y: float64(e.Position.Y)}, float64(e.Scrolled.DY))
}

func (a *Annotator) MouseIn(e *desktop.MouseEvent) { a.MouseMoved(e) }

// MouseMoved updates the cursor hint for the handle under the pointer.
func (a *Annotator) MouseMoved(e *desktop.MouseEvent) {
	a.cursor = desktop.DefaultCursor
	if hit, ok := a.session.Canvas().HitTest(a.toScene(e.Position)); ok {
		if hit.OnHandle {
			a.cursor = desktopCursor(hit.Handle.Cursor())
		} else {
			a.cursor = desktop.PointerCursor
		}
	}
}

func (a *Annotator) MouseOut() { a.cursor = desktop.DefaultCursor }

func (a *Annotator) Cursor() desktop.Cursor { return a.cursor }

// desktopCursor maps a handle hint to the closest cursor the driver offers;
// there are no diagonal resize cursors, so corners use the crosshair.
func desktopCursor(c editor.Cursor) desktop.Cursor {
	switch c {
	case editor.CursorResizeHorizontal:
		return desktop.HResizeCursor
	case editor.CursorResizeVertical:
		return desktop.VResizeCursor
	case editor.CursorResizeDiagonal, editor.CursorResizeAntiDiagonal:
		return desktop.CrosshairCursor
	}
	return desktop.DefaultCursor
}

var (
	boxStroke      = color.RGBA{R: 0, G: 200, B: 80, A: 255}
	selectedStroke = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	handleFill     = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	activeFill     = color.RGBA{R: 255, G: 170, B: 0, A: 255}
)

// CreateRenderer builds the image and a pool of rectangles positioned in Layout.
func (a *Annotator) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	img := canvas.NewImageFromFile("")
	img.FillMode = canvas.ImageFillStretch
	img.Hide()
	handles := make([]*canvas.Rectangle, editor.HandleCount)
	for i := range handles {
		handles[i] = canvas.NewRectangle(handleFill)
		handles[i].Hide()
	}
	r := &annotatorRenderer{a: a, bg: bg, img: img, handles: handles}
	r.rebuild()
	return r
}

type annotatorRenderer struct {
	a       *Annotator
	bg      *canvas.Rectangle
	img     *canvas.Image
	boxes   []*canvas.Rectangle
	handles []*canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *annotatorRenderer) Destroy()                     {}
func (r *annotatorRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *annotatorRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 150) }

func (r *annotatorRenderer) Refresh() {
	r.Layout(r.a.Size())
	canvas.Refresh(r.a)
}

// rebuild grows the box pool to the number of rendered models.
func (r *annotatorRenderer) rebuild() {
	n := len(r.a.session.Canvas().Models())
	for len(r.boxes) < n {
		b := canvas.NewRectangle(color.Transparent)
		b.StrokeWidth = 2
		r.boxes = append(r.boxes, b)
	}
	objs := make([]fyne.CanvasObject, 0, 2+len(r.boxes)+len(r.handles))
	objs = append(objs, r.bg, r.img)
	for _, b := range r.boxes {
		objs = append(objs, b)
	}
	for _, h := range r.handles {
		objs = append(objs, h)
	}
	r.objects = objs
}

func (r *annotatorRenderer) Layout(size fyne.Size) {
	a := r.a
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	path, _, ok := a.session.Image()
	if !ok {
		r.img.Hide()
		for _, b := range r.boxes {
			b.Hide()
		}
		for _, h := range r.handles {
			h.Hide()
		}
		return
	}
	if path != a.imagePath {
		a.imagePath = path
		r.img.File = path
		r.img.Refresh()
	}
	c := a.session.Canvas()
	if a.needsFit && size.Width > 0 && size.Height > 0 {
		a.view.Fit(c.ImageRect(), float64(size.Width), float64(size.Height))
		a.syncHandleSize()
		a.needsFit = false
	}
	place(r.img, a.toScreen(c.ImageRect().Min()), a.toScreen(c.ImageRect().Max()))
	r.img.Show()

	r.rebuild()
	models := c.Models()
	sel, hasSel := c.Selected()
	active, resizing := c.ActiveHandle()
	for i, b := range r.boxes {
		if i >= len(models) {
			b.Hide()
			continue
		}
		m := models[i]
		b.StrokeColor = boxStroke
		if hasSel && m.ID() == sel {
			b.StrokeColor = selectedStroke
		}
		place(b, a.toScreen(m.Rect().Min()), a.toScreen(m.Rect().Max()))
		b.Show()
	}

	var selModel *editor.BoxModel
	if hasSel {
		selModel, _ = c.Model(sel)
	}
	hs := float32(a.handlePx)
	var pts [editor.HandleCount]geom.Pt
	if selModel != nil {
		pts = selModel.HandlePoints()
	}
	for i, h := range r.handles {
		if selModel == nil {
			h.Hide()
			continue
		}
		pos := editor.HandlePos(i)
		h.FillColor = handleFill
		if resizing && pos == active {
			h.FillColor = activeFill
		}
		p := a.toScreen(pts[pos])
		h.Resize(fyne.NewSize(hs, hs))
		h.Move(fyne.NewPos(p.X-hs/2, p.Y-hs/2))
		h.Show()
	}
}

func place(o fyne.CanvasObject, tl, br fyne.Position) {
	o.Move(tl)
	o.Resize(fyne.NewSize(br.X-tl.X, br.Y-tl.Y))
}
