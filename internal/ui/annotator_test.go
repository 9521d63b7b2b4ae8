//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests drive the annotator widget with synthetic pointer events. They
// are gated behind the "fyne" build tag so CI (which is headless) does not
// need Fyne or a display. To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"yololabel/internal/editor"
	"yololabel/internal/workspace"
)

func newAnnotatorFixture(t *testing.T) (*Annotator, *workspace.Session) {
	t.Helper()
	test.NewApp()
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "a.png")
	f, err := os.Create(imgPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 400, 300))); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	saveDir := filepath.Join(dir, "labels")
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// one box 100..300 x 75..225
	if err := os.WriteFile(filepath.Join(saveDir, "a.txt"), []byte("0 0.5 0.5 0.5 0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := workspace.New(workspace.Options{SaveDir: saveDir})
	if err := s.OpenImage(imgPath); err != nil {
		t.Fatalf("open image: %v", err)
	}
	a := NewAnnotator(s, nil, 8)
	a.Resize(fyne.NewSize(400, 300))
	a.FitToView()
	return a, s
}

func TestAnnotator_FitIsIdentityForMatchingSize(t *testing.T) {
	a, _ := newAnnotatorFixture(t)
	if a.view.Scale != 1 || a.view.Offset.X != 0 || a.view.Offset.Y != 0 {
		t.Fatalf("unexpected view after fit: %+v", a.view)
	}
}

func TestAnnotator_TapSelectsAndClears(t *testing.T) {
	a, s := newAnnotatorFixture(t)
	calls := 0
	a.OnSelectionChanged = func() { calls++ }
	a.Tapped(&fyne.PointEvent{Position: fyne.NewPos(200, 150)})
	if _, _, ok := s.Selected(); !ok {
		t.Fatalf("expected box selected after tap")
	}
	a.Tapped(&fyne.PointEvent{Position: fyne.NewPos(20, 20)})
	if _, _, ok := s.Selected(); ok {
		t.Fatalf("expected selection cleared by tap on empty space")
	}
	if calls != 2 {
		t.Fatalf("OnSelectionChanged calls = %d, want 2", calls)
	}
}

func TestAnnotator_DragMovesBox(t *testing.T) {
	a, s := newAnnotatorFixture(t)
	ended := false
	a.OnBoxesChanged = func() { ended = true }
	var moved []int
	redraw := s.Canvas().OnChange
	if redraw == nil {
		t.Fatalf("expected the annotator to subscribe to canvas changes")
	}
	s.Canvas().OnChange = func(id int) { moved = append(moved, id); redraw(id) }
	a.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(210, 150)}, Dragged: fyne.NewDelta(10, 0)})
	a.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(240, 150)}, Dragged: fyne.NewDelta(30, 0)})
	a.DragEnd()
	if !ended {
		t.Fatalf("expected OnBoxesChanged after drag")
	}
	if len(moved) != 2 || moved[0] != 0 {
		t.Fatalf("canvas changes = %v, want two for box 0", moved)
	}
	b, _ := s.Store().Get(0)
	if b.XCenter < 0.599 || b.XCenter > 0.601 {
		t.Fatalf("x_center after drag = %v, want 0.6", b.XCenter)
	}
}

func TestAnnotator_DragOnEmptySpacePans(t *testing.T) {
	a, s := newAnnotatorFixture(t)
	a.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(30, 20)}, Dragged: fyne.NewDelta(10, 10)})
	a.DragEnd()
	if a.view.Offset.X != 10 || a.view.Offset.Y != 10 {
		t.Fatalf("offset after pan = %+v", a.view.Offset)
	}
	b, _ := s.Store().Get(0)
	if b.XCenter != 0.5 {
		t.Fatalf("box moved by pan: %+v", b)
	}
}

func TestAnnotator_ScrollZoomsAndScalesHandles(t *testing.T) {
	a, s := newAnnotatorFixture(t)
	a.Scrolled(&fyne.ScrollEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(200, 150)}, Scrolled: fyne.NewDelta(0, 1)})
	if a.view.Scale < 1.099 || a.view.Scale > 1.101 {
		t.Fatalf("scale after wheel = %v", a.view.Scale)
	}
	want := 8 / a.view.Scale
	if got := s.Canvas().Options().HandleSize; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("handle size = %v, want %v", got, want)
	}
}

func TestAnnotator_CursorHints(t *testing.T) {
	a, _ := newAnnotatorFixture(t)
	a.MouseMoved(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(300, 150)}})
	if a.Cursor() != desktop.HResizeCursor {
		t.Fatalf("right handle cursor = %v", a.Cursor())
	}
	a.MouseMoved(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(200, 150)}})
	if a.Cursor() != desktop.PointerCursor {
		t.Fatalf("body cursor = %v", a.Cursor())
	}
	a.MouseOut()
	if a.Cursor() != desktop.DefaultCursor {
		t.Fatalf("cursor after leave = %v", a.Cursor())
	}
	if desktopCursor(editor.CursorResizeVertical) != desktop.VResizeCursor {
		t.Fatalf("vertical mapping")
	}
}
