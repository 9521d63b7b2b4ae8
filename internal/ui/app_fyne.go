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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"yololabel/internal/config"
	"yololabel/internal/crash"
	"yololabel/internal/editor"
	applog "yololabel/internal/log"
	"yololabel/internal/workspace"
)

// Run starts the Fyne-based annotation window and blocks until it is closed.
func Run(opts Options) error {
	s := opts.Session
	if s == nil {
		return errors.New("ui: no session")
	}
	l := applog.WithComponent("ui")
	l.Info("starting UI")
	defer crash.Recover(s)

	cfg := opts.Config
	fyneApp := app.NewWithID("yololabel")
	w := fyneApp.NewWindow(windowTitle("", ""))
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	view := editor.NewView()
	view.Min, view.Max, view.Step = cfg.Editor.ZoomMin, cfg.Editor.ZoomMax, cfg.Editor.ZoomStep
	annot := NewAnnotator(s, view, cfg.Editor.HandleSize)

	status := widget.NewLabel("Ready")
	counter := widget.NewLabel(s.Counter())
	saveDirLabel := widget.NewLabel(saveDirText(s.SaveDir()))
	saveDirLabel.Truncation = fyne.TextTruncateEllipsis

	var rows []string
	syncing := false
	boxList := widget.NewList(
		func() int { return len(rows) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(rows) {
				o.(*widget.Label).SetText(rows[i])
			} else {
				o.(*widget.Label).SetText("")
			}
		},
	)
	classEntry := widget.NewEntry()
	classEntry.SetPlaceHolder("class id")
	classEntry.Disable()

	flash := func(msg string) {
		status.SetText(msg)
		time.AfterFunc(3*time.Second, func() {
			fyne.Do(func() {
				if status.Text == msg {
					status.SetText("Ready")
				}
			})
		})
	}
	showErr := func(op string, err error) {
		l.Warn(op+" failed", slog.Any("err", err))
		status.SetText(fmt.Sprintf("%s: %v", op, err))
		dialog.ShowError(err, w)
	}

	// syncSelection mirrors the canvas selection into the list and class entry.
	syncSelection := func() {
		syncing = true
		defer func() { syncing = false }()
		b, row, ok := s.Selected()
		if !ok {
			boxList.UnselectAll()
			classEntry.SetText("")
			classEntry.Disable()
			return
		}
		boxList.Select(widget.ListItemID(row))
		classEntry.Enable()
		classEntry.SetText(strconv.Itoa(b.ClassID))
	}
	refreshBoxes := func() {
		rows = s.Rows()
		boxList.Refresh()
		syncSelection()
	}
	refreshImage := func() {
		path, _, _ := s.Image()
		w.SetTitle(windowTitle(path, s.Counter()))
		counter.SetText(s.Counter())
		annot.ImageChanged()
		refreshBoxes()
	}
	annot.OnSelectionChanged = syncSelection
	annot.OnBoxesChanged = refreshBoxes

	boxList.OnSelected = func(id widget.ListItemID) {
		if syncing {
			return
		}
		if s.SelectRow(int(id)) {
			annot.Refresh()
			syncSelection()
		}
	}
	applyClass := func(v int) {
		applied, err := s.SetClassID(v)
		if err != nil {
			showErr("set class", err)
			return
		}
		classEntry.SetText(strconv.Itoa(applied))
		refreshBoxes()
	}
	classEntry.OnSubmitted = func(text string) {
		v, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			showErr("set class", fmt.Errorf("class id must be an integer: %q", text))
			return
		}
		applyClass(v)
	}
	stepClass := func(d int) {
		if b, _, ok := s.Selected(); ok {
			applyClass(b.ClassID + d)
		}
	}

	// load runs an open/navigate action and reports label problems without
	// losing the loaded image.
	load := func(op string, fn func() error) {
		err := fn()
		if _, _, ok := s.Image(); ok {
			refreshImage()
		}
		if err != nil {
			showErr(op, err)
			return
		}
		status.SetText("Ready")
	}
	requireSaveDir := func() bool {
		if s.SaveDir() != "" {
			return true
		}
		dialog.ShowInformation("Save directory", "Choose where label files are saved first.", w)
		return false
	}
	openPath := func(p string) {
		fi, err := os.Stat(p)
		if err != nil {
			showErr("open", err)
			return
		}
		if fi.IsDir() {
			load("open folder", func() error { return s.OpenFolder(p) })
			cfg.General.LastImageDir = p
		} else {
			load("open image", func() error { return s.OpenImage(p) })
			cfg.General.LastImageDir = filepath.Dir(p)
		}
	}

	chooseSaveDir := dialog.NewFolderOpen(func(lu fyne.ListableURI, err error) {
		if err != nil || lu == nil {
			return
		}
		if err := s.SetSaveDir(lu.Path()); err != nil {
			showErr("set save directory", err)
			return
		}
		cfg.Labels.SaveDir = lu.Path()
		saveDirLabel.SetText(saveDirText(lu.Path()))
	}, w)
	openFolder := dialog.NewFolderOpen(func(lu fyne.ListableURI, err error) {
		if err != nil || lu == nil {
			return
		}
		openPath(lu.Path())
	}, w)
	openImage := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		p := rc.URI().Path()
		_ = rc.Close()
		openPath(p)
	}, w)
	openImage.SetFilter(fstorage.NewExtensionFileFilter([]string{".jpg", ".jpeg", ".png", ".bmp", ".webp", ".JPG", ".JPEG", ".PNG", ".BMP", ".WEBP"}))
	if dir := cfg.General.LastImageDir; dir != "" {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			if lister, err := fstorage.ListerForURI(fstorage.NewFileURI(dir)); err == nil {
				openFolder.SetLocation(lister)
				openImage.SetLocation(lister)
			}
		}
	}

	save := func() {
		n, err := s.Save(context.Background())
		if err != nil {
			showErr("save", err)
			return
		}
		flash(saveMessage(n))
	}
	navigate := func(next bool) {
		load("navigate", func() error {
			if next {
				return s.Next(context.Background())
			}
			return s.Prev(context.Background())
		})
	}
	addBox := func() {
		if _, err := s.AddBox(); err != nil {
			showErr("add box", err)
			return
		}
		annot.Refresh()
		refreshBoxes()
	}
	deleteBox := func() {
		if err := s.DeleteSelected(); err != nil {
			if errors.Is(err, workspace.ErrNoBox) {
				return
			}
			showErr("delete box", err)
			return
		}
		annot.Refresh()
		refreshBoxes()
	}

	dock := container.NewBorder(
		container.NewVBox(
			widget.NewButton("Save directory…", func() { chooseSaveDir.Show() }),
			saveDirLabel,
			container.NewGridWithColumns(2,
				widget.NewButton("Open image…", func() {
					if requireSaveDir() {
						openImage.Show()
					}
				}),
				widget.NewButton("Open folder…", func() {
					if requireSaveDir() {
						openFolder.Show()
					}
				}),
			),
			widget.NewSeparator(),
			widget.NewLabel("Boxes"),
		),
		container.NewVBox(
			container.NewBorder(nil, nil, widget.NewLabel("Class"),
				container.NewHBox(
					widget.NewButton("-", func() { stepClass(-1) }),
					widget.NewButton("+", func() { stepClass(1) }),
				),
				classEntry),
			container.NewGridWithColumns(2,
				widget.NewButton("Add box", addBox),
				widget.NewButton("Delete box", deleteBox),
			),
			widget.NewButton("Save", save),
			container.NewBorder(nil, nil,
				widget.NewButton("◀ Prev", func() { navigate(false) }),
				widget.NewButton("Next ▶", func() { navigate(true) }),
				container.NewCenter(counter)),
			container.NewGridWithColumns(3,
				widget.NewButton("Zoom +", func() { annot.Zoom(1) }),
				widget.NewButton("Zoom -", func() { annot.Zoom(-1) }),
				widget.NewButton("Fit", annot.FitToView),
			),
		),
		nil, nil,
		boxList,
	)

	split := container.NewHSplit(annot, dock)
	split.Offset = 0.78
	w.SetContent(container.NewBorder(nil, status, nil, nil, split))

	// Keyboard shortcuts
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { save() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyN, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { addBox() })
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			deleteBox()
		case fyne.KeyRight, fyne.KeyD:
			navigate(true)
		case fyne.KeyLeft, fyne.KeyA:
			navigate(false)
		case fyne.KeyEscape:
			s.Deselect()
			annot.Refresh()
			syncSelection()
		case fyne.KeyF:
			annot.FitToView()
		}
	})

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if _, _, ok := s.Image(); ok {
			if _, err := s.Autosave(context.Background()); err != nil {
				l.Warn("save on close failed", slog.Any("err", err))
			}
		}
		if err := persistConfig(cfg); err != nil {
			l.Warn("config save failed", slog.Any("err", err))
		}
		w.Close()
	})

	if opts.Open != "" && s.SaveDir() != "" {
		openPath(opts.Open)
	}
	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}

func saveDirText(dir string) string {
	if dir == "" {
		return "Save to: (not set)"
	}
	return "Save to: " + dir
}

// persistConfig writes back the directories chosen in this run, keeping the
// stored secret untouched.
func persistConfig(cfg config.AppConfig) error {
	return config.Save(cfg, "")
}
