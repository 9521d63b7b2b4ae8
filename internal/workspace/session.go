/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package workspace is the headless annotation session: it binds a label
// directory, the current image (or folder of images), the annotation store
// and the interactive canvas, and performs load/save around navigation.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"yololabel/internal/dataset"
	"yololabel/internal/editor"
	"yololabel/internal/geom"
	"yololabel/internal/labels"
	applog "yololabel/internal/log"
	"yololabel/internal/storage"
)

const (
	DefaultNewBoxFraction = 0.2
	MaxClassID            = 999
)

var (
	ErrNoSaveDir = errors.New("no save directory selected")
	ErrNoImage   = errors.New("no image loaded")
	ErrNoFolder  = errors.New("no image folder opened")
	ErrNoBox     = errors.New("no box selected")
)

// Recorder receives the label set of an image after every successful save.
type Recorder interface {
	Record(ctx context.Context, rec storage.ImageRecord) error
}

type Options struct {
	SaveDir        string
	MinSize        float64
	HandleSize     float64
	NewBoxFraction float64
	Backup         bool
	Recorders      []Recorder
}

// Session is not safe for concurrent use; drive it from the UI event thread.
type Session struct {
	opts    Options
	saveDir string
	store   *labels.Store
	canvas  *editor.Canvas
	image   string
	size    dataset.Size
	cursor  *dataset.Cursor
	log     *slog.Logger

	// keepRev is the store revision right after a label file failed to
	// parse; while the store still has it, autosave leaves the file alone.
	keepRev  uint64
	keepFile bool
}

func New(opts Options) *Session {
	if opts.NewBoxFraction <= 0 || opts.NewBoxFraction > 1 {
		opts.NewBoxFraction = DefaultNewBoxFraction
	}
	s := &Session{
		opts:   opts,
		store:  labels.NewStore(),
		canvas: editor.NewCanvas(editor.Options{MinSize: opts.MinSize, HandleSize: opts.HandleSize}),
		log:    applog.WithComponent("workspace"),
	}
	if d := strings.TrimSpace(opts.SaveDir); d != "" {
		s.saveDir = d
	}
	return s
}

// SetSaveDir selects the directory receiving label files, creating it when missing.
func (s *Session) SetSaveDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return ErrNoSaveDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	s.saveDir = dir
	s.log.Info("save directory set", slog.String("dir", dir))
	return nil
}

func (s *Session) SaveDir() string        { return s.saveDir }
func (s *Session) Canvas() *editor.Canvas { return s.canvas }
func (s *Session) Store() *labels.Store   { return s.store }

// Image returns the current image path and its pixel size.
func (s *Session) Image() (string, dataset.Size, bool) {
	return s.image, s.size, s.image != ""
}

// AddRecorder registers r for subsequent saves.
func (s *Session) AddRecorder(r Recorder) {
	if r != nil {
		s.opts.Recorders = append(s.opts.Recorders, r)
	}
}

// OpenImage loads a single image and its labels, leaving folder mode.
func (s *Session) OpenImage(path string) error {
	if s.saveDir == "" {
		return ErrNoSaveDir
	}
	s.cursor = nil
	return s.load(path)
}

// OpenFolder lists the supported images of dir and loads the first one.
func (s *Session) OpenFolder(dir string) error {
	if s.saveDir == "" {
		return ErrNoSaveDir
	}
	imgs, err := dataset.ListImages(dir)
	if err != nil {
		return err
	}
	s.cursor = dataset.NewCursor(imgs)
	s.log.Info("folder opened", slog.String("dir", dir), slog.Int("images", len(imgs)))
	first, _ := s.cursor.Current()
	return s.load(first)
}

// Next saves the current labels and moves to the following image, wrapping at the end.
func (s *Session) Next(ctx context.Context) error { return s.step(ctx, 1) }

// Prev saves the current labels and moves to the previous image, wrapping at the start.
func (s *Session) Prev(ctx context.Context) error { return s.step(ctx, -1) }

func (s *Session) step(ctx context.Context, d int) error {
	if s.cursor == nil || s.cursor.Len() == 0 {
		return ErrNoFolder
	}
	s.canvas.Reset()
	if s.image != "" {
		if _, err := s.Autosave(ctx); err != nil {
			return fmt.Errorf("autosave before navigation: %w", err)
		}
	}
	move, back := (*dataset.Cursor).Next, (*dataset.Cursor).Prev
	if d < 0 {
		move, back = back, move
	}
	path, _ := move(s.cursor)
	err := s.load(path)
	if err != nil && s.image != path {
		// the image itself did not open; stay where the content is
		back(s.cursor)
	}
	return err
}

// Counter renders the folder position as "i/n", "0/0" outside folder mode.
func (s *Session) Counter() string { return s.cursor.Label() }

// load replaces the session content with path. A label file that cannot be
// parsed leaves the image loaded with no boxes and is reported to the caller.
func (s *Session) load(path string) error {
	l := applog.WithOperation(s.log, "load_image").With(slog.String("image", path))
	s.canvas.Reset()
	size, err := dataset.ProbeSize(path)
	if err != nil {
		l.Error("failed to load image", slog.Any("err", err))
		return err
	}
	s.image, s.size = path, size
	imgRect := geom.ImageRect(float64(size.Width), float64(size.Height))

	lpath := dataset.LabelPath(s.saveDir, path)
	boxes, lerr := storage.LoadLabels(lpath)
	if lerr != nil {
		l.Warn("failed to load annotations", slog.String("labels", lpath), slog.Any("err", lerr))
		boxes = nil
	}
	s.store.Reset(boxes)
	if err := s.canvas.Load(imgRect, s.store.Boxes(), s.store); err != nil {
		return err
	}
	s.keepFile, s.keepRev = lerr != nil, s.store.Rev()
	if lerr != nil {
		return fmt.Errorf("failed to load annotations: %w", lerr)
	}
	l.Debug("image loaded", slog.String("size", size.String()), slog.Int("boxes", s.store.Len()))
	return nil
}

// Save writes the current labels and forwards them to the registered recorders.
// It returns the number of boxes written.
func (s *Session) Save(ctx context.Context) (int, error) {
	if s.saveDir == "" {
		return 0, ErrNoSaveDir
	}
	if s.image == "" {
		return 0, ErrNoImage
	}
	ctx = applog.ContextWithImage(ctx, s.image)
	l := applog.WithOperation(s.log, "save_labels")
	boxes := s.store.Boxes()
	path := dataset.LabelPath(s.saveDir, s.image)
	if err := storage.SaveLabels(path, boxes, storage.SaveOptions{Backup: s.opts.Backup}); err != nil {
		l.ErrorContext(ctx, "save failed", slog.Any("err", err))
		return 0, err
	}
	s.keepFile = false
	rec := storage.ImageRecord{Path: s.image, Width: s.size.Width, Height: s.size.Height, Boxes: make([]labels.Box, len(boxes))}
	for i, b := range boxes {
		rec.Boxes[i] = b.Persisted()
	}
	for _, r := range s.opts.Recorders {
		if err := r.Record(ctx, rec); err != nil {
			// derived copies only; the label file is authoritative
			l.WarnContext(ctx, "record labels failed", slog.Any("err", err))
		}
	}
	l.InfoContext(ctx, "labels saved", slog.String("path", path), slog.Int("boxes", len(boxes)))
	return len(boxes), nil
}

// Autosave is Save for implicit saves (navigation, crash). It skips the
// write while the current label file failed to load and nothing was edited
// since, so an unreadable file is not replaced by an empty one.
func (s *Session) Autosave(ctx context.Context) (int, error) {
	if s.image != "" && s.keepFile && s.store.Rev() == s.keepRev {
		s.log.WarnContext(applog.ContextWithImage(ctx, s.image), "autosave skipped, label file failed to load and is unchanged",
			slog.String("labels", dataset.LabelPath(s.saveDir, s.image)))
		return 0, nil
	}
	return s.Save(ctx)
}
