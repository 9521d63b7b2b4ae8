/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"io"
	"log/slog"

	"yololabel/internal/backend"
	"yololabel/internal/storage"
	"yololabel/internal/workspace"
)

// uiSession is a workspace session plus the sinks it owns.
type uiSession struct {
	*workspace.Session
	closers []io.Closer
}

func newSession(a *app) *uiSession {
	ed := a.cfg.Editor
	s := &uiSession{Session: workspace.New(workspace.Options{
		SaveDir:        a.cfg.Labels.SaveDir,
		MinSize:        ed.MinBoxSize,
		HandleSize:     ed.HandleSize,
		NewBoxFraction: ed.NewBoxFraction,
		Backup:         a.cfg.Labels.BackupOnSave,
	})}
	if a.cfg.Index.Enabled {
		li := &lazyIndex{saveDir: s.SaveDir, log: a.log}
		s.AddRecorder(li)
		s.closers = append(s.closers, li)
	}
	return s
}

func attachBackend(ctx context.Context, a *app, s *uiSession) error {
	if !a.cfg.Backend.Enabled || a.cfg.Backend.DSN == "" {
		return nil
	}
	m, err := backend.OpenWithPassword(ctx, a.cfg.Backend.DSN, a.secret)
	if err != nil {
		return err
	}
	s.AddRecorder(m)
	s.closers = append(s.closers, m)
	return nil
}

func closeRecorders(s *uiSession) {
	for _, c := range s.closers {
		_ = c.Close()
	}
}

// lazyIndex opens the index of the current save directory on first use and
// reopens it when the directory changes.
type lazyIndex struct {
	saveDir func() string
	log     *slog.Logger
	dir     string
	idx     *storage.Index
}

func (li *lazyIndex) Record(ctx context.Context, rec storage.ImageRecord) error {
	dir := li.saveDir()
	if li.idx == nil || li.dir != dir {
		if li.idx != nil {
			_ = li.idx.Close()
			li.idx = nil
		}
		idx, err := storage.OpenIndex(dir)
		if err != nil {
			return err
		}
		li.idx, li.dir = idx, dir
		li.log.Debug("index opened", slog.String("path", idx.Path()))
	}
	return li.idx.Record(ctx, rec)
}

func (li *lazyIndex) Close() error {
	if li.idx == nil {
		return nil
	}
	err := li.idx.Close()
	li.idx = nil
	return err
}
