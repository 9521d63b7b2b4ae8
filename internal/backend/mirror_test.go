/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"os"
	"testing"
	"time"

	"yololabel/internal/labels"
	"yololabel/internal/storage"
)

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("migrations/0002_class_index.sql")
	if err != nil || v != 2 {
		t.Fatalf("parseVersion = %d, %v", v, err)
	}
	if _, err := parseVersion("init.sql"); err == nil {
		t.Fatalf("expected error for name without version")
	}
	if _, err := parseVersion("x_init.sql"); err == nil {
		t.Fatalf("expected error for non-numeric version")
	}
}

func TestMigrationFilesSorted(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if len(files) != 2 || files[0] != "0001_label_sets.sql" || files[1] != "0002_class_index.sql" {
		t.Fatalf("unexpected migrations: %v", files)
	}
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err != ErrNoDSN {
		t.Fatalf("expected ErrNoDSN, got %v", err)
	}
	if _, err := Open(context.Background(), "postgres://%zz"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func openPGForTest(t *testing.T) *Mirror {
	t.Helper()
	dsn := os.Getenv("YLL_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("YLL_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m, err := Open(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	if _, err := m.db.ExecContext(ctx, `TRUNCATE label_boxes, label_images`); err != nil {
		_ = m.Close()
		t.Fatalf("truncate: %v", err)
	}
	return m
}

func TestMirrorRecordReplaces(t *testing.T) {
	m := openPGForTest(t)
	defer func() { _ = m.Close() }()
	ctx := context.Background()

	rec := storage.ImageRecord{Path: "/data/a.jpg", Width: 640, Height: 480, Boxes: []labels.Box{
		{ClassID: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.2},
		{ClassID: 2, XCenter: 0.1, YCenter: 0.1, Width: 0.1, Height: 0.1},
	}}
	if err := m.Record(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	rec.Boxes = rec.Boxes[:1]
	if err := m.Record(ctx, rec); err != nil {
		t.Fatalf("re-record: %v", err)
	}
	imgs, boxes, err := m.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if imgs != 1 || boxes != 1 {
		t.Fatalf("count = %d images %d boxes, want 1/1", imgs, boxes)
	}
	hist, err := m.ClassHistogram(ctx)
	if err != nil {
		t.Fatalf("histogram: %v", err)
	}
	if len(hist) != 1 || hist[0] != (storage.ClassCount{ClassID: 0, Count: 1}) {
		t.Fatalf("histogram = %+v", hist)
	}
	if err := m.Record(ctx, storage.ImageRecord{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	m := openPGForTest(t)
	defer func() { _ = m.Close() }()
	ctx := context.Background()
	if err := m.applyMigrations(ctx); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 2 {
		t.Fatalf("schema_migrations rows = %d, want 2", n)
	}
}
