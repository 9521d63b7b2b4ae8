/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "yololabel/internal/log"
	"yololabel/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName holds derived data under the label directory.
	IndexDirName  = ".yll"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema; bump it together with a migration step.
	schemaVersion = 2
)

// IndexPath returns the index database path for a label directory.
func IndexPath(saveDir string) string {
	return filepath.Join(saveDir, IndexDirName, IndexFileName)
}

// Index is the per-dataset SQLite index of images and boxes.
type Index struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// Stats summarizes the indexed dataset.
type Stats struct {
	Images  int // indexed images
	Labeled int // images with at least one box
	Boxes   int
	Classes int // distinct class ids
}

// ClassCount is one histogram bucket.
type ClassCount struct {
	ClassID int
	Count   int
}

// OpenIndex ensures <saveDir>/.yll/index.sqlite exists, enables WAL mode and brings the schema up to date.
func OpenIndex(saveDir string) (*Index, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(
		slog.String("dir", saveDir),
	)
	if strings.TrimSpace(saveDir) == "" {
		return nil, errors.New("label directory is required")
	}
	if err := os.MkdirAll(filepath.Join(saveDir, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}

	path := IndexPath(saveDir)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	for _, step := range []func(context.Context, *sql.DB) error{ensureMetaAndVersion, ensureIndexSchema, runMigrations} {
		if err := step(ctx, db); err != nil {
			_ = db.Close()
			l.Error("prepare index schema failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Debug("index ready", slog.String("path", path))
	return &Index{db: db, path: path, log: l}, nil
}

// Path returns the database file path.
func (ix *Index) Path() string { return ix.path }

// Close releases the database handle.
func (ix *Index) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep schema; migrations move it forward
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS images (
			path       TEXT    PRIMARY KEY,
			width      INTEGER NOT NULL,
			height     INTEGER NOT NULL,
			box_count  INTEGER NOT NULL,
			updated_at TEXT    NOT NULL
		);`,
		// ordinal keeps file order; box ids are per-session and may repeat across loads
		`CREATE TABLE IF NOT EXISTS boxes (
			image    TEXT    NOT NULL,
			ordinal  INTEGER NOT NULL,
			box_id   INTEGER NOT NULL,
			class_id INTEGER NOT NULL,
			x_center REAL    NOT NULL,
			y_center REAL    NOT NULL,
			width    REAL    NOT NULL,
			height   REAL    NOT NULL,
			PRIMARY KEY(image, ordinal),
			FOREIGN KEY(image) REFERENCES images(path) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_boxes_class ON boxes(class_id);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema steps up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_images_updated ON images(updated_at);`}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	// fresh databases skip the migration steps
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_images_updated ON images(updated_at);`); err != nil {
		return fmt.Errorf("ensure images index: %w", err)
	}
	return nil
}

// Record replaces the indexed state of one image.
func (ix *Index) Record(ctx context.Context, rec ImageRecord) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := recordTx(ctx, tx, rec); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rebuild clears the index and inserts recs.
func (ix *Index) Rebuild(ctx context.Context, recs []ImageRecord) error {
	l := applog.WithOperation(ix.log, "index_rebuild")
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, q := range []string{"DELETE FROM boxes;", "DELETE FROM images;"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear index: %w", err)
		}
	}
	for _, rec := range recs {
		if err := recordTx(ctx, tx, rec); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	l.Info("index rebuilt", slog.Int("images", len(recs)))
	return nil
}

func recordTx(ctx context.Context, tx *sql.Tx, rec ImageRecord) error {
	if strings.TrimSpace(rec.Path) == "" {
		return errors.New("image path is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `INSERT INTO images(path, width, height, box_count, updated_at) VALUES(?,?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET width=excluded.width, height=excluded.height, box_count=excluded.box_count, updated_at=excluded.updated_at;`,
		rec.Path, rec.Width, rec.Height, len(rec.Boxes), now); err != nil {
		return fmt.Errorf("upsert image: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM boxes WHERE image=?;`, rec.Path); err != nil {
		return fmt.Errorf("clear boxes: %w", err)
	}
	if len(rec.Boxes) == 0 {
		return nil
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO boxes(image, ordinal, box_id, class_id, x_center, y_center, width, height) VALUES(?,?,?,?,?,?,?,?);`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for i, b := range rec.Boxes {
		if _, err := ins.ExecContext(ctx, rec.Path, i, b.ID, b.ClassID, b.XCenter, b.YCenter, b.Width, b.Height); err != nil {
			return fmt.Errorf("insert box: %w", err)
		}
	}
	return nil
}

// Stats reports image, box and class counts.
func (ix *Index) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	row := ix.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM images),
		(SELECT COUNT(*) FROM images WHERE box_count > 0),
		(SELECT COUNT(*) FROM boxes),
		(SELECT COUNT(DISTINCT class_id) FROM boxes);`)
	if err := row.Scan(&s.Images, &s.Labeled, &s.Boxes, &s.Classes); err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return s, nil
}

// ClassHistogram returns box counts per class id, ascending by class id.
func (ix *Index) ClassHistogram(ctx context.Context) ([]ClassCount, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT class_id, COUNT(*) FROM boxes GROUP BY class_id ORDER BY class_id;`)
	if err != nil {
		return nil, fmt.Errorf("query histogram: %w", err)
	}
	defer rows.Close()
	var out []ClassCount
	for rows.Next() {
		var c ClassCount
		if err := rows.Scan(&c.ClassID, &c.Count); err != nil {
			return nil, fmt.Errorf("scan histogram: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DetectAndRebuildIndex opens the index for saveDir, and when the file is corrupt or lacks the core schema,
// backs it up, deletes it and rebuilds it from recs. It reports whether a rebuild happened.
func DetectAndRebuildIndex(ctx context.Context, saveDir string, recs []ImageRecord) (bool, error) {
	path := IndexPath(saveDir)
	ix, err := OpenIndex(saveDir)
	if err == nil {
		healthy := true
		var chk string
		if qerr := ix.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); qerr != nil || !strings.Contains(strings.ToLower(chk), "ok") {
			healthy = false
		}
		if healthy {
			if _, perr := ix.db.ExecContext(ctx, `SELECT 1 FROM boxes LIMIT 1;`); perr != nil {
				healthy = false
			}
		}
		if healthy {
			defer ix.Close()
			return false, ix.Rebuild(ctx, recs)
		}
		_ = ix.Close()
	}
	backupIndexFile(path)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
	ix, oerr := OpenIndex(saveDir)
	if oerr != nil {
		return false, fmt.Errorf("reopen after reset: %w (open err: %v)", oerr, err)
	}
	defer ix.Close()
	if rerr := ix.Rebuild(ctx, recs); rerr != nil {
		return false, rerr
	}
	return true, nil
}

// backupIndexFile copies the index file into .yll/backups with a timestamp.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
