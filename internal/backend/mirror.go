/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend mirrors saved label sets into PostgreSQL so several
// annotators can share per-class statistics.
package backend

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	applog "yololabel/internal/log"
	"yololabel/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNoDSN is returned by Open when no connection string is configured.
var ErrNoDSN = errors.New("backend: empty dsn")

// Mirror writes image records to PostgreSQL. It implements the recorder
// interface used by the annotation session.
type Mirror struct {
	db  *sql.DB
	log *slog.Logger
}

// Open connects using dsn without a separate password.
func Open(ctx context.Context, dsn string) (*Mirror, error) {
	return OpenWithPassword(ctx, dsn, "")
}

// OpenWithPassword connects using dsn, applies password when the DSN has
// none, pings the server and applies pending migrations.
func OpenWithPassword(ctx context.Context, dsn, password string) (*Mirror, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrNoDSN
	}
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.Password == "" && password != "" {
		cfg.Password = password
	}
	db := stdlib.OpenDB(*cfg)

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	m := &Mirror{db: db, log: applog.WithComponent("backend")}
	if err := m.applyMigrations(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return m, nil
}

// Close releases the connection pool.
func (m *Mirror) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Record replaces the mirrored label set of rec.Path.
func (m *Mirror) Record(ctx context.Context, rec storage.ImageRecord) error {
	if rec.Path == "" {
		return errors.New("record: empty image path")
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO label_images(path, width, height, box_count, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (path) DO UPDATE SET width = EXCLUDED.width, height = EXCLUDED.height,
			box_count = EXCLUDED.box_count, updated_at = EXCLUDED.updated_at`,
		rec.Path, rec.Width, rec.Height, len(rec.Boxes)); err != nil {
		return fmt.Errorf("upsert image: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM label_boxes WHERE image = $1`, rec.Path); err != nil {
		return fmt.Errorf("clear boxes: %w", err)
	}
	for i, b := range rec.Boxes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO label_boxes(image, ordinal, class_id, x_center, y_center, width, height)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.Path, i, b.ClassID, b.XCenter, b.YCenter, b.Width, b.Height); err != nil {
			return fmt.Errorf("insert box %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	m.log.Debug("mirrored label set", slog.String("image", rec.Path), slog.Int("boxes", len(rec.Boxes)))
	return nil
}

// Count returns the number of mirrored images and boxes.
func (m *Mirror) Count(ctx context.Context) (images, boxes int, err error) {
	if err = m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM label_images`).Scan(&images); err != nil {
		return 0, 0, fmt.Errorf("count images: %w", err)
	}
	if err = m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM label_boxes`).Scan(&boxes); err != nil {
		return 0, 0, fmt.Errorf("count boxes: %w", err)
	}
	return images, boxes, nil
}

// ClassHistogram returns per-class box counts across all mirrored images.
func (m *Mirror) ClassHistogram(ctx context.Context) ([]storage.ClassCount, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT class_id, COUNT(*) FROM label_boxes GROUP BY class_id ORDER BY class_id`)
	if err != nil {
		return nil, fmt.Errorf("class histogram: %w", err)
	}
	defer rows.Close()
	var out []storage.ClassCount
	for rows.Next() {
		var c storage.ClassCount
		if err := rows.Scan(&c.ClassID, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// applyMigrations applies embedded SQL migrations in filename order and
// records each applied version.
func (m *Mirror) applyMigrations(ctx context.Context) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}
	// dialect=PostgreSQL
	if _, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		if err := m.applyOne(ctx, version, fname, string(b)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mirror) applyOne(ctx context.Context, version int64, name, sqlText string) error {
	m.log.Info("applying migration", slog.String("file", name))
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if strings.TrimSpace(sqlText) != "" {
		if _, err := tx.ExecContext(ctx, sqlText); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES ($1, $2)`, version, name); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	return tx.Commit()
}

func migrationFiles() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	head, _, ok := strings.Cut(base, "_")
	if !ok {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
