/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yololabel/internal/labels"
)

func TestLoadLabels_MissingFileIsEmpty(t *testing.T) {
	boxes, err := LoadLabels(filepath.Join(t.TempDir(), "none.txt"))
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	if len(boxes) != 0 {
		t.Fatalf("expected no boxes, got %d", len(boxes))
	}
}

func TestSaveThenLoad_ClampsAndSkipsNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "img.txt")
	in := []labels.Box{
		{ID: 0, ClassID: 3, XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.2},
		{ID: 1, ClassID: 1, XCenter: 1.2, YCenter: -0.1, Width: 0.3, Height: 0.4},
	}
	if err := SaveLabels(path, in, SaveOptions{}); err != nil {
		t.Fatalf("SaveLabels: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "3 0.500000 0.500000 0.200000 0.200000\n1 1.000000 0.000000 0.300000 0.400000\n"
	if string(b) != want {
		t.Fatalf("unexpected file content:\n%q\nwant\n%q", string(b), want)
	}
	out, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	if len(out) != 2 || out[1].XCenter != 1 || out[1].YCenter != 0 {
		t.Fatalf("unexpected boxes: %+v", out)
	}
	// no temp files left behind
	ents, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left: %s", e.Name())
		}
	}
}

func TestSaveLabels_EmptySetWritesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("0 0.5 0.5 0.1 0.1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := SaveLabels(path, nil, SaveOptions{}); err != nil {
		t.Fatalf("SaveLabels: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil || st.Size() != 0 {
		t.Fatalf("expected empty file, err=%v", err)
	}
}

func TestSaveLabels_BackupKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	prev := "2 0.100000 0.100000 0.100000 0.100000\n"
	if err := os.WriteFile(path, []byte(prev), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := SaveLabels(path, []labels.Box{{ClassID: 5, XCenter: 0.5, YCenter: 0.5, Width: 0.5, Height: 0.5}}, SaveOptions{Backup: true}); err != nil {
		t.Fatalf("SaveLabels: %v", err)
	}
	bak, err := LatestBackup(path)
	if err != nil {
		t.Fatalf("LatestBackup: %v", err)
	}
	b, err := os.ReadFile(bak)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(b) != prev {
		t.Fatalf("backup content = %q, want %q", string(b), prev)
	}
}

func TestSaveLabels_NoBackupWithoutOption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("1 0.5 0.5 0.5 0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := SaveLabels(path, nil, SaveOptions{}); err != nil {
		t.Fatalf("SaveLabels: %v", err)
	}
	if _, err := LatestBackup(path); err == nil {
		t.Fatalf("expected no backups")
	}
}

func TestLoadLabels_UnparseableNumberAborts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(path, []byte("0 0.5 0.5 0.1 0.1\n0 abc 0.5 0.1 0.1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	boxes, err := LoadLabels(path)
	if !errors.Is(err, labels.ErrUnparseableNumber) {
		t.Fatalf("expected ErrUnparseableNumber, got %v", err)
	}
	var pe *labels.ParseError
	if !errors.As(err, &pe) || pe.Line != 2 {
		t.Fatalf("expected ParseError on line 2, got %v", err)
	}
	if boxes != nil {
		t.Fatalf("expected no boxes on failure, got %d", len(boxes))
	}
}

func TestSaveLabels_RequiresPath(t *testing.T) {
	if err := SaveLabels("  ", nil, SaveOptions{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
