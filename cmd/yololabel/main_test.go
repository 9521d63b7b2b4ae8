/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yololabel/internal/config"
	"yololabel/internal/export"
	"yololabel/internal/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := config.Defaults()
	a := &app{loadConfig: func() (config.AppConfig, string, error) { return cfg, "", nil }}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))))
	require.NoError(t, f.Close())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRootCommandSubcommands(t *testing.T) {
	root := newRootCmd(&app{})
	names := []string{}
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"version", "check", "normalize", "index", "export", "ui"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "YOLO Label")
}

func TestCheckReportsProblems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.txt"), "0 0.5 0.5 0.2 0.2\n")
	writeFile(t, filepath.Join(dir, "skip.txt"), "0 0.5 0.5\n1 0.5 0.5 0.2 0.2\n")
	writeFile(t, filepath.Join(dir, "range.txt"), "0 1.5 0.5 0.2 0.2\n")
	writeFile(t, filepath.Join(dir, "bad.txt"), "0 0.5 0.5 0.2 0.2\n0 abc 0.5 0.2 0.2\n")
	writeFile(t, filepath.Join(dir, "notes.md"), "ignored")

	out, err := run(t, "check", dir)
	assert.ErrorIs(t, err, errProblems)
	assert.Contains(t, out, "skip.txt: line 1: malformed record skipped")
	assert.Contains(t, out, "range.txt: line 1: values outside [0,1] are clamped on save")
	assert.Contains(t, out, "bad.txt: line 2")
	assert.Contains(t, out, "checked 4 files, 1 unloadable")
	assert.NotContains(t, out, "good.txt")
}

func TestCheckCleanDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "0 0.5 0.5 0.2 0.2\n\n")
	out, err := run(t, "check", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "checked 1 files, 0 unloadable")
}

func TestNormalizeRewritesClamped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "2 1.5 0.5 0.2 0.2\nbroken line\n")
	writeFile(t, filepath.Join(dir, "bad.txt"), "0 x 0.5 0.2 0.2\n")

	out, err := run(t, "normalize", "--backup=false", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "normalized 1 files, skipped 1")
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2 1.000000 0.500000 0.200000 0.200000\n", string(b))
	_, err = os.Stat(filepath.Join(dir, storage.BackupsDirName))
	assert.True(t, os.IsNotExist(err))
}

func TestIndexCommand(t *testing.T) {
	imgDir, labelsDir := t.TempDir(), t.TempDir()
	writePNG(t, filepath.Join(imgDir, "a.png"), 100, 100)
	writePNG(t, filepath.Join(imgDir, "b.png"), 100, 100)
	writeFile(t, filepath.Join(labelsDir, "a.txt"), "0 0.5 0.5 0.2 0.2\n3 0.2 0.2 0.1 0.1\n3 0.7 0.7 0.1 0.1\n")

	out, err := run(t, "index", "--labels", labelsDir, imgDir)
	require.NoError(t, err)
	assert.Contains(t, out, "images: 2  labeled: 1  boxes: 3  classes: 2")
	assert.Contains(t, out, "class   3: 2")
	_, err = os.Stat(storage.IndexPath(labelsDir))
	assert.NoError(t, err)
}

func TestIndexMirrorRequiresDSN(t *testing.T) {
	imgDir := t.TempDir()
	writePNG(t, filepath.Join(imgDir, "a.png"), 10, 10)
	_, err := run(t, "index", "--mirror", imgDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend dsn not configured")
}

func TestExportCommand(t *testing.T) {
	imgDir, labelsDir, outDir := t.TempDir(), t.TempDir(), t.TempDir()
	writePNG(t, filepath.Join(imgDir, "a.png"), 100, 50)
	writeFile(t, filepath.Join(labelsDir, "a.txt"), "1 0.5 0.5 0.5 0.5\n")

	jsonPath := filepath.Join(outDir, "m.json")
	pdfPath := filepath.Join(outDir, "r.pdf")
	zipPath := filepath.Join(outDir, "ds.zip")
	prevDir := filepath.Join(outDir, "prev")
	out, err := run(t, "export", imgDir, labelsDir, "--json", jsonPath, "--pdf", pdfPath, "--zip", zipPath, "--previews", prevDir)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 previews")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.NoError(t, export.ValidateJSON(data))
	for _, p := range []string{pdfPath, zipPath, filepath.Join(prevDir, "a.png")} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestExportRequiresOutput(t *testing.T) {
	_, err := run(t, "export", t.TempDir(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to export")
}

func TestLazyIndexFollowsSaveDir(t *testing.T) {
	cfg := config.Defaults()
	dirA, dirB := t.TempDir(), t.TempDir()
	imgDir := t.TempDir()
	img := filepath.Join(imgDir, "a.png")
	writePNG(t, img, 20, 20)

	cfg.Labels.SaveDir = dirA
	a := &app{cfg: cfg, log: slog.New(slog.DiscardHandler)}
	s := newSession(a)
	defer closeRecorders(s)

	require.NoError(t, s.OpenImage(img))
	_, err := s.Save(t.Context())
	require.NoError(t, err)
	require.NoError(t, s.SetSaveDir(dirB))
	_, err = s.Save(t.Context())
	require.NoError(t, err)

	for _, d := range []string{dirA, dirB} {
		_, err := os.Stat(storage.IndexPath(d))
		assert.NoError(t, err, d)
	}
}
