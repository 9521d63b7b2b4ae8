/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"yololabel/internal/backend"
	"yololabel/internal/dataset"
	"yololabel/internal/export"
	"yololabel/internal/labels"
	"yololabel/internal/storage"
	"yololabel/internal/ui"
)

// errProblems is returned by check when at least one file cannot be loaded.
var errProblems = errors.New("label problems found")

// labelFiles lists the *.txt files of dir, sorted.
func labelFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read label dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), dataset.LabelExt) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <labelsDir>",
		Short: "Report malformed and unparseable label lines",
		Long: `Checks every label file in a directory. Lines with a wrong field count are
reported as skipped (they are ignored when loading); lines with a field that is
not a finite number make the whole file unloadable and fail the check.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := labelFiles(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			bad := 0
			for _, f := range files {
				issues, fatal, err := checkFile(f)
				if err != nil {
					return err
				}
				for _, is := range issues {
					_, _ = fmt.Fprintf(out, "%s: %s\n", filepath.Base(f), is)
				}
				if fatal {
					bad++
				}
			}
			_, _ = fmt.Fprintf(out, "checked %d files, %d unloadable\n", len(files), bad)
			a.log.Info("check finished", slog.Int("files", len(files)), slog.Int("unloadable", bad))
			if bad > 0 {
				return errProblems
			}
			return nil
		},
	}
}

// checkFile lists per-line findings; fatal is set when the file cannot be loaded.
func checkFile(path string) (issues []string, fatal bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		b, perr := labels.ParseLine(line)
		switch {
		case errors.Is(perr, labels.ErrMalformedRecord):
			issues = append(issues, fmt.Sprintf("line %d: malformed record skipped", n))
		case perr != nil:
			var pe *labels.ParseError
			if errors.As(perr, &pe) {
				pe.Line = n
			}
			issues = append(issues, perr.Error())
			fatal = true
		case b.Clamped() != b:
			issues = append(issues, fmt.Sprintf("line %d: values outside [0,1] are clamped on save", n))
		}
	}
	return issues, fatal, sc.Err()
}

func newNormalizeCmd(a *app) *cobra.Command {
	var backup bool
	cmd := &cobra.Command{
		Use:   "normalize <labelsDir>",
		Short: "Rewrite every label file in canonical clamped form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := labelFiles(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			done, skipped := 0, 0
			for _, f := range files {
				boxes, err := storage.LoadLabels(f)
				if err != nil {
					skipped++
					_, _ = fmt.Fprintf(out, "skip %v\n", err)
					a.log.Warn("normalize skipped file", slog.String("path", f), slog.Any("err", err))
					continue
				}
				if err := storage.SaveLabels(f, boxes, storage.SaveOptions{Backup: backup}); err != nil {
					return err
				}
				done++
			}
			_, _ = fmt.Fprintf(out, "normalized %d files, skipped %d\n", done, skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&backup, "backup", true, "keep a timestamped copy of each file under backups/")
	return cmd
}

func newIndexCmd(a *app) *cobra.Command {
	var labelsDir string
	var mirror bool
	cmd := &cobra.Command{
		Use:   "index <imagesDir>",
		Short: "Rebuild the label index and print dataset statistics",
		Long: `Reads every image and its label file and rebuilds the SQLite index stored in
<labelsDir>/.yll. A corrupt index is backed up and recreated. With --mirror the
records are also written to the configured PostgreSQL backend.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := labelsDir
			if dir == "" {
				dir = a.cfg.Labels.SaveDir
			}
			if dir == "" {
				dir = args[0]
			}
			images, err := dataset.ListImages(args[0])
			if err != nil {
				return err
			}
			m := export.BuildManifest(dir, images)
			recs := m.Records()
			ctx := cmd.Context()
			rebuilt, err := storage.DetectAndRebuildIndex(ctx, dir, recs)
			if err != nil {
				return err
			}
			if rebuilt {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "index was corrupt; backed up and recreated")
			}
			idx, err := storage.OpenIndex(dir)
			if err != nil {
				return err
			}
			defer idx.Close()
			if err := printStats(ctx, cmd.OutOrStdout(), idx, m); err != nil {
				return err
			}
			if mirror {
				return mirrorRecords(ctx, a, cmd.OutOrStdout(), recs)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&labelsDir, "labels", "", "label directory (default: configured save dir, else imagesDir)")
	cmd.Flags().BoolVar(&mirror, "mirror", false, "also write records to the PostgreSQL backend")
	return cmd
}

func printStats(ctx context.Context, w io.Writer, idx *storage.Index, m export.Manifest) error {
	st, err := idx.Stats(ctx)
	if err != nil {
		return err
	}
	hist, err := idx.ClassHistogram(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "images: %d  labeled: %d  boxes: %d  classes: %d\n", st.Images, st.Labeled, st.Boxes, st.Classes)
	for _, c := range hist {
		_, _ = fmt.Fprintf(w, "  class %3d: %d\n", c.ClassID, c.Count)
	}
	for _, e := range m.Images {
		if e.Error != "" {
			_, _ = fmt.Fprintf(w, "unreadable %s: %s\n", filepath.Base(e.Path), e.Error)
		}
	}
	return nil
}

func mirrorRecords(ctx context.Context, a *app, w io.Writer, recs []storage.ImageRecord) error {
	if a.cfg.Backend.DSN == "" {
		return errors.New("backend dsn not configured (backend.dsn or YLL_BACKEND_DSN)")
	}
	mr, err := backend.OpenWithPassword(ctx, a.cfg.Backend.DSN, a.secret)
	if err != nil {
		return err
	}
	defer mr.Close()
	for _, r := range recs {
		if err := mr.Record(ctx, r); err != nil {
			return err
		}
	}
	imgs, boxes, err := mr.Count(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "mirrored %d records (backend holds %d images, %d boxes)\n", len(recs), imgs, boxes)
	return nil
}

func newExportCmd(a *app) *cobra.Command {
	var jsonOut, pdfOut, previewsOut, zipOut, title string
	var includeImages bool
	cmd := &cobra.Command{
		Use:   "export <imagesDir> <labelsDir>",
		Short: "Export a label set as JSON manifest, PDF report, previews or dataset zip",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOut == "" && pdfOut == "" && previewsOut == "" && zipOut == "" {
				return errors.New("nothing to export: pass --json, --pdf, --previews or --zip")
			}
			images, err := dataset.ListImages(args[0])
			if err != nil {
				return err
			}
			l := a.log.With(slog.String("op", "export"))
			m := export.BuildManifest(args[1], images)
			out := cmd.OutOrStdout()
			if jsonOut != "" {
				if err := writeManifestFile(jsonOut, m); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, "wrote", jsonOut)
			}
			if pdfOut != "" {
				if err := export.WritePDF(pdfOut, m, export.PDFOptions{Title: title}); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, "wrote", pdfOut)
			}
			if previewsOut != "" {
				n, err := export.WriteOverlays(previewsOut, m, export.OverlayOptions{})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "wrote %d previews to %s\n", n, previewsOut)
			}
			if zipOut != "" {
				n, err := export.WriteDatasetZip(zipOut, m, export.ZipOptions{IncludeImages: includeImages})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "wrote %d label files to %s\n", n, zipOut)
			}
			s := m.Summary()
			l.Info("export finished", slog.Int("images", s.Images), slog.Int("boxes", s.Boxes), slog.Int("failed", s.Failed))
			return nil
		},
	}
	cmd.Flags().StringVar(&jsonOut, "json", "", "write the JSON manifest to this file")
	cmd.Flags().StringVar(&pdfOut, "pdf", "", "write a PDF layout report to this file")
	cmd.Flags().StringVar(&previewsOut, "previews", "", "write PNG overlay previews into this directory")
	cmd.Flags().StringVar(&zipOut, "zip", "", "write a zipped YOLO dataset to this file")
	cmd.Flags().BoolVar(&includeImages, "include-images", false, "add the images to the dataset zip")
	cmd.Flags().StringVar(&title, "title", "", "title of the PDF report")
	return cmd
}

// writeManifestFile encodes m and checks the result against the schema before writing.
func writeManifestFile(path string, m export.Manifest) error {
	var sb strings.Builder
	if err := export.WriteJSON(&sb, m); err != nil {
		return err
	}
	data := []byte(sb.String())
	if err := export.ValidateJSON(data); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func newUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ui [imageOrFolder]",
		Short: "Launch the desktop annotator (build with -tags fyne for full UI)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(a)
			defer closeRecorders(s)
			open := ""
			if len(args) == 1 {
				open = args[0]
			}
			if err := attachBackend(cmd.Context(), a, s); err != nil {
				a.log.Warn("backend mirror disabled", slog.Any("err", err))
			}
			return ui.Run(ui.Options{Config: a.cfg, Session: s.Session, Open: open})
		},
	}
}
