/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a labeled image set as a JSON manifest, a PDF
// layout report, PNG overlay previews or a zipped YOLO dataset.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"yololabel/internal/dataset"
	"yololabel/internal/geom"
	"yololabel/internal/labels"
	"yololabel/internal/storage"
	"yololabel/internal/version"
)

// ManifestVersion is the "version" written into manifests.
const ManifestVersion = 1

type PixelRect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

type BoxEntry struct {
	ClassID int       `json:"class_id"`
	XCenter float64   `json:"x_center"`
	YCenter float64   `json:"y_center"`
	Width   float64   `json:"width"`
	Height  float64   `json:"height"`
	Pixel   PixelRect `json:"pixel"`
}

type ImageEntry struct {
	Path   string     `json:"path"`
	Labels string     `json:"labels"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Boxes  []BoxEntry `json:"boxes"`
	// Error is set when the image or its label file could not be read.
	Error string `json:"error,omitempty"`
}

type Manifest struct {
	Version   int          `json:"version"`
	Generator string       `json:"generator"`
	Created   time.Time    `json:"created"`
	LabelsDir string       `json:"labels_dir"`
	Images    []ImageEntry `json:"images"`
}

// BuildManifest reads the size and labels of every image. Per-image failures
// are recorded in ImageEntry.Error and do not stop the build.
func BuildManifest(labelsDir string, images []string) Manifest {
	m := Manifest{
		Version:   ManifestVersion,
		Generator: "yololabel " + version.Version,
		Created:   time.Now().UTC().Truncate(time.Second),
		LabelsDir: labelsDir,
		Images:    make([]ImageEntry, 0, len(images)),
	}
	for _, img := range images {
		m.Images = append(m.Images, buildEntry(labelsDir, img))
	}
	return m
}

func buildEntry(labelsDir, img string) ImageEntry {
	e := ImageEntry{Path: img, Labels: dataset.LabelPath(labelsDir, img), Boxes: []BoxEntry{}}
	size, err := dataset.ProbeSize(img)
	if err != nil {
		e.Error = err.Error()
		return e
	}
	e.Width, e.Height = size.Width, size.Height
	boxes, err := storage.LoadLabels(e.Labels)
	if err != nil {
		e.Error = err.Error()
		return e
	}
	imgRect := geom.ImageRect(float64(size.Width), float64(size.Height))
	for _, b := range boxes {
		r, _ := geom.ToScene(b.Normalized(), imgRect) // extent checked by ProbeSize
		e.Boxes = append(e.Boxes, BoxEntry{
			ClassID: b.ClassID,
			XCenter: b.XCenter, YCenter: b.YCenter, Width: b.Width, Height: b.Height,
			Pixel: PixelRect{X1: r.X1, Y1: r.Y1, X2: r.X2, Y2: r.Y2},
		})
	}
	return e
}

// LabelBoxes converts the entry back into label boxes numbered in file order.
func (e ImageEntry) LabelBoxes() []labels.Box {
	out := make([]labels.Box, len(e.Boxes))
	for i, b := range e.Boxes {
		out[i] = labels.Box{ID: i, ClassID: b.ClassID, XCenter: b.XCenter, YCenter: b.YCenter, Width: b.Width, Height: b.Height}
	}
	return out
}

// Records returns index records for every readable image.
func (m Manifest) Records() []storage.ImageRecord {
	recs := make([]storage.ImageRecord, 0, len(m.Images))
	for _, e := range m.Images {
		if e.Error != "" {
			continue
		}
		recs = append(recs, storage.ImageRecord{Path: e.Path, Width: e.Width, Height: e.Height, Boxes: e.LabelBoxes()})
	}
	return recs
}

// Summary aggregates a manifest.
type Summary struct {
	Images  int
	Labeled int
	Failed  int
	Boxes   int
	// PerClass is sorted by class id.
	PerClass []storage.ClassCount
}

func (m Manifest) Summary() Summary {
	var s Summary
	counts := map[int]int{}
	for _, e := range m.Images {
		s.Images++
		if e.Error != "" {
			s.Failed++
			continue
		}
		if len(e.Boxes) > 0 {
			s.Labeled++
		}
		for _, b := range e.Boxes {
			s.Boxes++
			counts[b.ClassID]++
		}
	}
	for cls, n := range counts {
		s.PerClass = append(s.PerClass, storage.ClassCount{ClassID: cls, Count: n})
	}
	sort.Slice(s.PerClass, func(i, j int) bool { return s.PerClass[i].ClassID < s.PerClass[j].ClassID })
	return s
}

// WriteJSON writes m as indented JSON.
func WriteJSON(w io.Writer, m Manifest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
