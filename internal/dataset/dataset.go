/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package dataset locates images and their label files and reads image pixel
// dimensions from file headers without decoding pixel data.
package dataset

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// registered decoders; only DecodeConfig is used
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// LabelExt is the extension of label files.
const LabelExt = ".txt"

var (
	// ErrNoImages is returned when a folder has no supported images.
	ErrNoImages = errors.New("no images in folder")
	// ErrEmptyImage is returned for images reporting zero width or height.
	ErrEmptyImage = errors.New("image has no pixels")
)

// imageExts lists supported image extensions (lower case).
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// ListImages returns the supported images directly inside dir, sorted by
// path. Subdirectories are not descended into.
func ListImages(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image folder: %w", err)
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	if len(out) == 0 {
		return nil, ErrNoImages
	}
	sort.Strings(out)
	return out, nil
}

// LabelPath returns <saveDir>/<image stem>.txt.
func LabelPath(saveDir, imagePath string) string {
	base := filepath.Base(imagePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(saveDir, stem+LabelExt)
}

// Size is an image extent in pixels.
type Size struct {
	Width, Height int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// ProbeSize reads the pixel dimensions of the image at path from its header.
func ProbeSize(path string) (Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return Size{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Size{}, fmt.Errorf("read image header %s: %w", filepath.Base(path), err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Size{}, fmt.Errorf("%s image %s: %w", format, filepath.Base(path), ErrEmptyImage)
	}
	return Size{Width: cfg.Width, Height: cfg.Height}, nil
}
