/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
)

// OverlayOptions controls PNG previews with boxes drawn over the image.
type OverlayOptions struct {
	Stroke int // border thickness in pixels, default 2
}

// RenderOverlay decodes the image of e and strokes every box on a copy.
func RenderOverlay(e ImageEntry, opt OverlayOptions) (*image.RGBA, error) {
	f, err := os.Open(e.Path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(e.Path), err)
	}
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)

	stroke := opt.Stroke
	if stroke <= 0 {
		stroke = 2
	}
	for _, bx := range e.Boxes {
		c := classColor(bx.ClassID)
		col := color.RGBA{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B), A: 255}
		x0, y0 := int(math.Round(bx.Pixel.X1)), int(math.Round(bx.Pixel.Y1))
		x1, y1 := int(math.Round(bx.Pixel.X2))-1, int(math.Round(bx.Pixel.Y2))-1
		for i := 0; i < stroke; i++ {
			strokeRect(img, x0+i, y0+i, x1-i, y1-i, col)
		}
	}
	return img, nil
}

// WriteOverlays writes <stem>.png previews for every readable image into dir
// and returns the number written.
func WriteOverlays(dir string, m Manifest, opt OverlayOptions) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure out dir: %w", err)
	}
	n := 0
	for _, e := range m.Images {
		if e.Error != "" {
			continue
		}
		img, err := RenderOverlay(e, opt)
		if err != nil {
			return n, err
		}
		if err := writePNG(filepath.Join(dir, stem(e.Path)+".png"), img); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// strokeRect draws a 1px border inclusive of endpoints; points outside img are dropped.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 || y1 < y0 {
		return
	}
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}
