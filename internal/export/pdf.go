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
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions controls the layout report. Units are points.
//
// The first page summarizes the set; every image then gets one page with its
// frame scaled into the content area and each box stroked in its class color.
type PDFOptions struct {
	Title      string
	Margin     float64 // default 36
	LineWidth  float64 // box stroke, default 1
	SkipFailed bool    // omit pages for images with read errors
}

type rgb struct{ R, G, B int }

// palette is indexed by class id modulo its length.
var palette = []rgb{
	{230, 25, 75}, {60, 180, 75}, {0, 130, 200}, {245, 130, 48},
	{145, 30, 180}, {70, 240, 240}, {240, 50, 230}, {128, 128, 0},
}

func classColor(cls int) rgb {
	if cls < 0 {
		cls = -cls
	}
	return palette[cls%len(palette)]
}

// WritePDF renders m to a PDF file at path.
func WritePDF(path string, m Manifest, opt PDFOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	pdf := renderPDF(m, opt)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// RenderPDF writes the report for m to w.
func RenderPDF(w io.Writer, m Manifest, opt PDFOptions) error {
	if err := renderPDF(m, opt).Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func renderPDF(m Manifest, opt PDFOptions) *gofpdf.Fpdf {
	if opt.Margin <= 0 {
		opt.Margin = 36
	}
	if opt.LineWidth <= 0 {
		opt.LineWidth = 1
	}
	title := opt.Title
	if title == "" {
		title = "Label report"
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor(m.Generator, true)
	pdf.SetCreator("yololabel", false)
	pageW, pageH := pdf.GetPageSize()
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252 for core fonts

	summaryPage(pdf, m, tr(title), tr, opt.Margin)

	for _, e := range m.Images {
		if e.Error != "" && opt.SkipFailed {
			continue
		}
		pdf.AddPage()
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Text(opt.Margin, opt.Margin, tr(filepath.Base(e.Path)))
		pdf.SetFont("Helvetica", "", 9)
		info := fmt.Sprintf("%dx%d px, %d boxes", e.Width, e.Height, len(e.Boxes))
		if e.Error != "" {
			info = tr("error: " + e.Error)
		}
		pdf.Text(opt.Margin, opt.Margin+14, info)
		if e.Error != "" || e.Width <= 0 || e.Height <= 0 {
			continue
		}

		// content area below the header
		top := opt.Margin + 28
		availW, availH := pageW-2*opt.Margin, pageH-top-opt.Margin
		scale := min(availW/float64(e.Width), availH/float64(e.Height))
		fw, fh := float64(e.Width)*scale, float64(e.Height)*scale
		ox, oy := opt.Margin+(availW-fw)/2, top

		pdf.SetDrawColor(160, 160, 160)
		pdf.SetLineWidth(0.5)
		pdf.Rect(ox, oy, fw, fh, "D")

		pdf.SetLineWidth(opt.LineWidth)
		pdf.SetFont("Helvetica", "", 7)
		for _, b := range e.Boxes {
			c := classColor(b.ClassID)
			pdf.SetDrawColor(c.R, c.G, c.B)
			pdf.SetTextColor(c.R, c.G, c.B)
			x, y := ox+b.Pixel.X1*scale, oy+b.Pixel.Y1*scale
			pdf.Rect(x, y, (b.Pixel.X2-b.Pixel.X1)*scale, (b.Pixel.Y2-b.Pixel.Y1)*scale, "D")
			pdf.Text(x+1, y+7, fmt.Sprintf("%d", b.ClassID))
		}
	}
	return pdf
}

func summaryPage(pdf *gofpdf.Fpdf, m Manifest, title string, tr func(string) string, margin float64) {
	s := m.Summary()
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(margin, margin+8, title)
	pdf.SetFont("Helvetica", "", 10)
	y := margin + 32
	lines := []string{
		tr("Labels: " + m.LabelsDir),
		"Created: " + m.Created.Format("2006-01-02 15:04:05 MST"),
		fmt.Sprintf("Images: %d (labeled %d, unreadable %d)", s.Images, s.Labeled, s.Failed),
		fmt.Sprintf("Boxes: %d", s.Boxes),
	}
	for _, l := range lines {
		pdf.Text(margin, y, l)
		y += 14
	}
	if len(s.PerClass) == 0 {
		return
	}
	y += 10
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetXY(margin, y)
	pdf.CellFormat(80, 14, "Class", "1", 0, "L", false, 0, "")
	pdf.CellFormat(80, 14, "Boxes", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, c := range s.PerClass {
		col := classColor(c.ClassID)
		pdf.SetX(margin)
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.CellFormat(8, 14, "", "1", 0, "L", true, 0, "")
		pdf.CellFormat(72, 14, fmt.Sprintf("%d", c.ClassID), "1", 0, "L", false, 0, "")
		pdf.CellFormat(80, 14, fmt.Sprintf("%d", c.Count), "1", 1, "R", false, 0, "")
	}
}
