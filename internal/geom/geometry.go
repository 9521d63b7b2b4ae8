/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// Scene-space geometry for the box editor and the projection between scene
// pixels and normalized label space. Scene space is anchored at the image
// top-left, 1 unit = 1 image pixel.

import (
	"errors"
	"math"
)

// ErrInvalidImageExtent is returned when a projection is attempted against an
// image rectangle with zero or negative width or height.
var ErrInvalidImageExtent = errors.New("invalid image extent")

// Pt is a 2D point in scene space.
type Pt struct{ X, Y float64 }

// Rect is an axis-aligned rectangle given by its corners (X1,Y1) top-left and
// (X2,Y2) bottom-right.
type Rect struct {
	X1, Y1 float64
	X2, Y2 float64
}

func R(x1, y1, x2, y2 float64) Rect { return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2} }

// ImageRect returns the scene rectangle (0,0)-(w,h) of a loaded image.
func ImageRect(w, h float64) Rect { return Rect{X2: w, Y2: h} }

func (r Rect) Width() float64   { return r.X2 - r.X1 }
func (r Rect) Height() float64  { return r.Y2 - r.Y1 }
func (r Rect) CenterX() float64 { return (r.X1 + r.X2) / 2 }
func (r Rect) CenterY() float64 { return (r.Y1 + r.Y2) / 2 }
func (r Rect) Center() Pt       { return Pt{r.CenterX(), r.CenterY()} }
func (r Rect) Min() Pt          { return Pt{r.X1, r.Y1} }
func (r Rect) Max() Pt          { return Pt{r.X2, r.Y2} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X1 && p.Y >= r.Y1 && p.X <= r.X2 && p.Y <= r.Y2
}

// Translate returns r moved by dx,dy.
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X1: r.X1 + dx, Y1: r.Y1 + dy, X2: r.X2 + dx, Y2: r.Y2 + dy}
}

// HasArea reports whether the rectangle has positive width and height.
func (r Rect) HasArea() bool { return r.Width() > 0 && r.Height() > 0 }

// Normalized holds YOLO-style center/size coordinates relative to the image.
type Normalized struct {
	XCenter, YCenter float64
	Width, Height    float64
}

// ToScene projects normalized coordinates into scene pixels.
func ToScene(n Normalized, img Rect) (Rect, error) {
	if !img.HasArea() {
		return Rect{}, ErrInvalidImageExtent
	}
	iw, ih := img.Width(), img.Height()
	cx := n.XCenter*iw + img.X1
	cy := n.YCenter*ih + img.Y1
	w := n.Width * iw
	h := n.Height * ih
	return Rect{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}, nil
}

// ToNormalized is the inverse of ToScene.
func ToNormalized(r Rect, img Rect) (Normalized, error) {
	if !img.HasArea() {
		return Normalized{}, ErrInvalidImageExtent
	}
	iw, ih := img.Width(), img.Height()
	return Normalized{
		XCenter: (r.CenterX() - img.X1) / iw,
		YCenter: (r.CenterY() - img.Y1) / ih,
		Width:   r.Width() / iw,
		Height:  r.Height() / ih,
	}, nil
}

// Clamp limits v to [lo, hi]. When the range is inverted (hi < lo) lo wins.
func Clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// Round rounds v to n decimal places deterministically.
func Round(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
