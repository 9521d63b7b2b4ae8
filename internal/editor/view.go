/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import "yololabel/internal/geom"

const (
	DefaultZoomMin  = 0.2
	DefaultZoomMax  = 5.0
	DefaultZoomStep = 1.1
)

// View maps between screen coordinates of a render surface and scene
// coordinates: screen = scene*Scale + Offset.
type View struct {
	Scale  float64
	Offset geom.Pt

	Min, Max, Step float64
}

func NewView() *View {
	return &View{Scale: 1, Min: DefaultZoomMin, Max: DefaultZoomMax, Step: DefaultZoomStep}
}

func (v *View) ToScene(p geom.Pt) geom.Pt {
	return geom.Pt{X: (p.X - v.Offset.X) / v.Scale, Y: (p.Y - v.Offset.Y) / v.Scale}
}

func (v *View) ToScreen(p geom.Pt) geom.Pt {
	return geom.Pt{X: p.X*v.Scale + v.Offset.X, Y: p.Y*v.Scale + v.Offset.Y}
}

// Fit scales image to fit into a viewport of vw×vh keeping its aspect ratio,
// centered. The fitted scale is not limited by Min/Max.
func (v *View) Fit(image geom.Rect, vw, vh float64) {
	if !image.HasArea() || vw <= 0 || vh <= 0 {
		v.Scale, v.Offset = 1, geom.Pt{}
		return
	}
	v.Scale = min(vw/image.Width(), vh/image.Height())
	v.Offset = geom.Pt{
		X: (vw-image.Width()*v.Scale)/2 - image.X1*v.Scale,
		Y: (vh-image.Height()*v.Scale)/2 - image.Y1*v.Scale,
	}
}

// ZoomAt zooms in one step for delta > 0 and out otherwise, keeping the scene
// point under the screen point anchor fixed. A step leaving [Min, Max] is
// rejected and reported as false.
func (v *View) ZoomAt(anchor geom.Pt, delta float64) bool {
	factor := v.Step
	if delta <= 0 {
		factor = 2 - v.Step // 1.1 in, 0.9 out
	}
	next := v.Scale * factor
	if next < v.Min || next > v.Max {
		return false
	}
	s := v.ToScene(anchor)
	v.Scale = next
	v.Offset = geom.Pt{X: anchor.X - s.X*next, Y: anchor.Y - s.Y*next}
	return true
}

// Pan shifts the view by a screen-space delta.
func (v *View) Pan(dx, dy float64) {
	v.Offset.X += dx
	v.Offset.Y += dy
}

// HandleSize converts a handle size in screen pixels to scene units so
// handles keep a constant on-screen size.
func (v *View) HandleSize(screen float64) float64 {
	if v.Scale <= 0 {
		return screen
	}
	return screen / v.Scale
}
