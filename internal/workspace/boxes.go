/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package workspace

import (
	"yololabel/internal/geom"
	"yololabel/internal/labels"
)

// AddBox appends a class 0 box centered on the image, sized NewBoxFraction
// of the image in both dimensions.
func (s *Session) AddBox() (labels.Box, error) {
	if s.image == "" {
		return labels.Box{}, ErrNoImage
	}
	f := s.opts.NewBoxFraction
	b := s.store.Create(0, geom.Normalized{XCenter: 0.5, YCenter: 0.5, Width: f, Height: f})
	if _, err := s.canvas.Add(b); err != nil {
		s.store.Remove(b.ID)
		return labels.Box{}, err
	}
	return b, nil
}

// Delete removes box id from the store and the canvas.
func (s *Session) Delete(id int) bool {
	ok := s.store.Remove(id)
	s.canvas.Remove(id)
	return ok
}

func (s *Session) DeleteSelected() error {
	id, ok := s.canvas.Selected()
	if !ok {
		return ErrNoBox
	}
	s.Delete(id)
	return nil
}

// SetClassID sets the class of the selected box, clamped to [0, MaxClassID],
// and returns the value applied.
func (s *Session) SetClassID(classID int) (int, error) {
	id, ok := s.canvas.Selected()
	if !ok {
		return 0, ErrNoBox
	}
	classID = min(max(classID, 0), MaxClassID)
	if !s.store.SetClassID(id, classID) {
		return 0, ErrNoBox
	}
	return classID, nil
}

// Select makes id the single selected box.
func (s *Session) Select(id int) bool { return s.canvas.Select(id) }

// SelectRow selects the box shown at list row i.
func (s *Session) SelectRow(i int) bool {
	b, ok := s.store.At(i)
	if !ok {
		return false
	}
	return s.canvas.Select(b.ID)
}

func (s *Session) Deselect() { s.canvas.Deselect() }

// Selected returns the selected box and its list row.
func (s *Session) Selected() (labels.Box, int, bool) {
	id, ok := s.canvas.Selected()
	if !ok {
		return labels.Box{}, -1, false
	}
	b, ok := s.store.Get(id)
	if !ok {
		return labels.Box{}, -1, false
	}
	return b, s.store.IndexOf(id), true
}

// Rows renders the box list in store order.
func (s *Session) Rows() []string {
	boxes := s.store.Boxes()
	rows := make([]string, len(boxes))
	for i, b := range boxes {
		rows[i] = b.Row()
	}
	return rows
}
