/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package labels

import "yololabel/internal/geom"

// Store is the ordered collection of boxes for the current image.
//
// Ids handed out by Next are monotonic for the lifetime of one loaded image:
// the counter never moves backwards on Remove, so a deleted id is not reused.
// Add does not enforce uniqueness; callers inserting their own ids must avoid
// collisions, otherwise Remove only drops the first match.
type Store struct {
	boxes  []Box
	nextID int
	rev    uint64
}

func NewStore() *Store { return &Store{} }

// Reset replaces the collection, e.g. after loading a label file, and moves
// the id counter past the largest loaded id.
func (s *Store) Reset(boxes []Box) {
	s.boxes = append(s.boxes[:0:0], boxes...)
	s.nextID = 0
	s.rev++
	for _, b := range s.boxes {
		s.bump(b.ID)
	}
}

// Rev counts mutations. Two equal readings mean the collection is unchanged
// in between.
func (s *Store) Rev() uint64 { return s.rev }

// Next returns the id the next created box should use.
func (s *Store) Next() int { return s.nextID }

// Add appends b, preserving insertion order.
func (s *Store) Add(b Box) {
	s.boxes = append(s.boxes, b)
	s.bump(b.ID)
	s.rev++
}

// Create appends a new box with a fresh id and returns it.
func (s *Store) Create(classID int, n geom.Normalized) Box {
	b := NewBox(s.nextID, classID, n)
	s.Add(b)
	return b
}

// Remove deletes the first box with the given id. It is a no-op when absent.
func (s *Store) Remove(id int) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.boxes = append(s.boxes[:i], s.boxes[i+1:]...)
	s.rev++
	return true
}

// Clear empties the collection and resets the id counter.
func (s *Store) Clear() {
	s.boxes = nil
	s.nextID = 0
	s.rev++
}

func (s *Store) Len() int { return len(s.boxes) }

// Boxes returns a copy of the collection in insertion order.
func (s *Store) Boxes() []Box { return append([]Box(nil), s.boxes...) }

// At returns the box at list position i.
func (s *Store) At(i int) (Box, bool) {
	if i < 0 || i >= len(s.boxes) {
		return Box{}, false
	}
	return s.boxes[i], true
}

// Get returns the first box with the given id.
func (s *Store) Get(id int) (Box, bool) {
	i := s.index(id)
	if i < 0 {
		return Box{}, false
	}
	return s.boxes[i], true
}

// IndexOf returns the list position of id, or -1.
func (s *Store) IndexOf(id int) int { return s.index(id) }

// SetClassID updates the class of box id.
func (s *Store) SetClassID(id, classID int) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.boxes[i].ClassID = classID
	s.rev++
	return true
}

// SetNormalized writes a projected geometry back into box id. It is the
// receiving end of every geometry mutation in the editor.
func (s *Store) SetNormalized(id int, n geom.Normalized) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.boxes[i].SetNormalized(n)
	s.rev++
	return true
}

func (s *Store) index(id int) int {
	for i := range s.boxes {
		if s.boxes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) bump(id int) {
	if id >= s.nextID {
		s.nextID = id + 1
	}
}
