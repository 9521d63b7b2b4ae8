/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dataset

import "fmt"

// Cursor walks a fixed image list with wraparound in both directions.
type Cursor struct {
	items []string
	pos   int
}

func NewCursor(items []string) *Cursor {
	return &Cursor{items: append([]string(nil), items...)}
}

func (c *Cursor) Len() int { return len(c.items) }

// Index returns the 0-based position.
func (c *Cursor) Index() int { return c.pos }

// Current returns the item at the cursor.
func (c *Cursor) Current() (string, bool) {
	if len(c.items) == 0 {
		return "", false
	}
	return c.items[c.pos], true
}

// Next advances one item, wrapping to the first after the last.
func (c *Cursor) Next() (string, bool) { return c.step(1) }

// Prev moves back one item, wrapping to the last before the first.
func (c *Cursor) Prev() (string, bool) { return c.step(-1) }

func (c *Cursor) step(d int) (string, bool) {
	n := len(c.items)
	if n == 0 {
		return "", false
	}
	c.pos = ((c.pos+d)%n + n) % n
	return c.items[c.pos], true
}

// Label renders "current/total", or "0/0" when empty.
func (c *Cursor) Label() string {
	if c == nil || len(c.items) == 0 {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d", c.pos+1, len(c.items))
}
