/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import "testing"

func TestSaveMessage(t *testing.T) {
	cases := map[int]string{0: "Saved 0 boxes", 1: "Saved 1 box", 7: "Saved 7 boxes"}
	for n, want := range cases {
		if got := saveMessage(n); got != want {
			t.Fatalf("saveMessage(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestWindowTitle(t *testing.T) {
	if got := windowTitle("", "0/0"); got != "YOLO Label" {
		t.Fatalf("empty title: %q", got)
	}
	if got := windowTitle("/data/img/a.jpg", "0/0"); got != "YOLO Label - a.jpg" {
		t.Fatalf("single image title: %q", got)
	}
	if got := windowTitle("/data/img/a.jpg", "2/5"); got != "YOLO Label - a.jpg [2/5]" {
		t.Fatalf("folder title: %q", got)
	}
}
