/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"path/filepath"

	"yololabel/internal/config"
	"yololabel/internal/workspace"
)

// Options configures the desktop shell.
type Options struct {
	Config  config.AppConfig
	Session *workspace.Session
	// Open is an image file or folder loaded once the window is up.
	Open string
}

// saveMessage is the transient confirmation shown after a save.
func saveMessage(n int) string {
	if n == 1 {
		return "Saved 1 box"
	}
	return fmt.Sprintf("Saved %d boxes", n)
}

// windowTitle renders "YOLO Label - <image> [i/n]".
func windowTitle(image, counter string) string {
	if image == "" {
		return "YOLO Label"
	}
	if counter == "" || counter == "0/0" {
		return "YOLO Label - " + filepath.Base(image)
	}
	return fmt.Sprintf("YOLO Label - %s [%s]", filepath.Base(image), counter)
}
