/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"yololabel/internal/labels"
)

// ZipOptions controls dataset archives.
type ZipOptions struct {
	// IncludeImages copies image files into images/. Without it only labels/ and manifest.json are written.
	IncludeImages bool
}

// WriteDatasetZip packs readable entries of m as images/<name>, labels/<stem>.txt
// (clamped YOLO lines) and manifest.json. It returns the number of label files written.
func WriteDatasetZip(outPath string, m Manifest, opt ZipOptions) (n int, err error) {
	zw, f, err := createZip(outPath)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := zw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("finalize zip: %w", cerr)
		}
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	for _, e := range m.Images {
		if e.Error != "" {
			continue
		}
		var buf bytes.Buffer
		if err := labels.Write(&buf, e.LabelBoxes()); err != nil {
			return n, fmt.Errorf("encode labels %s: %w", e.Labels, err)
		}
		if err := addZipFile(zw, "labels/"+stem(e.Path)+".txt", buf.Bytes()); err != nil {
			return n, err
		}
		n++
		if opt.IncludeImages {
			if err := addZipFromDisk(zw, "images/"+filepath.Base(e.Path), e.Path); err != nil {
				return n, err
			}
		}
	}
	var mb bytes.Buffer
	if err := WriteJSON(&mb, m); err != nil {
		return n, err
	}
	if err := addZipFile(zw, "manifest.json", mb.Bytes()); err != nil {
		return n, err
	}
	return n, nil
}

func createZip(outPath string) (*zip.Writer, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create zip: %w", err)
	}
	return zip.NewWriter(f), f, nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func addZipFromDisk(zw *zip.Writer, name, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()
	// images are already compressed
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", name, err)
	}
	_, err = io.Copy(w, src)
	return err
}
