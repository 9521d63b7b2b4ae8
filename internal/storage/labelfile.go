/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"yololabel/internal/labels"
)

// BackupsDirName is the folder (inside the label directory) receiving .bak copies.
const BackupsDirName = "backups"

// SaveOptions controls SaveLabels.
type SaveOptions struct {
	// Backup copies an existing label file to backups/<name>.<stamp>.bak before replacing it.
	Backup bool
}

// ImageRecord is the label set of one image together with its pixel extent.
type ImageRecord struct {
	Path   string
	Width  int
	Height int
	Boxes  []labels.Box
}

// LoadLabels reads the label file at path. A missing file yields an empty set and no error.
// Parse failures are returned as-is so callers can match labels.ErrUnparseableNumber.
func LoadLabels(path string) ([]labels.Box, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	boxes, err := labels.Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return boxes, nil
}

// SaveLabels writes boxes to path, clamping every value to [0,1].
// The write replaces the previous file atomically; an empty set produces an empty file.
func SaveLabels(path string, boxes []labels.Box, opts SaveOptions) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("label path is required")
	}
	var buf bytes.Buffer
	if err := labels.Write(&buf, boxes); err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create label dir: %w", err)
	}

	if opts.Backup {
		if _, statErr := os.Stat(path); statErr == nil {
			stamp := time.Now().Format("20060102-150405")
			bpath := filepath.Join(dir, BackupsDirName, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
			if cerr := copyFile(path, bpath); cerr != nil {
				return fmt.Errorf("backup current labels: %w", cerr)
			}
		}
	}

	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, buf.Bytes()); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp labels: %w", werr)
	}
	// Windows rename does not replace an existing target
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace labels: %w", rerr)
	}
	return nil
}

// LatestBackup returns the newest .bak copy of the label file at path.
func LatestBackup(path string) (string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return "", fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return "", errors.New("no backups found")
	}
	sort.Strings(candidates) // stamp sorts lexicographically
	return candidates[len(candidates)-1], nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src to dst, creating dst's parent and overwriting dst.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sf.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
