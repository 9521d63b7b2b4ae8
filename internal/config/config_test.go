/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

type memStore map[string]string

func (m memStore) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}
func (m memStore) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m memStore) Delete(service, key string) error {
	if _, ok := m[service+"/"+key]; !ok {
		return keyring.ErrNotFound
	}
	delete(m, service+"/"+key)
	return nil
}

// isolate points the config dir at a temp dir and stubs the keyring.
func isolate(t *testing.T) (string, memStore) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	old := tokenStore
	ms := memStore{}
	tokenStore = ms
	t.Cleanup(func() { tokenStore = old })
	return dir, ms
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, secret, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if secret != "" {
		t.Fatalf("expected empty secret, got %q", secret)
	}
	if cfg.Editor.MinBoxSize != 20 || cfg.Editor.HandleSize != 8 || cfg.Editor.NewBoxFraction != 0.2 {
		t.Fatalf("unexpected editor defaults: %#v", cfg.Editor)
	}
	if !cfg.Index.Enabled || cfg.Backend.Enabled {
		t.Fatalf("unexpected index/backend defaults: %#v %#v", cfg.Index, cfg.Backend)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir, ms := isolate(t)
	cfg := Defaults()
	cfg.Labels.SaveDir = "/data/labels"
	cfg.Labels.BackupOnSave = true
	cfg.Backend.Enabled = true
	cfg.Backend.DSN = "postgres://yll@localhost/yll"
	cfg.Editor.MinBoxSize = 12
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if ms[keyringService+"/"+keyringPassword] != "s3cret" {
		t.Fatalf("secret not stored in keyring")
	}
	got, secret, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if secret != "s3cret" {
		t.Fatalf("secret = %q", secret)
	}
	if got.Labels != cfg.Labels || got.Backend != cfg.Backend || got.Editor.MinBoxSize != 12 {
		t.Fatalf("round trip mismatch: %#v", got)
	}
	if err := ClearSecret(); err != nil {
		t.Fatalf("ClearSecret() error: %v", err)
	}
	if err := ClearSecret(); err != nil {
		t.Fatalf("ClearSecret() on missing secret: %v", err)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	dir, _ := isolate(t)
	data := []byte("labels:\n  save_dir: /tmp/out\neditor:\n  handle_size: -3\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Labels.SaveDir != "/tmp/out" {
		t.Fatalf("save_dir = %q", cfg.Labels.SaveDir)
	}
	if !cfg.Index.Enabled {
		t.Fatalf("absent index section should keep default enabled")
	}
	if cfg.Editor.HandleSize != 8 || cfg.Editor.MinBoxSize != 20 {
		t.Fatalf("invalid editor values not normalized: %#v", cfg.Editor)
	}
}

func TestEnvOverridesEditorAndLabels(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSaveDir, "/env/labels")
	t.Setenv(EnvMinBoxSize, "32")
	t.Setenv(EnvBackendEnabled, "yes")
	t.Setenv(EnvBackendDSN, "postgres://env")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Labels.SaveDir != "/env/labels" || cfg.Editor.MinBoxSize != 32 {
		t.Fatalf("env overrides not applied: %#v %#v", cfg.Labels, cfg.Editor)
	}
	if !cfg.Backend.Enabled || cfg.Backend.DSN != "postgres://env" {
		t.Fatalf("backend overrides not applied: %#v", cfg.Backend)
	}
	if env, ok := EnvOverrideFor("labels.save_dir"); !ok || env != EnvSaveDir {
		t.Fatalf("EnvOverrideFor(labels.save_dir) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("logging.file"); ok {
		t.Fatalf("logging.file is not overridden")
	}
	if _, ok := EnvOverrideFor("nope"); ok {
		t.Fatalf("unknown key reported as overridden")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = " DEBUG "
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/yll.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/yll.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/yll.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/yll.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestInvalidMinBoxSizeEnvFallsBack(t *testing.T) {
	isolate(t)
	t.Setenv(EnvMinBoxSize, "-1")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.MinBoxSize != 20 {
		t.Fatalf("MinBoxSize = %v, want default 20", cfg.Editor.MinBoxSize)
	}
}
