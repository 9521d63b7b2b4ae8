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
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	Theme        string `yaml:"theme"` // "system" | "light" | "dark"
	LastImageDir string `yaml:"last_image_dir"`
}

type EditorConfig struct {
	MinBoxSize     float64 `yaml:"min_box_size"`
	HandleSize     float64 `yaml:"handle_size"`
	NewBoxFraction float64 `yaml:"new_box_fraction"`
	ZoomMin        float64 `yaml:"zoom_min"`
	ZoomMax        float64 `yaml:"zoom_max"`
	ZoomStep       float64 `yaml:"zoom_step"`
}

type LabelsConfig struct {
	SaveDir      string `yaml:"save_dir"`
	BackupOnSave bool   `yaml:"backup_on_save"`
}

type IndexConfig struct {
	Enabled bool `yaml:"enabled"`
}

type BackendConfig struct {
	Enabled bool `yaml:"enabled"`
	// DSN without password; the password lives in the OS keychain.
	DSN string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Labels        LabelsConfig  `yaml:"labels"`
	Index         IndexConfig   `yaml:"index"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Editor: EditorConfig{
			MinBoxSize:     20,
			HandleSize:     8,
			NewBoxFraction: 0.2,
			ZoomMin:        0.2,
			ZoomMax:        5.0,
			ZoomStep:       1.1,
		},
		Index:   IndexConfig{Enabled: true},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir      = "YLL_CONFIG_DIR"
	EnvSaveDir        = "YLL_SAVE_DIR"
	EnvMinBoxSize     = "YLL_MIN_BOX_SIZE"
	EnvBackendDSN     = "YLL_BACKEND_DSN"
	EnvBackendEnabled = "YLL_BACKEND_ENABLED"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "YLL_LOG_LEVEL"
	EnvLogFormat = "YLL_LOG_FORMAT"
	EnvLogSource = "YLL_LOG_SOURCE"
	EnvLogFile   = "YLL_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService  = "YOLOLabel"
	keyringPassword = "backend_password"
)

// tokenStore abstracts the keyring so tests can stub it.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path. YLL_CONFIG_DIR replaces the directory.
func ConfigPath() (string, error) {
	if d := strings.TrimSpace(os.Getenv(EnvConfigDir)); d != "" {
		return filepath.Join(d, "config.yaml"), nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "YOLOLabel")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "YOLOLabel")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "yololabel")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// The backend password is read from the keyring and returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		// decode over defaults so absent keys keep their default
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	cfg.Editor = cfg.Editor.normalized()
	// missing or unavailable keyring yields an empty secret
	secret, _ := tokenStore.Get(keyringService, keyringPassword)
	return cfg, secret, nil
}

// Save writes the user config YAML and persists the secret into the OS keyring (if non-empty).
func Save(cfg AppConfig, secret string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if secret != "" {
		if err := tokenStore.Set(keyringService, keyringPassword, secret); err != nil {
			return err
		}
	}
	return nil
}

// ClearSecret removes the backend password from the keyring.
func ClearSecret() error {
	if err := tokenStore.Delete(keyringService, keyringPassword); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// normalized replaces out-of-range editor values with their defaults.
func (e EditorConfig) normalized() EditorConfig {
	def := Defaults().Editor
	if e.MinBoxSize <= 0 {
		e.MinBoxSize = def.MinBoxSize
	}
	if e.HandleSize <= 0 {
		e.HandleSize = def.HandleSize
	}
	if e.NewBoxFraction <= 0 || e.NewBoxFraction > 1 {
		e.NewBoxFraction = def.NewBoxFraction
	}
	if e.ZoomMin <= 0 || e.ZoomMax <= e.ZoomMin {
		e.ZoomMin, e.ZoomMax = def.ZoomMin, def.ZoomMax
	}
	if e.ZoomStep <= 1 {
		e.ZoomStep = def.ZoomStep
	}
	return e
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	dst.General.LastImageDir = strings.TrimSpace(src.General.LastImageDir)
	// editor values are normalized after overrides
	dst.Editor = src.Editor
	dst.Labels.SaveDir = strings.TrimSpace(src.Labels.SaveDir)
	dst.Labels.BackupOnSave = src.Labels.BackupOnSave
	dst.Index.Enabled = src.Index.Enabled
	dst.Backend.Enabled = src.Backend.Enabled
	dst.Backend.DSN = strings.TrimSpace(src.Backend.DSN)
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvSaveDir)); v != "" {
		cfg.Labels.SaveDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMinBoxSize)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Editor.MinBoxSize = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendDSN)); v != "" {
		cfg.Backend.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendEnabled)); v != "" {
		cfg.Backend.Enabled = truthy(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"labels.save_dir":     EnvSaveDir,
	"editor.min_box_size": EnvMinBoxSize,
	"backend.dsn":         EnvBackendDSN,
	"backend.enabled":     EnvBackendEnabled,
	"logging.level":       EnvLogLevel,
	"logging.format":      EnvLogFormat,
	"logging.source":      EnvLogSource,
	"logging.file":        EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envByKey[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
