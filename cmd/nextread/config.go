// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BackendConfig selects and configures the Ranking Store's kv.Store
// implementation.
type BackendConfig struct {
	// Kind is "badger" (default, embedded) or "redis".
	Kind string `yaml:"kind"`
	// RedisAddr/RedisDB configure a redis backend; ignored for badger.
	RedisAddr string `yaml:"redis_addr,omitempty"`
	RedisDB   int    `yaml:"redis_db,omitempty"`
}

// WeightsConfig is written to project.yaml by `nextread init`. No
// command reads it back: the Online Weight Tuner always selects among
// its fixed arm table in pkg/prediction/tuner.go.
type WeightsConfig struct {
	Recency     float64 `yaml:"recency"`
	Frequency   float64 `yaml:"frequency"`
	TagAffinity float64 `yaml:"tag_affinity"`
}

// PredictionConfig is written to project.yaml by `nextread init`. No
// command reads it back: the Prediction Engine's confidence floor, show
// threshold and finalize window are the fixed constants in
// pkg/prediction/engine.go, whatever values this section holds.
type PredictionConfig struct {
	ConfidenceFloor float64 `yaml:"confidence_floor"`
	ShowThreshold   float64 `yaml:"show_threshold"`
	FinalizeGraceS  int     `yaml:"finalize_grace_seconds"`
}

// IndexingConfig is the exclusion list `nextread init` writes to
// project.yaml. No command reads it back: the Symbol Index skips the
// fixed directory set in pkg/symbolindex/walker.go.
type IndexingConfig struct {
	Exclude []string `yaml:"exclude"`
}

// Config is the on-disk project configuration a `nextread init` writes
// and every other subcommand loads before talking to the daemon.
type Config struct {
	ProjectID string `yaml:"project_id"`
	DataDir   string `yaml:"data_dir"`
	HTTPAddr  string `yaml:"http_addr"`

	Backend    BackendConfig    `yaml:"backend"`
	Weights    WeightsConfig    `yaml:"weights"`
	Prediction PredictionConfig `yaml:"prediction"`
	Indexing   IndexingConfig   `yaml:"indexing"`
}

// defaultExcludeGlobs is the exclusion list `nextread init` writes. It
// is not the walker's list (defaultExcludeDirs in
// pkg/symbolindex/walker.go differs), and no command reads it back, so
// editing it in project.yaml does not change what is indexed.
var defaultExcludeGlobs = []string{
	".git", "node_modules", "vendor", "dist", "build", ".next", ".venv",
}

// DefaultConfig returns the configuration `nextread init` writes for a
// freshly registered project rooted at root.
func DefaultConfig(projectID, root string) Config {
	return Config{
		ProjectID: projectID,
		DataDir:   filepath.Join(defaultDataDir(), projectID),
		HTTPAddr:  "127.0.0.1:8751",
		Backend:   BackendConfig{Kind: "badger"},
		Weights:   WeightsConfig{Recency: 0.4, Frequency: 0.3, TagAffinity: 0.3},
		Prediction: PredictionConfig{
			ConfidenceFloor: 0.40,
			ShowThreshold:   0.60,
			FinalizeGraceS:  5 * 60,
		},
		Indexing: IndexingConfig{Exclude: append([]string(nil), defaultExcludeGlobs...)},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".nextread", "data")
	}
	return filepath.Join(home, ".nextread", "data")
}

// RegistryPath is the process-wide projects.json every 'nextread
// serve' supervises, independent of which project's directory it was
// started from ( "a projects.json registry of
// {uuid, path, enabled}").
func RegistryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".nextread", "projects.json")
	}
	return filepath.Join(home, ".nextread", "projects.json")
}

// ConfigDir returns the directory a project's config file lives in,
// given the project root (the current working directory `nextread
// init` was run from).
func ConfigDir(root string) string {
	return filepath.Join(root, ".nextread")
}

// ConfigPath returns the config file path for a project root.
func ConfigPath(root string) string {
	return filepath.Join(ConfigDir(root), "project.yaml")
}

// SaveConfig writes cfg to root's config path, creating .nextread/ if
// needed.
func SaveConfig(root string, cfg Config) error {
	if err := os.MkdirAll(ConfigDir(root), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(root), data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadConfig reads the config at configPath, or at ConfigPath(".") if
// configPath is empty.
func LoadConfig(configPath string) (Config, error) {
	if configPath == "" {
		configPath = ConfigPath(".")
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w (run 'nextread init' first)", configPath, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", configPath, err)
	}
	if cfg.ProjectID == "" {
		return Config{}, fmt.Errorf("config %s: project_id is required", configPath)
	}
	return cfg, nil
}
