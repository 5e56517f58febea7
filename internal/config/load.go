package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory and in
// ConfigDir.
const FileName = "kccsim.yaml"

// EnvConfig names an environment variable holding a config file path. The
// -config flag wins over it.
const EnvConfig = "KCCSIM_CONFIG"

// Load builds the configuration from defaults, then the first config file
// found, then command-line flags, and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	if path := resolveConfigPath(); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// resolveConfigPath picks the config file: -config, then $KCCSIM_CONFIG,
// then the search path. An explicit path is returned even if it does not
// exist so that Load reports it.
func resolveConfigPath() string {
	if p := ConfigPath(); p != "" {
		return p
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return findConfigFile()
}

// searchPaths lists the implicit config locations in lookup order.
func searchPaths() []string {
	paths := []string{FileName}
	if dir := ConfigDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, FileName))
	}
	return paths
}

func findConfigFile() string {
	for _, path := range searchPaths() {
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user directory for kccsim settings.
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "midgard-kcc")
}

// loadFromFile merges a YAML file over cfg. Unknown keys are rejected so a
// misspelled tunable does not silently fall back to its default. A relative
// scene path is taken relative to the config file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	scenePath := cfg.Scene.Path
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if p := cfg.Scene.Path; p != scenePath && p != "" && !filepath.IsAbs(p) {
		cfg.Scene.Path = filepath.Join(filepath.Dir(path), p)
	}
	return nil
}
