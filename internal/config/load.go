package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable consulted for a config path
// when -config is not given.
const EnvConfig = "MESHLETC_CONFIG"

const (
	localFile = "meshletc.yaml"
	userFile  = "config.yaml"
)

// Load resolves the effective settings: defaults, then the config file, then
// command-line flags. Any failure after a file was read names that file, so a
// bad budget points at where it came from.
func Load() (*Config, error) {
	cfg := Default()

	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath picks the file Load reads. A path named by flag or
// environment must exist; the search locations are optional.
func resolveConfigPath() (string, error) {
	for _, explicit := range []string{ConfigPath(), os.Getenv(EnvConfig)} {
		if explicit == "" {
			continue
		}
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config %s: %w", explicit, err)
		}
		return explicit, nil
	}
	return findConfigFile(), nil
}

// findConfigFile returns the first regular file among the working directory
// and the user config directory, or "" when neither has one.
func findConfigFile() string {
	for _, path := range []string{localFile, UserConfigPath()} {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user meshletc directory. It falls back to the
// temp directory when the platform has no user config location.
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "meshletc")
}

// UserConfigPath is the config file inside ConfigDir.
func UserConfigPath() string {
	return filepath.Join(ConfigDir(), userFile)
}

// loadFromFile overlays the YAML document at path onto cfg. Unknown keys are
// rejected so a misspelled budget does not silently fall back to its default.
// An empty file leaves cfg unchanged.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
