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

const defaultConfigFile = ".config/devtrack/config.yaml"

// FilePath returns the config file location: DEVTRACK_CONFIG when set,
// otherwise ~/.config/devtrack/config.yaml.
func FilePath() string {
	if p := os.Getenv("DEVTRACK_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, defaultConfigFile)
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current value. A missing file is not an error.
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return Decode(cfg, data)
}

// Decode overlays YAML data onto cfg, rejecting unknown keys.
func Decode(cfg *Config, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}
