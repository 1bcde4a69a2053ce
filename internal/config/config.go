// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"docvc/internal/hash"
)

type Config struct {
	// Document is the working file this repository versions, relative to
	// the repository root.
	Document string `json:"document"`

	VersionsDir string `json:"versions_dir"`
	ExportsDir  string `json:"exports_dir"`

	// DiffTool is the external comparison command tried before the
	// built-in engine.
	DiffTool          string `json:"diff_tool"`
	ForceFallbackDiff bool   `json:"force_fallback_diff"`

	// Normalization selects how bytes are transformed before change
	// detection: "none" or "whitespace".
	Normalization string `json:"normalization"`

	LogLevel           string `json:"log_level"`
	LockTimeoutSeconds int    `json:"lock_timeout_seconds"`
}

func Default() *Config {
	return &Config{
		VersionsDir:        "versions",
		ExportsDir:         "exports",
		DiffTool:           "diff",
		Normalization:      "none",
		LogLevel:           "warn",
		LockTimeoutSeconds: 5,
	}
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	config.applyDefaults()

	return config, nil
}

func Save(path string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// NormalizationPolicy parses the configured change-detection policy.
func (c *Config) NormalizationPolicy() (hash.Normalization, error) {
	return hash.ParseNormalization(c.Normalization)
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.VersionsDir == "" {
		c.VersionsDir = def.VersionsDir
	}
	if c.ExportsDir == "" {
		c.ExportsDir = def.ExportsDir
	}
	if c.DiffTool == "" {
		c.DiffTool = def.DiffTool
	}
	if c.Normalization == "" {
		c.Normalization = def.Normalization
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LockTimeoutSeconds <= 0 {
		c.LockTimeoutSeconds = def.LockTimeoutSeconds
	}
}
