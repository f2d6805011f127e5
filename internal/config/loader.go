package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the environment variables lexaid reads.
const envPrefix = "LEXAI_"

// maxConfigFileSize bounds config file reads.
const maxConfigFileSize = 1024 * 1024 // 1MB

// DefaultPath returns the default config file location,
// ~/.config/lexai/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "lexai", "config.yaml"), nil
}

// Load loads configuration from a YAML file, then overrides with
// LEXAI_-prefixed environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (LEXAI_STORE_LOCATION, LEXAI_CHUNKING_SIZE, ...)
//  2. YAML config file (~/.config/lexai/config.yaml by default)
//  3. Hardcoded defaults
//
// A missing config file is not an error; defaults and environment
// variables alone are enough to run.
//
// Environment variables map to config keys by splitting on the first
// underscore after the prefix:
//
//	LEXAI_STORE_LOCATION    -> store.location
//	LEXAI_EMBEDDINGS_MODEL  -> embeddings.model
//	LEXAI_CHUNKING_SIZE     -> chunking.size
//	LEXAI_UPLOAD_DIR        -> upload.dir
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		var err error
		configPath, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	if info, err := os.Stat(configPath); err == nil {
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", configPath, maxConfigFileSize)
		}
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Split on the first underscore only: section stays intact, the
	// remainder keeps its underscores as the field name.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
