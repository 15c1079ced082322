// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Loader hydrates the configuration with env > file > default precedence.
type Loader struct {
	envPrefix string
	files     []string
}

// NewLoader prepares a loader reading envPrefix variables and files.
// Empty file paths are ignored.
func NewLoader(envPrefix string, files ...string) *Loader {
	return &Loader{
		envPrefix: envPrefix,
		files:     files,
	}
}

// Load assembles and validates the effective configuration.
func (l *Loader) Load(ctx context.Context) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(structToMap(DefaultConfig()), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	for _, path := range l.files {
		if path == "" {
			continue
		}

		if err := ctx.Err(); err != nil {
			return Config{}, err
		}

		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: file %s not found", path)
			}

			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}

		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if l.envPrefix != "" {
		transform := func(s string) string {
			// PLACECACHE_PROVIDER__API_KEY -> provider.apikey
			key := strings.TrimPrefix(s, l.envPrefix+"_")
			key = strings.ReplaceAll(key, "__", ".")
			key = strings.ReplaceAll(key, "_", "")

			return strings.ToLower(key)
		}

		if err := k.Load(env.Provider(l.envPrefix+"_", ".", transform), nil); err != nil {
			return Config{}, fmt.Errorf("config: load env: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.Provider.Name = strings.ToLower(strings.TrimSpace(cfg.Provider.Name))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// structToMap converts a Config into a map for the confmap provider.
func structToMap(cfg Config) map[string]any {
	return map[string]any{
		"cache": map[string]any{
			"path":        cfg.Cache.Path,
			"persisteach": cfg.Cache.PersistEach,
		},
		"provider": map[string]any{
			"name":           cfg.Provider.Name,
			"apikey":         cfg.Provider.APIKey,
			"keydisplayname": cfg.Provider.KeyDisplayName,
			"project":        cfg.Provider.Project,
			"baseurl":        cfg.Provider.BaseURL,
			"language":       cfg.Provider.Language,
			"region":         cfg.Provider.Region,
			"useragent":      cfg.Provider.UserAgent,
			"prefix":         cfg.Provider.Prefix,
			"timeout":        cfg.Provider.Timeout.String(),
			"ratelimit":      cfg.Provider.RateLimit,
		},
	}
}
