// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the placecache settings from defaults, an optional
// YAML file and PLACECACHE_ environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chiangyiyang/line-chat-llm-tutorial/gazetteer"
)

// EnvPrefix is the prefix of the environment variables read by Load.
const EnvPrefix = "PLACECACHE"

// Config holds every option shared by the commands.
type Config struct {
	Cache    CacheConfig    `koanf:"cache"`
	Provider ProviderConfig `koanf:"provider"`
}

// CacheConfig locates the cache file.
type CacheConfig struct {
	Path        string `koanf:"path"`
	PersistEach bool   `koanf:"persisteach"`
}

// ProviderConfig selects and tunes the resolution provider.
type ProviderConfig struct {
	Name           string        `koanf:"name"`
	APIKey         string        `koanf:"apikey"`
	KeyDisplayName string        `koanf:"keydisplayname"`
	Project        string        `koanf:"project"`
	BaseURL        string        `koanf:"baseurl"`
	Language       string        `koanf:"language"`
	Region         string        `koanf:"region"`
	UserAgent      string        `koanf:"useragent"`
	Prefix         string        `koanf:"prefix"`
	Timeout        time.Duration `koanf:"timeout"`
	RateLimit      float64       `koanf:"ratelimit"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderConfig{
			Name:           gazetteer.ProviderGoogle,
			KeyDisplayName: gazetteer.DefaultKeyDisplayName,
			Language:       "zh-TW",
			Region:         "tw",
			Timeout:        10 * time.Second,
		},
	}
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}

	switch strings.ToLower(strings.TrimSpace(c.Provider.Name)) {
	case gazetteer.ProviderGoogle, gazetteer.ProviderNominatim:
	default:
		return fmt.Errorf("config: provider.name unsupported: %s", c.Provider.Name)
	}

	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("config: provider.timeout invalid: %s", c.Provider.Timeout)
	}

	if c.Provider.RateLimit < 0 {
		return fmt.Errorf("config: provider.ratelimit invalid: %v", c.Provider.RateLimit)
	}

	return nil
}

// ResolverOptions maps the provider settings onto gazetteer options.
func (c *Config) ResolverOptions() gazetteer.ResolverOptions {
	return gazetteer.ResolverOptions{
		APIKey:    c.Provider.APIKey,
		BaseURL:   c.Provider.BaseURL,
		Language:  c.Provider.Language,
		Region:    c.Provider.Region,
		UserAgent: c.Provider.UserAgent,
		Timeout:   c.Provider.Timeout,
	}
}
