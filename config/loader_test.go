// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "placecache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestLoader(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) []string
		wantErr string
		assert  func(t *testing.T, cfg Config)
	}{
		{
			name: "returns defaults when no overrides",
			setup: func(_ *testing.T) []string {
				return nil
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name: "merges file overrides",
			setup: func(t *testing.T) []string {
				return []string{writeYAML(t, "cache:\n  path: /tmp/places.csv\nprovider:\n  name: nominatim\n  timeout: 3s\n")}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, "/tmp/places.csv", cfg.Cache.Path)
				require.Equal(t, "nominatim", cfg.Provider.Name)
				require.Equal(t, 3*time.Second, cfg.Provider.Timeout)
				require.Equal(t, "zh-TW", cfg.Provider.Language)
			},
		},
		{
			name: "prefers env overrides",
			setup: func(t *testing.T) []string {
				t.Setenv("PLACECACHE_PROVIDER__API_KEY", "from-env")
				t.Setenv("PLACECACHE_PROVIDER__PREFIX", "台南市")
				t.Setenv("PLACECACHE_CACHE__PERSIST_EACH", "true")

				return []string{writeYAML(t, "provider:\n  apikey: from-file\n")}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, "from-env", cfg.Provider.APIKey)
				require.Equal(t, "台南市", cfg.Provider.Prefix)
				require.True(t, cfg.Cache.PersistEach)
			},
		},
		{
			name: "skips empty file paths",
			setup: func(_ *testing.T) []string {
				return []string{""}
			},
			assert: func(t *testing.T, cfg Config) {
				require.Equal(t, "google", cfg.Provider.Name)
			},
		},
		{
			name: "fails on missing file",
			setup: func(t *testing.T) []string {
				return []string{filepath.Join(t.TempDir(), "missing.yaml")}
			},
			wantErr: "not found",
		},
		{
			name: "rejects unknown provider",
			setup: func(t *testing.T) []string {
				t.Setenv("PLACECACHE_PROVIDER__NAME", "bing")

				return nil
			},
			wantErr: "provider.name unsupported",
		},
		{
			name: "rejects negative rate limit",
			setup: func(t *testing.T) []string {
				return []string{writeYAML(t, "provider:\n  ratelimit: -1\n")}
			},
			wantErr: "provider.ratelimit invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := tt.setup(t)

			cfg, err := NewLoader(EnvPrefix, files...).Load(context.Background())
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			tt.assert(t, cfg)
		})
	}
}

func TestLoaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(EnvPrefix, writeYAML(t, "cache:\n  path: x\n")).Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Provider.Timeout = 0
	require.ErrorContains(t, cfg.Validate(), "provider.timeout invalid")

	var nilCfg *Config
	require.Error(t, nilCfg.Validate())
}

func TestResolverOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider.APIKey = "k"
	cfg.Provider.BaseURL = "http://localhost"

	opts := cfg.ResolverOptions()
	require.Equal(t, "k", opts.APIKey)
	require.Equal(t, "http://localhost", opts.BaseURL)
	require.Equal(t, "tw", opts.Region)
	require.Equal(t, 10*time.Second, opts.Timeout)
}
