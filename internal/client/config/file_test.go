package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func baseConfig() *Config {
	return &Config{
		AuthHost:     "defaults-auth",
		APIHost:      "defaults-api",
		DatabasePath: "defaults.db",
		Timeout:      42 * time.Second,
		LogLevel:     "warn",
		LogFormat:    "text",
	}
}

func TestParseFile(t *testing.T) {
	full := &Config{
		AuthHost:     "https://auth.example",
		APIHost:      "https://api.example",
		ClientID:     "cid",
		ClientSecret: "secret",
		Organization: "acme",
		DatabasePath: "/var/lib/emvi.db",
		Timeout:      10 * time.Second,
		RateLimit:    5,
		LogLevel:     "debug",
		LogFormat:    "json",
	}

	tests := []struct {
		name    string
		file    string
		content string
		want    *Config
	}{
		{
			name: "json with duration string",
			file: "cfg.json",
			content: `{
				"auth_host": "https://auth.example", "api_host": "https://api.example",
				"client_id": "cid", "client_secret": "secret", "organization": "acme",
				"database_path": "/var/lib/emvi.db", "timeout": "10s", "rate_limit": 5,
				"log_level": "debug", "log_format": "json"
			}`,
			want: full,
		},
		{
			name: "yaml with seconds",
			file: "cfg.yml",
			content: `
auth_host: https://auth.example
api_host: https://api.example
client_id: cid
client_secret: secret
organization: acme
database_path: /var/lib/emvi.db
timeout: 10
rate_limit: 5
log_level: debug
log_format: json
`,
			want: full,
		},
		{
			name:    "partial file keeps other values",
			file:    "partial.json",
			content: `{"organization": "acme", "timeout": 1.5}`,
			want: func() *Config {
				c := baseConfig()
				c.Organization = "acme"
				c.Timeout = 1500 * time.Millisecond
				return c
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			cfg := baseConfig()

			require.NoError(t, parseFile(cfg, []string{"-config", path}))
			assert.Empty(t, cmp.Diff(tt.want, cfg))
		})
	}
}

func TestParseFile_NoFlagNoChanges(t *testing.T) {
	cfg := baseConfig()
	require.NoError(t, parseFile(cfg, []string{"-i", "cid"}))
	assert.Equal(t, baseConfig(), cfg)
}

func TestParseFile_Invalid(t *testing.T) {
	tests := []struct {
		name, file, content string
	}{
		{name: "broken json", file: "bad.json", content: `{ this is not valid json`},
		{name: "broken yaml", file: "bad.yaml", content: "client_id: [unterminated"},
		{name: "bad duration", file: "bad.json", content: `{"timeout": "soon"}`},
		{name: "bad yaml duration", file: "bad.yaml", content: "timeout: soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			err := parseFile(baseConfig(), []string{"-c", path})
			require.ErrorContains(t, err, "failed to parse config file")
		})
	}
}
