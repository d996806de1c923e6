package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/emvi-client/pkg/emvi"
)

// Config holds runtime settings for the emvi CLI.
type Config struct {
	AuthHost     string
	APIHost      string
	ClientID     string
	ClientSecret string
	Organization string

	// DatabasePath is the SQLite file the session token is kept in.
	DatabasePath string
	// Timeout bounds every HTTP request, including token refreshes.
	Timeout time.Duration
	// RateLimit caps search requests per second; 0 disables the limit.
	RateLimit float64

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.AuthHost = emvi.DefaultAuthHost
	c.APIHost = emvi.DefaultAPIHost
	c.DatabasePath = defaultDatabasePath()
	c.Timeout = emvi.DefaultHTTPTimeout
	c.LogLevel = "warn"
	c.LogFormat = "text"
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "emvi.db"
	}
	return filepath.Join(dir, "emvi", "emvi.db")
}

// LoadConfig builds a Config from defaults, then the config file named by
// -c/-config (if any), then command-line flags. Later sources win.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
