package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/emvi-client/internal/flagx"
)

// fileConfig is the on-disk shape of the config file. Empty fields leave
// the current value untouched.
type fileConfig struct {
	AuthHost     string   `json:"auth_host" yaml:"auth_host"`
	APIHost      string   `json:"api_host" yaml:"api_host"`
	ClientID     string   `json:"client_id" yaml:"client_id"`
	ClientSecret string   `json:"client_secret" yaml:"client_secret"`
	Organization string   `json:"organization" yaml:"organization"`
	DatabasePath string   `json:"database_path" yaml:"database_path"`
	Timeout      Duration `json:"timeout" yaml:"timeout"`
	RateLimit    float64  `json:"rate_limit" yaml:"rate_limit"`
	LogLevel     string   `json:"log_level" yaml:"log_level"`
	LogFormat    string   `json:"log_format" yaml:"log_format"`
}

// Duration accepts either a Go duration string ("30s", "1m") or a number
// of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(n * float64(time.Second))
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		*d = Duration(n * float64(time.Second))
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

// parseFile overlays cfg with the file named by -c/-config. The format is
// chosen by extension: .yaml and .yml are YAML, anything else JSON.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	setString(&cfg.AuthHost, fc.AuthHost)
	setString(&cfg.APIHost, fc.APIHost)
	setString(&cfg.ClientID, fc.ClientID)
	setString(&cfg.ClientSecret, fc.ClientSecret)
	setString(&cfg.Organization, fc.Organization)
	setString(&cfg.DatabasePath, fc.DatabasePath)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	if fc.Timeout > 0 {
		cfg.Timeout = time.Duration(fc.Timeout)
	}
	if fc.RateLimit > 0 {
		cfg.RateLimit = fc.RateLimit
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
