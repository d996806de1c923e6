package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/emvi-client/internal/flagx"
)

var ownFlags = []string{"-a", "-p", "-i", "-o", "-s", "-d", "-t", "-r", "-l", "-f"}

// parseFlags overlays cfg with command-line flags:
//
//	-a string   auth host
//	-p string   API host
//	-i string   client ID
//	-o string   organization
//	-s string   client secret
//	-d string   database path
//	-t int      request timeout (seconds)
//	-r float    search requests per second, 0 for unlimited
//	-l string   log level (debug, info, warn, error)
//	-f string   log format (text, json)
//
// Arguments not listed above are ignored, see flagx.FilterArgs. Without -t
// the timeout from earlier layers is kept as is, sub-second values included.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("emvi", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.AuthHost, "a", cfg.AuthHost, "auth host")
	fs.StringVar(&cfg.APIHost, "p", cfg.APIHost, "API host")
	fs.StringVar(&cfg.ClientID, "i", cfg.ClientID, "client ID")
	fs.StringVar(&cfg.Organization, "o", cfg.Organization, "organization")
	fs.StringVar(&cfg.ClientSecret, "s", cfg.ClientSecret, "client secret")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "database path")
	timeout := fs.Int("t", int(cfg.Timeout.Seconds()), "request timeout (in seconds)")
	fs.Float64Var(&cfg.RateLimit, "r", cfg.RateLimit, "search requests per second")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format")

	if err := fs.Parse(flagx.FilterArgs(args, ownFlags)); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if !isSet(fs, "t") {
		return nil
	}
	if *timeout <= 0 {
		return fmt.Errorf("invalid flags: timeout must be positive, got %d", *timeout)
	}
	cfg.Timeout = time.Duration(*timeout) * time.Second
	return nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
