// Package config loads runtime configuration for the emvi CLI.
//
// # Sources and precedence
//
//  1. Built-in defaults, see (*Config).LoadDefaults.
//  2. Optional config file given with -c or -config.
//  3. Command-line flags, which override everything else.
//
// # Config file
//
// Files ending in .yaml or .yml are read as YAML, anything else as JSON.
// Durations are either strings like "30s" or a number of seconds:
//
//	auth_host: https://auth.emvi.com
//	api_host: https://api.emvi.com
//	client_id: my-client
//	organization: my-orga
//	database_path: /home/me/.config/emvi/emvi.db
//	timeout: 30s
//	rate_limit: 5
//	log_level: info
//	log_format: json
//
// The client secret may be stored in the file as client_secret; when it is
// missing everywhere the CLI asks for it.
package config
