// Package config loads process configuration for the AlephNote CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   data directory (settings, database, secret key)
//	-l string   log level: debug, info, warn, error
//	-f string   log file; empty logs to stderr
//	-t int      remote call timeout (seconds)
//	-i int      periodic sync interval (seconds, 0 disables)
//
// # JSON schema
//
// Durations use timex.Duration, so "30s" and integer nanoseconds both work:
//
//	{
//	  "data_dir": "/home/me/.config/alephnote",
//	  "log_level": "debug",
//	  "remote_timeout": "30s",
//	  "sync_interval": "5m"
//	}
//
// User-editable settings (provider, credentials, sort mode) do not live
// here; see package appsettings.
package config
