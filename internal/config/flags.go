package config

import (
	"flag"
	"os"
	"time"

	"github.com/ustczzh/AlephNote/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// See the package documentation for the flag list. Interval flags are
// whole seconds. It panics on malformed values.
func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFile, "f", cfg.LogFile, "log file (empty for stderr)")
	remoteTimeout := fs.Int("t", int(cfg.RemoteTimeout.Seconds()), "remote call timeout (in seconds)")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds, 0 disables)")

	if err := flagx.Parse(fs, os.Args[1:]); err != nil {
		panic(err)
	}

	cfg.RemoteTimeout = time.Duration(*remoteTimeout) * time.Second
	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
