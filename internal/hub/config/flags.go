package config

import (
	"flag"
	"os"
	"time"

	"github.com/ustczzh/AlephNote/internal/flagx"
)

// parseFlags populates hub Config fields from command-line flags.
//
// Supported flags:
//
//	-a string      gRPC bind address (e.g., ":50051")
//	-d string      PostgreSQL DSN
//	-s string      JWT HMAC secret key
//	-t int         token validity, hours
//	-l string      log level
//	-issue string  print an access token for the account and exit
func parseFlags(config *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	tokenValidity := fs.Int("t", int(config.TokenValidity.Hours()), "token validity (in hours)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.IssueFor, "issue", config.IssueFor, "issue an access token for the account and exit")

	if err := flagx.Parse(fs, os.Args[1:]); err != nil {
		panic(err)
	}

	config.TokenValidity = time.Duration(*tokenValidity) * time.Hour
}
