package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ustczzh/AlephNote/internal/flagx"
	"github.com/ustczzh/AlephNote/internal/timex"
)

// JsonConfig is the on-disk shape of the hub configuration. Empty values
// keep the defaults.
type JsonConfig struct {
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      string         `json:"database_dsn"`
	SecretKey        string         `json:"secret_key"`
	TokenValidity    timex.Duration `json:"token_validity"`
	LogLevel         string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config into config. It panics if the
// file cannot be read or parsed.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.EndpointAddrGRPC != "" {
		config.EndpointAddrGRPC = c.EndpointAddrGRPC
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.TokenValidity.Duration != 0 {
		config.TokenValidity = time.Duration(c.TokenValidity.Duration)
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
}
