package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ustczzh/AlephNote/internal/flagx"
	"github.com/ustczzh/AlephNote/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// leave the current Config values untouched.
type JsonConfig struct {
	DataDir       *string         `json:"data_dir"`
	SettingsFile  *string         `json:"settings_file"`
	DatabaseFile  *string         `json:"database_file"`
	SecretFile    *string         `json:"secret_file"`
	LogLevel      *string         `json:"log_level"`
	LogFile       *string         `json:"log_file"`
	RemoteTimeout *timex.Duration `json:"remote_timeout"`
	SyncInterval  *timex.Duration `json:"sync_interval"`
}

// parseJson overlays cfg with the JSON file named by -c/-config, if any.
// It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.SettingsFile, jc.SettingsFile)
	setString(&cfg.DatabaseFile, jc.DatabaseFile)
	setString(&cfg.SecretFile, jc.SecretFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFile, jc.LogFile)
	if jc.RemoteTimeout != nil {
		cfg.RemoteTimeout = time.Duration(jc.RemoteTimeout.Duration)
	}
	if jc.SyncInterval != nil {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
