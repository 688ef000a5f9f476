package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/smile200420ff/Main-bot/internal/flagx"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. Interval fields are plain integers in seconds and are
// converted to time.Duration when copied into the runtime Config.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files.
type JsonConfig struct {
	BotToken         string `json:"bot_token"`
	DatabaseDSN      string `json:"database_dsn"`
	AdminHandle      string `json:"admin_user"`
	UPIAddress       string `json:"upi_address"`
	UPIPayeeName     string `json:"upi_payee_name"`
	RateLimitSeconds int    `json:"rate_limit_seconds"`
	AuditLogPath     string `json:"audit_log_path"`
	LongPollTimeout  int    `json:"long_poll_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. Only fields present in the file
// override the current values, so the JSON overlay composes with defaults
// and later sources.
//
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlags()

	// nothing to load
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

	if c.BotToken != "" {
		config.BotToken = c.BotToken
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.AdminHandle != "" {
		config.AdminHandle = c.AdminHandle
	}
	if c.UPIAddress != "" {
		config.UPIAddress = c.UPIAddress
	}
	if c.UPIPayeeName != "" {
		config.UPIPayeeName = c.UPIPayeeName
	}
	if c.RateLimitSeconds > 0 {
		config.RateLimitWindow = time.Duration(c.RateLimitSeconds) * time.Second
	}
	if c.AuditLogPath != "" {
		config.AuditLogPath = c.AuditLogPath
	}
	if c.LongPollTimeout > 0 {
		config.LongPollTimeout = c.LongPollTimeout
	}
}
