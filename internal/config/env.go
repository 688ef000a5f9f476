package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays Config fields from environment variables. Only
// variables that are actually set override the current values.
//
// Recognized variables:
//
//	BOT_TOKEN           Telegram Bot API token
//	DATABASE_DSN        PostgreSQL DSN
//	ADMIN_USER          administrator handle, e.g. "@escrow_admin"
//	UPI_ADDRESS         payee VPA for payment links
//	UPI_PAYEE_NAME      payee display name
//	RATE_LIMIT_SECONDS  rate-limit window, seconds
//	AUDIT_LOG_PATH      security audit log file
//	LONG_POLL_TIMEOUT   Telegram long-poll timeout, seconds
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("BOT_TOKEN"); ok {
		config.BotToken = v
	}
	if v, ok := os.LookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("ADMIN_USER"); ok {
		config.AdminHandle = v
	}
	if v, ok := os.LookupEnv("UPI_ADDRESS"); ok {
		config.UPIAddress = v
	}
	if v, ok := os.LookupEnv("UPI_PAYEE_NAME"); ok {
		config.UPIPayeeName = v
	}
	if v, ok := os.LookupEnv("RATE_LIMIT_SECONDS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.RateLimitWindow = time.Duration(n) * time.Second
		}
	}
	if v, ok := os.LookupEnv("AUDIT_LOG_PATH"); ok {
		config.AuditLogPath = v
	}
	if v, ok := os.LookupEnv("LONG_POLL_TIMEOUT"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.LongPollTimeout = n
		}
	}
}
