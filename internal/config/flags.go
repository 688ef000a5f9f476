package config

import (
	"flag"
	"os"
	"time"

	"github.com/smile200420ff/Main-bot/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-t string   Telegram Bot API token
//	-d string   PostgreSQL DSN
//	-a string   administrator handle, e.g. "@escrow_admin"
//	-v string   payee VPA for payment links
//	-n string   payee display name
//	-r int      rate-limit window, seconds
//	-l string   security audit log file
//	-p int      Telegram long-poll timeout, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Interval
// flags are accepted as integers in seconds and then converted to
// time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-t", "-d", "-a", "-v", "-n", "-r", "-l", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.BotToken, "t", config.BotToken, "Telegram bot token")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AdminHandle, "a", config.AdminHandle, "admin handle")
	fs.StringVar(&config.UPIAddress, "v", config.UPIAddress, "UPI payee address")
	fs.StringVar(&config.UPIPayeeName, "n", config.UPIPayeeName, "UPI payee name")

	rateLimitSeconds := fs.Int("r", int(config.RateLimitWindow.Seconds()), "rate limit window (in seconds)")

	fs.StringVar(&config.AuditLogPath, "l", config.AuditLogPath, "audit log path")
	fs.IntVar(&config.LongPollTimeout, "p", config.LongPollTimeout, "long poll timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RateLimitWindow = time.Duration(*rateLimitSeconds) * time.Second
}
