// Package config declares the process-wide configuration surface: the
// cobra/viper-bound options every subcommand shares, following the
// teacher's cmd/root.go globalOptionsType pattern.
package config

import (
	"fmt"
	"go/types"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stellar/go/support/config"
	"github.com/stellar/go/support/log"
)

// GlobalOptions holds the values every subcommand (serve, migrate, seed)
// reads from. Fields are populated by config.ConfigOptions.SetValues()
// during each command's PersistentPreRun.
type GlobalOptions struct {
	Environment string
	LogLevel    logrus.Level

	Port        int
	DatabaseURL string
	AdminAPIKey string

	QueueTimeoutSeconds int
	MaxConcurrentJobs   int

	// RedisURL and PollIntervalMS are bound directly through viper rather
	// than cobra flags: they're read by the queue broker and the worker
	// pool, neither of which needs a CLI override, only an env var.
	RedisURL       string
	PollIntervalMS int
}

const (
	DefaultRedisURL       = "redis://127.0.0.1:6379"
	DefaultPollIntervalMS = 1000
)

// Options is the shared instance populated by the root command's
// PersistentPreRun and read by every subcommand.
var Options GlobalOptions

// ConfigOptions returns the cobra/viper-bound options for the fields that
// benefit from an explicit flag (teacher's cmd/root.go + cmd/serve.go
// pattern): environment, log level, port, database URL, admin key, and
// the queue/worker tuning knobs.
func ConfigOptions(opts *GlobalOptions) config.ConfigOptions {
	return config.ConfigOptions{
		{
			Name:        "environment",
			Usage:       `The environment the service is running in. Example: "development", "staging", "production".`,
			OptType:     types.String,
			FlagDefault: "development",
			ConfigKey:   &opts.Environment,
			Required:    true,
		},
		{
			Name:           "rust-log",
			Usage:          `Opaque logger filter, following the style of the original RUST_LOG variable. Examples: "info", "debug", "warn".`,
			OptType:        types.String,
			FlagDefault:    "info",
			ConfigKey:      &opts.LogLevel,
			CustomSetValue: SetConfigOptionRustLog,
			Required:       false,
		},
		{
			Name:        "port",
			Usage:       "Port where the HTTP API will be listening on",
			OptType:     types.Int,
			FlagDefault: 8080,
			ConfigKey:   &opts.Port,
			Required:    true,
		},
		{
			Name:      "database-url",
			Usage:     "Postgres connection URL",
			OptType:   types.String,
			ConfigKey: &opts.DatabaseURL,
			Required:  true,
		},
		{
			Name:           "admin-api-key",
			Usage:          "Shared secret used to authenticate the admin principal. Must be set outside development.",
			OptType:        types.String,
			ConfigKey:      &opts.AdminAPIKey,
			CustomSetValue: SetConfigOptionAdminAPIKey(opts),
			Required:       false,
		},
		{
			Name:        "queue-timeout-seconds",
			Usage:       "How long a worker blocks waiting for the next queued job before polling again",
			OptType:     types.Int,
			FlagDefault: 30,
			ConfigKey:   &opts.QueueTimeoutSeconds,
			Required:    true,
		},
		{
			Name:        "max-concurrent-jobs",
			Usage:       "Maximum number of jobs a single instance claims and runs at once",
			OptType:     types.Int,
			FlagDefault: 4,
			ConfigKey:   &opts.MaxConcurrentJobs,
			Required:    true,
		},
	}
}

// SetConfigOptionRustLog parses the opaque RUST_LOG-style filter into a
// logrus.Level, mirroring the teacher's SetConfigOptionLogLevel. Anything
// it can't parse falls back to Info rather than failing startup, since the
// original filter syntax (module=level,module=level) is richer than a
// single level and is here treated as a hint, not a strict grammar.
func SetConfigOptionRustLog(co *config.ConfigOption) error {
	raw := viper.GetString(co.Name)

	level, err := logrus.ParseLevel(strings.ToLower(raw))
	if err != nil {
		level = logrus.InfoLevel
	}

	key, ok := co.ConfigKey.(*logrus.Level)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T", co.ConfigKey)
	}
	*key = level
	log.DefaultLogger.SetLevel(level)

	return nil
}

// SetConfigOptionAdminAPIKey enforces that the admin key is present
// outside development, since the spec requires it but the flag itself
// can't be marked Required (development must be able to omit it).
func SetConfigOptionAdminAPIKey(opts *GlobalOptions) func(co *config.ConfigOption) error {
	return func(co *config.ConfigOption) error {
		key, ok := co.ConfigKey.(*string)
		if !ok {
			return fmt.Errorf("configKey has an invalid type %T", co.ConfigKey)
		}
		*key = viper.GetString(co.Name)

		if *key == "" && opts.Environment != "development" {
			return fmt.Errorf("admin-api-key must be set outside the development environment")
		}
		return nil
	}
}

// BindRuntimeDefaults wires the env vars that are read directly through
// viper instead of a cobra flag, and must be called once the environment
// is known (after the root command's PersistentPreRun has run).
func BindRuntimeDefaults(opts *GlobalOptions) error {
	viper.SetDefault("REDIS_URL", DefaultRedisURL)
	viper.SetDefault("POLL_INTERVAL_MS", DefaultPollIntervalMS)
	if err := viper.BindEnv("REDIS_URL"); err != nil {
		return fmt.Errorf("binding REDIS_URL: %w", err)
	}
	if err := viper.BindEnv("POLL_INTERVAL_MS"); err != nil {
		return fmt.Errorf("binding POLL_INTERVAL_MS: %w", err)
	}

	opts.RedisURL = viper.GetString("REDIS_URL")
	opts.PollIntervalMS = viper.GetInt("POLL_INTERVAL_MS")
	return nil
}
