package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. TASKLY_DATABASE_URL.
const EnvPrefix = "TASKLY"

// defaults lists every key the loader knows about. Keys without a sensible
// default are present with an empty value so env binding still covers them.
var defaults = map[string]any{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.shutdown_timeout": "10s",

	"database.url":               "",
	"database.max_open_conns":    10,
	"database.max_idle_conns":    5,
	"database.conn_max_lifetime": "5m",

	"auth.jwt_secret":             "",
	"auth.token_lifetime_minutes": 10080,
	"auth.bcrypt_cost":            10,

	"storage.root":             "storage/app",
	"storage.public_base_url":  "/storage",
	"storage.max_upload_bytes": 10 << 20,

	"retention.enabled":     true,
	"retention.window":      "168h",
	"retention.run_at":      "00:00",
	"retention.timezone":    "UTC",
	"retention.max_runtime": "10m",
	"retention.batch_size":  100,
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone is not consulted by Unmarshal for keys that only
	// exist in the environment, so bind each one explicitly.
	for key := range defaults {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags on cfg and a few cross-field rules.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if cfg.Database.MaxIdleConns > cfg.Database.MaxOpenConns {
		return fmt.Errorf(
			"configuration validation failed: database.max_idle_conns (%d) exceeds database.max_open_conns (%d)",
			cfg.Database.MaxIdleConns,
			cfg.Database.MaxOpenConns,
		)
	}

	return nil
}
