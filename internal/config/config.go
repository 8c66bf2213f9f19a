package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage"   validate:"required"`
	Retention RetentionConfig `mapstructure:"retention" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=525600"`
	BCryptCost           int    `mapstructure:"bcrypt_cost"            validate:"gte=4,lte=31"`
}

// StorageConfig controls where attachment blobs live and how they are addressed.
type StorageConfig struct {
	// Root is the directory all blob paths are relative to.
	Root string `mapstructure:"root" validate:"required"`
	// PublicBaseURL is prefixed to stored paths when resolving attachment URLs.
	PublicBaseURL  string `mapstructure:"public_base_url"  validate:"required"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" validate:"gt=0"`
}

// RetentionConfig drives the daily purge of archived tasks.
type RetentionConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Window     time.Duration `mapstructure:"window"      validate:"gt=0"`
	RunAt      string        `mapstructure:"run_at"      validate:"required,datetime=15:04"`
	Timezone   string        `mapstructure:"timezone"    validate:"required,timezone"`
	MaxRuntime time.Duration `mapstructure:"max_runtime" validate:"gt=0"`
	BatchSize  int           `mapstructure:"batch_size"  validate:"gt=0,lte=1000"`
}
