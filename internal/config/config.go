// Package config loads the runtime settings of the showcase server from
// defaults, an optional config.yml, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds runtime settings for the showcase server.
type Config struct {
	AppPort        string
	LogLevel       string
	CORSOrigins    string
	RequestTimeout time.Duration

	Database DatabaseConfig
	Auth     AuthConfig
	Storage  StorageConfig

	// RabbitMQURL enables project events when non-empty.
	RabbitMQURL string
}

// DatabaseConfig selects the GORM dialector and its DSN.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// AuthConfig controls session token issuance.
//
// Fields:
//   - JWTSecret: HMAC secret for signing session tokens (HS256).
//   - TokenTTL: lifetime of an issued session token.
//   - CookieName: name of the HTTP-only cookie carrying the token.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	CookieName string
}

// StorageConfig configures the upload backend.
//
// Fields:
//   - Backend: "local" (filesystem under LocalDir) or "s3".
//   - MaxUploadBytes: ceiling for a single uploaded file.
//   - LocalDir / PublicPath: directory written to and URL prefix it is served under.
//   - S3*: bucket, region, endpoint and static credentials of an S3-compatible store.
//   - S3PublicURL: base URL returned to clients; defaults to <endpoint>/<bucket>.
type StorageConfig struct {
	Backend        string
	MaxUploadBytes int64
	LocalDir       string
	PublicPath     string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3PublicURL    string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "showcase.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("SESSION_COOKIE", "session_token")
	v.SetDefault("STORAGE_BACKEND", StorageLocal)
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("STORAGE_LOCAL_DIR", "public/uploads")
	v.SetDefault("STORAGE_PUBLIC_PATH", "/uploads")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_PUBLIC_URL", "")
	v.SetDefault("RABBITMQ_URL", "")
}

// Load reads .env (if any), config.yml (if any) and the environment into a
// validated Config.
func Load(v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	SetDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper builds a Config from values already present in v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:        v.GetString("APP_PORT"),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		CORSOrigins:    v.GetString("CORS_ORIGINS"),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Auth: AuthConfig{
			JWTSecret:  v.GetString("JWT_SECRET"),
			TokenTTL:   v.GetDuration("TOKEN_TTL"),
			CookieName: v.GetString("SESSION_COOKIE"),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(v.GetString("STORAGE_BACKEND")),
			MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
			LocalDir:       v.GetString("STORAGE_LOCAL_DIR"),
			PublicPath:     v.GetString("STORAGE_PUBLIC_PATH"),
			S3Bucket:       v.GetString("S3_BUCKET"),
			S3Region:       v.GetString("S3_REGION"),
			S3Endpoint:     v.GetString("S3_ENDPOINT"),
			S3AccessKey:    v.GetString("S3_ACCESS_KEY"),
			S3SecretKey:    v.GetString("S3_SECRET_KEY"),
			S3PublicURL:    v.GetString("S3_PUBLIC_URL"),
		},
		RabbitMQURL: v.GetString("RABBITMQ_URL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set"))
	}
	if c.Storage.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			errs = append(errs, errors.New("STORAGE_LOCAL_DIR must be set for local storage"))
		}
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET must be set for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
