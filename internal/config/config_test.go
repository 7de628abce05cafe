package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.Set("JWT_SECRET", "test_jwt_secret")
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(newViper(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, StorageLocal, cfg.Storage.Backend)
	assert.Equal(t, "/uploads", cfg.Storage.PublicPath)
	assert.Equal(t, "session_token", cfg.Auth.CookieName)
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestFromViper_Overrides(t *testing.T) {
	cfg, err := FromViper(newViper(map[string]any{
		"DATABASE_DRIVER": "POSTGRES",
		"DATABASE_DSN":    "host=db user=app",
		"TOKEN_TTL":       "90m",
		"STORAGE_BACKEND": "s3",
		"S3_BUCKET":       "showcase",
	}))
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, StorageS3, cfg.Storage.Backend)
	assert.Equal(t, "showcase", cfg.Storage.S3Bucket)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		wantErr   string
	}{
		{"missing secret", map[string]any{"JWT_SECRET": "  "}, "JWT_SECRET"},
		{"unknown driver", map[string]any{"DATABASE_DRIVER": "mysql"}, "DATABASE_DRIVER"},
		{"unknown backend", map[string]any{"STORAGE_BACKEND": "ftp"}, "STORAGE_BACKEND"},
		{"s3 without bucket", map[string]any{"STORAGE_BACKEND": "s3"}, "S3_BUCKET"},
		{"zero upload limit", map[string]any{"MAX_UPLOAD_BYTES": 0}, "MAX_UPLOAD_BYTES"},
		{"negative ttl", map[string]any{"TOKEN_TTL": "-1h"}, "TOKEN_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromViper(newViper(tt.overrides))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
