package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("API_PORT", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")

	cfg := Load()
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, "5000", cfg.APIPort)
	assert.Equal(t, 10<<20, cfg.MaxUploadBytes)
	assert.Equal(t, 50000, cfg.MaxUploadRows)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name: "postgres ok",
			env:  map[string]string{"STORAGE_DRIVER": "postgres", "DATABASE_URL": "postgres://x", "ENCRYPTION_KEY": testKey},
		},
		{
			name: "sqlite ok without database url",
			env:  map[string]string{"STORAGE_DRIVER": "SQLite", "SQLITE_PATH": "/tmp/c.db", "ENCRYPTION_KEY": testKey},
		},
		{
			name:    "postgres without dsn",
			env:     map[string]string{"STORAGE_DRIVER": "postgres", "ENCRYPTION_KEY": testKey},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"STORAGE_DRIVER": "mysql", "ENCRYPTION_KEY": testKey},
			wantErr: "STORAGE_DRIVER",
		},
		{
			name:    "short key",
			env:     map[string]string{"STORAGE_DRIVER": "sqlite", "ENCRYPTION_KEY": "abcd"},
			wantErr: "ENCRYPTION_KEY",
		},
		{
			name:    "non hex key",
			env:     map[string]string{"STORAGE_DRIVER": "sqlite", "ENCRYPTION_KEY": strings.Repeat("zz", 32)},
			wantErr: "ENCRYPTION_KEY",
		},
		{
			name:    "malformed integer",
			env:     map[string]string{"STORAGE_DRIVER": "sqlite", "ENCRYPTION_KEY": testKey, "MAX_UPLOAD_ROWS": "lots"},
			wantErr: "MAX_UPLOAD_ROWS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"STORAGE_DRIVER", "DATABASE_URL", "SQLITE_PATH", "ENCRYPTION_KEY", "MAX_UPLOAD_ROWS"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := Load().Validate(zap.NewNop())
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
