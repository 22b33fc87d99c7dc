package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/campaign-vault/backend/internal/encryption"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultJWTSecret = "change-me-in-production"
)

type Config struct {
	// Storage
	StorageDriver string // postgres/sqlite
	DatabaseURL   string
	SQLitePath    string
	MigrationsDir string
	RedisURL      string // optional

	// Crypto
	EncryptionKey string // 64 hex chars

	// Auth
	AccessPassword string
	JWTSecret      string
	JWTExpiration  time.Duration
	AuthRateLimit  int // attempts per minute per IP

	// Ingestion
	MaxUploadBytes   int
	MaxUploadRows    int
	FieldAliasesFile string

	// Server
	APIPort  string
	LogLevel string

	parseErrs []error
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.StorageDriver = strings.ToLower(getEnv("STORAGE_DRIVER", DriverPostgres))
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.SQLitePath = getEnv("SQLITE_PATH", "campaigns.db")
	cfg.MigrationsDir = getEnv("MIGRATIONS_DIR", "migrations")
	cfg.RedisURL = getEnv("REDIS_URL", "")

	cfg.EncryptionKey = getEnv("ENCRYPTION_KEY", "")

	cfg.AccessPassword = getEnv("ACCESS_PASSWORD", "")
	cfg.JWTSecret = getEnv("JWT_SECRET", defaultJWTSecret)
	cfg.JWTExpiration = time.Duration(cfg.getEnvInt("JWT_EXPIRATION_HOURS", 12)) * time.Hour
	cfg.AuthRateLimit = cfg.getEnvInt("AUTH_RATE_LIMIT", 10)

	cfg.MaxUploadBytes = cfg.getEnvInt("MAX_UPLOAD_BYTES", 10<<20)
	cfg.MaxUploadRows = cfg.getEnvInt("MAX_UPLOAD_ROWS", 50000)
	cfg.FieldAliasesFile = getEnv("FIELD_ALIASES_FILE", "")

	cfg.APIPort = getEnv("API_PORT", "5000")
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))

	return cfg
}

// Validate reports every setting that would stop the service from working.
// Binaries treat a non-nil result as fatal.
func (c *Config) Validate(log *zap.Logger) error {
	errs := append([]error(nil), c.parseErrs...)

	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres"))
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required when STORAGE_DRIVER=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not one of postgres, sqlite", c.StorageDriver))
	}

	if _, err := encryption.ParseHexKey(c.EncryptionKey); err != nil {
		errs = append(errs, fmt.Errorf("ENCRYPTION_KEY: %w", err))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.MaxUploadRows <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_ROWS must be positive"))
	}
	if c.JWTExpiration <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_HOURS must be positive"))
	}

	if c.AccessPassword == "" {
		log.Warn("ACCESS_PASSWORD is not set, the HTTP API will reject every login")
	}
	if c.JWTSecret == defaultJWTSecret {
		log.Warn("JWT_SECRET is default, change in production")
	}
	if c.RedisURL == "" {
		log.Info("REDIS_URL is not set, using in-process events and no login rate limit")
	}

	return errors.Join(errs...)
}

// NewLogger builds the process logger for LOG_LEVEL.
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.LogLevel == "debug" {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(c.LogLevel); err == nil {
		zc.Level = lvl
	}
	return zc.Build()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *Config) getEnvInt(key string, fallback int) int {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %q is not an integer", key, s))
		return fallback
	}
	return v
}
