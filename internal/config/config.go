package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"myconnectionsvr/authdemo/internal/storage"
)

type Config struct {
	HTTP            HTTPConfig
	Storage         StorageConfig
	Auth            AuthConfig
	FrontendDistDir string `env:"FRONTEND_DIST_DIR" envDefault:"./web/dist"`
	AuditLogFile    string `env:"AUDIT_LOG_FILE" envDefault:"./data/audit.log"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"20s"`
}

// StorageConfig selects the backend standing in for browser local storage.
type StorageConfig struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"file"`
	FilePath    string `env:"STORAGE_FILE" envDefault:"./data/storage.json"`
	SQLitePath  string `env:"STORAGE_SQLITE_PATH" envDefault:"./data/storage.db"`
	DatabaseURL string `env:"DATABASE_URL"`
}

type AuthConfig struct {
	Latency  time.Duration `env:"AUTH_LATENCY" envDefault:"500ms"`
	SeedDemo bool          `env:"AUTH_SEED_DEMO" envDefault:"true"`
}

func (s StorageConfig) Options() storage.Options {
	return storage.Options{
		Driver:      s.Driver,
		FilePath:    s.FilePath,
		SQLitePath:  s.SQLitePath,
		DatabaseURL: s.DatabaseURL,
	}
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))

	if cfg.HTTP.Addr == "" {
		return Config{}, fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be > 0")
	}
	if cfg.Auth.Latency < 0 {
		return Config{}, fmt.Errorf("AUTH_LATENCY must be >= 0")
	}

	switch cfg.Storage.Driver {
	case storage.DriverMemory:
	case storage.DriverFile:
		if cfg.Storage.FilePath == "" {
			return Config{}, fmt.Errorf("STORAGE_FILE must not be empty")
		}
	case storage.DriverSQLite:
		if cfg.Storage.SQLitePath == "" {
			return Config{}, fmt.Errorf("STORAGE_SQLITE_PATH must not be empty")
		}
	case storage.DriverPostgres:
		if cfg.Storage.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_DRIVER %q is not supported", cfg.Storage.Driver)
	}

	return cfg, nil
}
