package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Store     StoreConfig
	TLS       TLSConfig
	Telemetry TelemetryConfig
	Log       LogConfig
	Bank      BankConfig
	Seed      SeedConfig
	Reconcile ReconcileConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	AllowedHosts    []string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type StoreConfig struct {
	Driver     string
	BadgerPath string
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string // empty disables trace export
	MetricsPort  string
	SampleRatio  float64
}

type LogConfig struct {
	Level string
}

type BankConfig struct {
	Name string
}

type SeedConfig struct {
	DemoAccounts bool
}

type ReconcileConfig struct {
	Workers      int
	QueueSize    int
	Schedule     []string // HH:MM times of day; empty disables the in-process run
	RunOnStartup bool
}

func Load() (*Config, error) {

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	shutdownTimeout, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	maxOpenConns, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdleConns, err := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}
	connMaxLifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	reconcileWorkers, err := strconv.Atoi(getEnv("RECONCILE_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_WORKERS: %w", err)
	}
	reconcileQueueSize, err := strconv.Atoi(getEnv("RECONCILE_QUEUE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_QUEUE_SIZE: %w", err)
	}

	sampleRatio, err := strconv.ParseFloat(getEnv("OTEL_SAMPLE_RATIO", "1"), 64)
	if err != nil || sampleRatio < 0 || sampleRatio > 1 {
		return nil, fmt.Errorf("invalid OTEL_SAMPLE_RATIO: must be a number between 0 and 1")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "5000"),
			Host:            getEnv("HOST", "0.0.0.0"),
			AllowedHosts:    getListEnv("ALLOWED_HOSTS"),
			AllowedOrigins:  getListEnv("CORS_ALLOWED_ORIGINS"),
			ShutdownTimeout: shutdownTimeout,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "bank"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "bankapi"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns:    maxOpenConns,
			MaxIdleConns:    maxIdleConns,
			ConnMaxLifetime: connMaxLifetime,
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
			BadgerPath: getEnv("BADGER_PATH", "./data/badger"),
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "bankapi"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_ENDPOINT"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
			SampleRatio:  sampleRatio,
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
		Bank: BankConfig{
			Name: getEnv("BANK_NAME", "Simple Bank"),
		},
		Seed: SeedConfig{
			DemoAccounts: getBoolEnv("SEED_DEMO_ACCOUNTS", false),
		},
		Reconcile: ReconcileConfig{
			Workers:      reconcileWorkers,
			QueueSize:    reconcileQueueSize,
			Schedule:     getListEnv("RECONCILE_SCHEDULE"),
			RunOnStartup: getBoolEnv("RECONCILE_ON_STARTUP", false),
		},
	}

	switch cfg.Store.Driver {
	case DriverPostgres:
	case DriverBadger:
		if cfg.Store.BadgerPath == "" {
			return nil, fmt.Errorf("BADGER_PATH is required when STORE_DRIVER=badger")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q (want %s or %s)", cfg.Store.Driver, DriverPostgres, DriverBadger)
	}

	if cfg.Reconcile.Workers < 1 {
		return nil, fmt.Errorf("RECONCILE_WORKERS must be at least 1")
	}

	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return nil, fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if cfg.TLS.KeyPath == "" {
			return nil, fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

// getListEnv splits a comma-separated variable, dropping blank entries.
func getListEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
