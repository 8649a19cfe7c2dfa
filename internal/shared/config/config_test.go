package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "5000" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "5000")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Store.Driver != DriverPostgres {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, DriverPostgres)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 30s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Seed.DemoAccounts {
		t.Error("Seed.DemoAccounts should default to false")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoad_InvalidDBPort(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid DB_PORT, got nil")
	}
}

func TestLoad_StoreDriver(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr bool
	}{
		{"postgres", false},
		{"Badger", false},
		{"mongodb", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			t.Setenv("STORE_DRIVER", tt.driver)
			t.Setenv("BADGER_PATH", "/tmp/bank")

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && cfg.Store.BadgerPath != "/tmp/bank" {
				t.Errorf("Store.BadgerPath = %q, want /tmp/bank", cfg.Store.BadgerPath)
			}
		})
	}
}

func TestLoad_InvalidReconcileWorkers(t *testing.T) {
	t.Setenv("RECONCILE_WORKERS", "0")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for zero RECONCILE_WORKERS, got nil")
	}
}

func TestLoad_Telemetry(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		t.Errorf("Telemetry.OTLPEndpoint = %q, want empty", cfg.Telemetry.OTLPEndpoint)
	}
	if cfg.Telemetry.SampleRatio != 1 {
		t.Errorf("Telemetry.SampleRatio = %v, want 1", cfg.Telemetry.SampleRatio)
	}

	t.Setenv("OTEL_SAMPLE_RATIO", "0.1")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Telemetry.SampleRatio != 0.1 {
		t.Errorf("Telemetry.SampleRatio = %v, want 0.1", cfg.Telemetry.SampleRatio)
	}

	t.Setenv("OTEL_SAMPLE_RATIO", "1.5")
	if _, err := Load(); err == nil {
		t.Error("expected error for OTEL_SAMPLE_RATIO above 1")
	}
}

func TestLoad_ReconcileSchedule(t *testing.T) {
	t.Setenv("RECONCILE_SCHEDULE", "02:00, 14:30,")
	t.Setenv("RECONCILE_ON_STARTUP", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cfg.Reconcile.Schedule) != 2 || cfg.Reconcile.Schedule[1] != "14:30" {
		t.Errorf("Reconcile.Schedule = %v, want [02:00 14:30]", cfg.Reconcile.Schedule)
	}
	if !cfg.Reconcile.RunOnStartup {
		t.Error("Reconcile.RunOnStartup should be true")
	}
}

func TestLoad_TLSValidation(t *testing.T) {
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_PATH", "")
	t.Setenv("TLS_KEY_PATH", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for TLS enabled without cert path, got nil")
	}
}

func TestLoad_TLSValidation_MissingKeyPath(t *testing.T) {
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_PATH", "/path/to/cert")
	t.Setenv("TLS_KEY_PATH", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for TLS enabled without key path, got nil")
	}
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://example.com, http://localhost:3000,,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins length = %d, want 2", len(cfg.Server.AllowedOrigins))
	}
}

func TestLoad_BankAndSeed(t *testing.T) {
	t.Setenv("BANK_NAME", "First Bank")
	t.Setenv("SEED_DEMO_ACCOUNTS", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Bank.Name != "First Bank" {
		t.Errorf("Bank.Name = %q, want %q", cfg.Bank.Name, "First Bank")
	}
	if !cfg.Seed.DemoAccounts {
		t.Error("Seed.DemoAccounts should be true")
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		defVal   bool
		expected bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"invalid", true, true},   // returns default
		{"invalid", false, false}, // returns default
		{"", true, true},          // empty returns default
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			key := "TEST_BOOL_ENV"
			if tt.value == "" {
				os.Unsetenv(key)
			} else {
				t.Setenv(key, tt.value)
			}

			got := getBoolEnv(key, tt.defVal)
			if got != tt.expected {
				t.Errorf("getBoolEnv(%q, %v) = %v, want %v", tt.value, tt.defVal, got, tt.expected)
			}
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	got := cfg.ConnectionString()
	if got != expected {
		t.Errorf("ConnectionString() = %q, want %q", got, expected)
	}
}
