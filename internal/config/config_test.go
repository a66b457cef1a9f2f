package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090

simulator:
  symbols: ["NIFTY"]
  base_prices:
    NIFTY: 22000
  speed: 25

wallet:
  initial_balance: 250000

storage:
  hot:
    dsn: "/tmp/papertrade/state.db"
  cold:
    type: localfs
    path: "/tmp/papertrade/archive"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Simulator.Speed != 25 {
		t.Errorf("expected speed 25, got %f", cfg.Simulator.Speed)
	}
	if cfg.Wallet.InitialBalance != 250000 {
		t.Errorf("expected initial balance 250000, got %f", cfg.Wallet.InitialBalance)
	}
	if cfg.Storage.Cold.Type != "localfs" {
		t.Errorf("expected localfs, got %s", cfg.Storage.Cold.Type)
	}
	// Values absent from the file keep their defaults.
	if cfg.Wallet.MarginFactor != 1.0 {
		t.Errorf("expected default margin factor 1.0, got %f", cfg.Wallet.MarginFactor)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Simulator.Speed != 1 {
		t.Errorf("expected default speed 1, got %f", cfg.Simulator.Speed)
	}
	if cfg.Simulator.HistorySize != 500 {
		t.Errorf("expected default history size 500, got %d", cfg.Simulator.HistorySize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "invalid port - zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port - too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "no symbols",
			mutate:  func(c *Config) { c.Simulator.Symbols = nil },
			wantErr: true,
		},
		{
			name: "symbol without base price",
			mutate: func(c *Config) {
				c.Simulator.Symbols = append(c.Simulator.Symbols, "FINNIFTY")
			},
			wantErr: true,
		},
		{
			name:    "volatility too large",
			mutate:  func(c *Config) { c.Simulator.Volatility = 1.5 },
			wantErr: true,
		},
		{
			name:    "zero speed",
			mutate:  func(c *Config) { c.Simulator.Speed = 0 },
			wantErr: true,
		},
		{
			name:    "zero balance",
			mutate:  func(c *Config) { c.Wallet.InitialBalance = 0 },
			wantErr: true,
		},
		{
			name:    "negative margin factor",
			mutate:  func(c *Config) { c.Wallet.MarginFactor = -1 },
			wantErr: true,
		},
		{
			name:    "negative daily loss limit",
			mutate:  func(c *Config) { c.Risk.MaxDailyLoss = -100 },
			wantErr: true,
		},
		{
			name:    "unknown cold storage type",
			mutate:  func(c *Config) { c.Storage.Cold.Type = "tape" },
			wantErr: true,
		},
		{
			name: "s3 without bucket",
			mutate: func(c *Config) {
				c.Storage.Cold.Type = "s3"
				c.Storage.Cold.S3.Bucket = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
