package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/TalariManohar018/papertrade/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// SimulatorConfig controls the synthetic candle generator.
type SimulatorConfig struct {
	Symbols        []string           `mapstructure:"symbols"`
	BasePrices     map[string]float64 `mapstructure:"base_prices"`
	Volatility     float64            `mapstructure:"volatility"`
	BaseIntervalMS int                `mapstructure:"base_interval_ms"`
	Speed          float64            `mapstructure:"speed"`
	HistorySize    int                `mapstructure:"history_size"`
	Timeframe      string             `mapstructure:"timeframe"`
}

// WalletConfig seeds the paper wallet and its execution costs.
type WalletConfig struct {
	InitialBalance float64 `mapstructure:"initial_balance"`
	MarginFactor   float64 `mapstructure:"margin_factor"`
	SlippagePct    float64 `mapstructure:"slippage_pct"`
	CommissionPct  float64 `mapstructure:"commission_pct"`
}

// RiskConfig holds account-wide trading limits.
type RiskConfig struct {
	MaxDailyLoss         float64  `mapstructure:"max_daily_loss"`
	MaxTradesPerDay      int      `mapstructure:"max_trades_per_day"`
	MaxExposurePerSymbol float64  `mapstructure:"max_exposure_per_symbol"`
	TradingDays          []string `mapstructure:"trading_days"`
}

type StorageConfig struct {
	Hot  HotStorageConfig  `mapstructure:"hot"`
	Cold ColdStorageConfig `mapstructure:"cold"`
}

type HotStorageConfig struct {
	// DSN is a sqlite path, or "memory" for the in-memory store.
	DSN string `mapstructure:"dsn"`
}

type ColdStorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// StreamConfig holds websocket fan-out settings.
type StreamConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Simulator: SimulatorConfig{
			Symbols:        []string{"NIFTY", "BANKNIFTY"},
			BasePrices:     map[string]float64{"NIFTY": 22000, "BANKNIFTY": 48000},
			Volatility:     0.002,
			BaseIntervalMS: 60000,
			Speed:          1,
			HistorySize:    500,
			Timeframe:      "1m",
		},
		Wallet: WalletConfig{
			InitialBalance: 100000,
			MarginFactor:   1.0,
			SlippagePct:    0.0005,
			CommissionPct:  0.0003,
		},
		Risk: RiskConfig{
			MaxDailyLoss:    5000,
			MaxTradesPerDay: 10,
			TradingDays: []string{
				"Monday", "Tuesday", "Wednesday", "Thursday", "Friday",
			},
		},
		Storage: StorageConfig{
			Hot: HotStorageConfig{
				DSN: "papertrade.db",
			},
			Cold: ColdStorageConfig{
				Type: "localfs",
				Path: "data",
			},
		},
		Stream: StreamConfig{
			Enabled: true,
			Path:    "/ws",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if len(c.Simulator.Symbols) == 0 {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("simulator requires at least one symbol"))
	}
	for _, sym := range c.Simulator.Symbols {
		if c.Simulator.BasePrices[sym] <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("symbol %s needs a positive base price", sym))
		}
	}
	if c.Simulator.Volatility <= 0 || c.Simulator.Volatility >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("volatility must be in (0, 1), got %f", c.Simulator.Volatility))
	}
	if c.Simulator.Speed <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("speed must be positive, got %f", c.Simulator.Speed))
	}

	if c.Wallet.InitialBalance <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_balance must be positive, got %f", c.Wallet.InitialBalance))
	}
	if c.Wallet.MarginFactor <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("margin_factor must be positive, got %f", c.Wallet.MarginFactor))
	}
	if c.Wallet.SlippagePct < 0 || c.Wallet.CommissionPct < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("slippage_pct and commission_pct cannot be negative"))
	}

	if c.Risk.MaxDailyLoss < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_daily_loss cannot be negative, got %f", c.Risk.MaxDailyLoss))
	}
	if c.Risk.MaxTradesPerDay < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_trades_per_day cannot be negative, got %d", c.Risk.MaxTradesPerDay))
	}

	switch c.Storage.Cold.Type {
	case "", "localfs", "s3":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown cold storage type %q", c.Storage.Cold.Type))
	}
	if c.Storage.Cold.Type == "s3" && c.Storage.Cold.S3.Bucket == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("s3 bucket required when cold storage type is s3"))
	}

	return nil
}
