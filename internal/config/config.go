// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "consensus-trader/internal/errors"
	"consensus-trader/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Engine     EngineConfig     `mapstructure:"engine"`
	Strategies StrategiesConfig `mapstructure:"strategies"`
	Universe   UniverseConfig   `mapstructure:"universe"`
	Data       DataConfig       `mapstructure:"data"`
	Store      StoreConfig      `mapstructure:"store"`
	Live       LiveConfig       `mapstructure:"live"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Credentials Credentials     `mapstructure:"-"` // Loaded from environment
}

// EngineConfig holds decision engine parameters.
type EngineConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	NotionalFrac   float64 `mapstructure:"notional_frac_per_trade"`
}

// StrategiesConfig holds per-strategy parameter sets and the active set.
type StrategiesConfig struct {
	// Set lists the producer kinds instantiated per symbol, in order.
	Set       []string        `mapstructure:"set"`
	RSI       RSIConfig       `mapstructure:"rsi"`
	Bollinger BollingerConfig `mapstructure:"bollinger"`
	ZScore    ZScoreConfig    `mapstructure:"zscore"`
	MACross   MACrossConfig   `mapstructure:"macross"`
}

// RSIConfig holds momentum-threshold producer parameters.
type RSIConfig struct {
	Period     int     `mapstructure:"period"`
	Overbought float64 `mapstructure:"overbought"`
	Oversold   float64 `mapstructure:"oversold"`
}

// BollingerConfig holds band-mean-reversion producer parameters.
type BollingerConfig struct {
	Period int     `mapstructure:"period"`
	Std    float64 `mapstructure:"std"`
}

// ZScoreConfig holds z-score-mean-reversion producer parameters.
type ZScoreConfig struct {
	Period    int     `mapstructure:"period"`
	Threshold float64 `mapstructure:"threshold"`
}

// MACrossConfig holds moving-average-crossover producer parameters.
type MACrossConfig struct {
	ShortWindow int `mapstructure:"short_window"`
	LongWindow  int `mapstructure:"long_window"`
}

// UniverseConfig lists the symbols the engine trades.
type UniverseConfig struct {
	Stocks []string `mapstructure:"stocks"`
	Crypto []string `mapstructure:"crypto"`
}

// All returns the combined stock and crypto universe.
func (u UniverseConfig) All() []string {
	out := make([]string, 0, len(u.Stocks)+len(u.Crypto))
	out = append(out, u.Stocks...)
	out = append(out, u.Crypto...)
	return out
}

// DataConfig holds historical data and export paths.
type DataConfig struct {
	Dir       string `mapstructure:"dir"`
	OutputDir string `mapstructure:"output_dir"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LiveConfig holds live trading configuration.
type LiveConfig struct {
	MetricsAddr string        `mapstructure:"metrics_addr"`
	QueueSize   int           `mapstructure:"queue_size"`
	Kite        KiteConfig    `mapstructure:"kite"`
	Binance     BinanceConfig `mapstructure:"binance"`
}

// KiteConfig holds the equity websocket feed configuration.
type KiteConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Instrument token per symbol, required by the Kite websocket protocol.
	Tokens map[string]uint32 `mapstructure:"tokens"`
}

// BinanceConfig holds the crypto websocket feed configuration.
type BinanceConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// Credentials holds API credentials loaded from the environment.
type Credentials struct {
	KiteAPIKey      string
	KiteAccessToken string
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "consensus-trader")
}

// Load reads configuration from the given path (or the default locations when
// empty), applies defaults, and loads credentials from the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultConfigDir())
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, apperrors.Wrap(err, "reading config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, "unmarshaling config")
	}

	// API credentials come from .env / environment, never the config file.
	_ = godotenv.Load()
	cfg.Credentials = Credentials{
		KiteAPIKey:      os.Getenv("KITE_API_KEY"),
		KiteAccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.initial_capital", 100000.0)
	v.SetDefault("engine.notional_frac_per_trade", 0.02)

	v.SetDefault("strategies.set", []string{"rsi", "bollinger", "zscore"})
	v.SetDefault("strategies.rsi.period", 3)
	v.SetDefault("strategies.rsi.overbought", 80.0)
	v.SetDefault("strategies.rsi.oversold", 20.0)
	v.SetDefault("strategies.bollinger.period", 20)
	v.SetDefault("strategies.bollinger.std", 2.0)
	v.SetDefault("strategies.zscore.period", 60)
	v.SetDefault("strategies.zscore.threshold", 2.0)
	v.SetDefault("strategies.macross.short_window", 5)
	v.SetDefault("strategies.macross.long_window", 20)

	v.SetDefault("data.dir", "data")
	v.SetDefault("data.output_dir", "output")

	v.SetDefault("store.path", filepath.Join(DefaultConfigDir(), "trader.db"))

	v.SetDefault("live.metrics_addr", ":9090")
	v.SetDefault("live.queue_size", 1024)
	v.SetDefault("live.kite.enabled", false)
	v.SetDefault("live.binance.enabled", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(DefaultConfigDir(), "logs", "trader.log"))
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Engine.InitialCapital <= 0 {
		return fmt.Errorf("%w: engine.initial_capital = %v", apperrors.ErrConfigInvalid, c.Engine.InitialCapital)
	}
	if c.Engine.NotionalFrac <= 0 || c.Engine.NotionalFrac > 1 {
		return fmt.Errorf("%w: engine.notional_frac_per_trade = %v", apperrors.ErrConfigInvalid, c.Engine.NotionalFrac)
	}
	if len(c.Strategies.Set) == 0 {
		return fmt.Errorf("%w: strategies.set is empty", apperrors.ErrConfigInvalid)
	}
	for _, kind := range c.Strategies.Set {
		if _, ok := strategy.Canonical(kind); !ok {
			return fmt.Errorf("%w: unknown strategy kind %q", apperrors.ErrConfigInvalid, kind)
		}
	}
	return nil
}
