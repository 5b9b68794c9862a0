package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/notify"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

// EnvPrefix namespaces environment overrides, e.g. OPTIONBOOK_SERVER_PORT.
const EnvPrefix = "OPTIONBOOK"

type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Pricing greeks.Params `mapstructure:"pricing"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Feeds   FeedsConfig   `mapstructure:"feeds"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Export  ExportConfig  `mapstructure:"export"`
	Server  ServerConfig  `mapstructure:"server"`
	WS      WSConfig      `mapstructure:"ws"`
	Logging LoggingConfig `mapstructure:"logging"`
	Notify  notify.Config `mapstructure:"notify"`
}

type SourceConfig struct {
	Mode          string        `mapstructure:"mode"` // "live" or "archive"
	URL           string        `mapstructure:"url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	RatePerSecond int           `mapstructure:"rate_per_second"`
}

type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type FeedsConfig struct {
	BTC string `mapstructure:"btc"`
	ETH string `mapstructure:"eth"`
}

// Feeds converts the configured addresses for filtering.
func (f FeedsConfig) Feeds() orderbook.Feeds {
	return orderbook.Feeds{
		orderbook.BTC: f.BTC,
		orderbook.ETH: f.ETH,
	}
}

type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
}

type ExportConfig struct {
	Directory string   `mapstructure:"directory"`
	Workers   int      `mapstructure:"workers"`
	Assets    []string `mapstructure:"assets"`
	Products  []string `mapstructure:"products"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type WSConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	StreamInterval time.Duration `mapstructure:"stream_interval"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // empty logs to stderr only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.mode", SourceLive)
	v.SetDefault("source.url", "https://round-snowflake-9c31.devops-118.workers.dev/")
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("source.retry_count", 3)
	v.SetDefault("source.retry_delay", 2*time.Second)
	v.SetDefault("source.rate_per_second", 2)
	v.SetDefault("pricing.risk_free_rate", greeks.DefaultRiskFreeRate)
	v.SetDefault("pricing.volatility", greeks.DefaultVolatility)
	v.SetDefault("refresh.interval", 30*time.Second)
	v.SetDefault("feeds.btc", orderbook.DefaultBTCFeed)
	v.SetDefault("feeds.eth", orderbook.DefaultETHFeed)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.directory", "data/archive")
	v.SetDefault("export.directory", "data/export")
	v.SetDefault("export.workers", 4)
	v.SetDefault("export.assets", []string{"BTC", "ETH"})
	v.SetDefault("export.products", []string{"Vanilla", "Spread", "Butterfly", "Condor"})
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("ws.enabled", true)
	v.SetDefault("ws.stream_interval", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.server", "https://ntfy.sh")
	v.SetDefault("notify.topic", "")
	v.SetDefault("notify.priority", "default")
	v.SetDefault("notify.tags", "chart_with_upwards_trend")
	v.SetDefault("notify.token", "")
	v.SetDefault("notify.failure_threshold", 3)
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Assets returns the parsed export assets. Call after Validate.
func (c *Config) Assets() []orderbook.Asset {
	out := make([]orderbook.Asset, 0, len(c.Export.Assets))
	for _, a := range c.Export.Assets {
		if asset, err := orderbook.ParseAsset(a); err == nil {
			out = append(out, asset)
		}
	}
	return out
}

// Products returns the parsed export products. Call after Validate.
func (c *Config) Products() []greeks.Structure {
	out := make([]greeks.Structure, 0, len(c.Export.Products))
	for _, p := range c.Export.Products {
		if s, err := greeks.ParseStructure(p); err == nil {
			out = append(out, s)
		}
	}
	return out
}
