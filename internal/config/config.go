package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"pyth-observer/internal/checks"
	"pyth-observer/internal/logging"
	"pyth-observer/internal/notify"
)

// Config materialises application configuration.
type Config struct {
	App           AppConfig        `mapstructure:"app"`
	Logging       logging.Config   `mapstructure:"logging"`
	Pyth          PythConfig       `mapstructure:"pyth"`
	Observer      ObserverConfig   `mapstructure:"observer"`
	Checks        checks.Config    `mapstructure:"checks"`
	CoinGecko     CoinGeckoConfig  `mapstructure:"coingecko"`
	Publishers    PublishersConfig `mapstructure:"publishers"`
	Notifications notify.Config    `mapstructure:"notifications"`
	Metrics       MetricsConfig    `mapstructure:"metrics"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// PythConfig covers Pyth agent connectivity.
type PythConfig struct {
	Network           string        `mapstructure:"network"`
	Endpoint          string        `mapstructure:"endpoint"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// ObserverConfig governs the polling loop and alert gating.
type ObserverConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	Snooze       time.Duration `mapstructure:"snooze"`
	IncludeNoisy bool          `mapstructure:"include_noisy"`
	PublisherKey string        `mapstructure:"publisher_key"`
	Ignore       []string      `mapstructure:"ignore"`
}

// CoinGeckoConfig captures reference price source connectivity.
type CoinGeckoConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MappingPath       string        `mapstructure:"mapping_path"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// PublishersConfig locates the publisher name directory.
type PublishersConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PYTH_OBSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pyth-observer")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("pyth.network", "devnet")
	v.SetDefault("pyth.endpoint", "ws://127.0.0.1:8910")
	v.SetDefault("pyth.request_timeout", "10s")
	v.SetDefault("pyth.requests_per_second", 5.0)
	v.SetDefault("pyth.burst", 1)

	v.SetDefault("observer.poll_interval", "400ms")
	v.SetDefault("observer.retry_backoff", "400ms")
	v.SetDefault("observer.snooze", "0m")
	v.SetDefault("observer.include_noisy", false)

	v.SetDefault("checks.price_deviation_pct", 6.0)
	v.SetDefault("checks.improbable_confidence_intervals", 20.0)
	v.SetDefault("checks.stop_publishing_min_slots", 600)
	v.SetDefault("checks.stop_publishing_max_slots", 1000)
	v.SetDefault("checks.max_slot_distance", 25)
	v.SetDefault("checks.twap_vs_aggregate_pct", 10.0)
	v.SetDefault("checks.coingecko_deviation_pct", 5.0)
	v.SetDefault("checks.coming_soon_min_publishers", 10)

	v.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko.refresh_interval", "2s")
	v.SetDefault("coingecko.request_timeout", "10s")
	v.SetDefault("coingecko.requests_per_second", 1.0)
	v.SetDefault("coingecko.burst", 1)
	v.SetDefault("coingecko.user_agent", "pyth-observer/1.0")

	v.SetDefault("publishers.path", "publishers.json")

	v.SetDefault("notifications.channels", []string{"log"})
	v.SetDefault("notifications.slack.request_timeout", "10s")
	v.SetDefault("notifications.telegram.request_timeout", "10s")
	v.SetDefault("notifications.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9001")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values. Failing
// here stops the process before the loops start; steady-state code assumes a
// valid config.
func (c *Config) Validate() error {
	switch c.Pyth.Network {
	case "devnet", "testnet", "mainnet":
	default:
		return fmt.Errorf("pyth.network must be one of devnet, testnet, mainnet")
	}
	if c.Pyth.Endpoint == "" {
		return fmt.Errorf("pyth.endpoint is required")
	}
	if c.Observer.PollInterval <= 0 {
		return fmt.Errorf("observer.poll_interval must be greater than zero")
	}
	if c.Observer.RetryBackoff <= 0 {
		return fmt.Errorf("observer.retry_backoff must be greater than zero")
	}
	if c.Observer.Snooze < 0 {
		return fmt.Errorf("observer.snooze cannot be negative")
	}
	if c.CoinGecko.RefreshInterval <= 0 {
		return fmt.Errorf("coingecko.refresh_interval must be greater than zero")
	}
	if c.Checks.StopPublishingMaxSlots > 0 && c.Checks.StopPublishingMinSlots >= c.Checks.StopPublishingMaxSlots {
		return fmt.Errorf("checks.stop_publishing_min_slots must be below checks.stop_publishing_max_slots")
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}
	return nil
}
