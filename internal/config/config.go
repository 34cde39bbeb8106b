// Package config loads service configuration from a YAML file with
// environment-variable overrides, per spec.md §4.E.
//
// Grounded on fd1az-arbitrage-bot's go.mod dependency on
// github.com/spf13/viper; the teacher's own config.go used bare
// flag+os.Getenv, but viper is the pack's established way of layering
// file defaults under env overrides, so we follow the pack over the
// teacher here.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every field the ingestion service needs at startup.
type Config struct {
	Symbols []string `mapstructure:"symbols"`

	ExchangeWSURL   string `mapstructure:"exchange_ws_url"`
	ExchangeRESTURL string `mapstructure:"exchange_rest_url"`
	RESTBootstrap   bool   `mapstructure:"rest_bootstrap"`

	BusURL string `mapstructure:"bus_url"`

	OrderBookDepth int `mapstructure:"order_book_depth"`

	HealthPort  int    `mapstructure:"health_port"`
	ShmName     string `mapstructure:"shm_name"`
	ShmCapacity int    `mapstructure:"shm_capacity"`

	ReconnectDelayMs    int `mapstructure:"reconnect_delay_ms"`
	MaxReconnectDelayMs int `mapstructure:"max_reconnect_delay_ms"`

	// LogLevel is a process-level filter string with optional per-module
	// overrides: "info" or "info,feed=debug,bus=warn". See
	// internal/logging.ParseLevelSpec.
	LogLevel string `mapstructure:"log_level"`

	TracingEnabled  bool   `mapstructure:"tracing_enabled"`
	TracingEndpoint string `mapstructure:"tracing_endpoint"`
}

// ReconnectDelay returns ReconnectDelayMs as a Duration.
func (c Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}

// MaxReconnectDelay returns MaxReconnectDelayMs as a Duration.
func (c Config) MaxReconnectDelay() time.Duration {
	return time.Duration(c.MaxReconnectDelayMs) * time.Millisecond
}

func defaults(v *viper.Viper) {
	v.SetDefault("symbols", []string{"BTCUSDT", "ETHUSDT"})
	v.SetDefault("exchange_ws_url", "wss://stream.binance.com:9443/stream")
	v.SetDefault("exchange_rest_url", "https://api.binance.com")
	v.SetDefault("rest_bootstrap", false)
	v.SetDefault("bus_url", "redis://localhost:6379/0")
	v.SetDefault("order_book_depth", 20)
	v.SetDefault("health_port", 9090)
	v.SetDefault("shm_name", "marketdata")
	v.SetDefault("shm_capacity", 1024)
	v.SetDefault("reconnect_delay_ms", 1000)
	v.SetDefault("max_reconnect_delay_ms", 60000)
	v.SetDefault("log_level", "info")
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("tracing_endpoint", "")
}

// Load reads configuration from (in order of increasing precedence):
// built-in defaults, ./config.yaml (or ./config.example.yaml if the
// former is absent), and MARKETDATA_-prefixed environment variables.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MARKETDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config.yaml: %w", err)
		}
		v.SetConfigName("config.example")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config.example.yaml: %w", err)
			}
			// Neither file present: defaults plus env overrides only.
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(c.Symbols) == 0 {
		return Config{}, fmt.Errorf("config: symbols must not be empty")
	}
	return c, nil
}
