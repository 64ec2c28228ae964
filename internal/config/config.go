package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the connector process configuration: exchange transport,
// per-symbol book parameters, and IPC wiring. Trimmed from the teacher's
// monolithic Config down to this module's concerns.
type Config struct {
	Exchange ExchangeConfig `json:"exchange" yaml:"exchange"`
	IPC      IPCConfig      `json:"ipc" yaml:"ipc"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// ExchangeConfig contains the market-data stream client's transport and
// per-symbol book configuration.
type ExchangeConfig struct {
	Name           string         `json:"name" yaml:"name"`
	WebSocketURL   string         `json:"websocket_url" yaml:"websocket_url"`
	RestBaseURL    string         `json:"rest_base_url" yaml:"rest_base_url"`
	RequestTimeout time.Duration  `json:"request_timeout" yaml:"request_timeout"`
	SnapshotDepth  int            `json:"snapshot_depth" yaml:"snapshot_depth"`
	Symbols        []SymbolConfig `json:"symbols" yaml:"symbols"`
}

// SymbolConfig carries the book's tick/lot quantization for one instrument.
type SymbolConfig struct {
	Symbol   string  `json:"symbol" yaml:"symbol"`
	TickSize float64 `json:"tick_size" yaml:"tick_size"`
	LotSize  float64 `json:"lot_size" yaml:"lot_size"`
}

// IPCConfig contains the inter-process event bus wiring.
type IPCConfig struct {
	NatsURL           string        `json:"nats_url" yaml:"nats_url"`
	ServiceName       string        `json:"service_name" yaml:"service_name"`
	SubscriberBuffer  int           `json:"subscriber_buffer" yaml:"subscriber_buffer"`
	FanInPollInterval time.Duration `json:"fan_in_poll_interval" yaml:"fan_in_poll_interval"`
	ReconnectWait     time.Duration `json:"reconnect_wait" yaml:"reconnect_wait"`
	MaxReconnects     int           `json:"max_reconnects" yaml:"max_reconnects"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level        string `json:"level" yaml:"level"`
	Format       string `json:"format" yaml:"format"`
	EnableCaller bool   `json:"enable_caller" yaml:"enable_caller"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Exchange.WebSocketURL == "" {
		return ErrMissingWebSocketURL
	}
	if c.Exchange.RestBaseURL == "" {
		return ErrMissingRestBaseURL
	}
	if len(c.Exchange.Symbols) == 0 {
		return ErrNoSymbols
	}
	for _, s := range c.Exchange.Symbols {
		if s.TickSize <= 0 || s.LotSize <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidSymbolConfig, s.Symbol)
		}
	}
	if c.IPC.ServiceName == "" {
		return ErrMissingServiceName
	}
	return nil
}

// Configuration errors.
var (
	ErrMissingWebSocketURL = errors.New("missing exchange websocket url")
	ErrMissingRestBaseURL  = errors.New("missing exchange rest base url")
	ErrNoSymbols           = errors.New("no symbols configured")
	ErrInvalidSymbolConfig = errors.New("invalid tick or lot size for symbol")
	ErrMissingServiceName  = errors.New("missing ipc service name")
)

// DefaultConfig returns a usable baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Name:           "binance",
			WebSocketURL:   "wss://stream.binance.com:9443/ws",
			RestBaseURL:    "https://api.binance.com",
			RequestTimeout: 10 * time.Second,
			SnapshotDepth:  1000,
			Symbols: []SymbolConfig{
				{Symbol: "BTCUSDT", TickSize: 0.01, LotSize: 0.00001},
			},
		},
		IPC: IPCConfig{
			NatsURL:           "nats://127.0.0.1:4222",
			ServiceName:       "mdcore",
			SubscriberBuffer:  100_000,
			FanInPollInterval: 50 * time.Microsecond,
			ReconnectWait:     2 * time.Second,
			MaxReconnects:     -1,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "json",
			EnableCaller: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file; an empty path returns
// DefaultConfig, matching the teacher's "missing file falls back to
// defaults" idiom.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := *DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
