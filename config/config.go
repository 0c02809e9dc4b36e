package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// TokenConfig describes one asset in the monitored universe.
type TokenConfig struct {
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
	Symbol   string `yaml:"symbol"`
}

// RateLimitConfig bounds outbound RPC calls.
type RateLimitConfig struct {
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	BurstSize         int      `yaml:"burst_size"`
	WaitTimeout       Duration `yaml:"wait_timeout"`
}

// Config is the full monitor configuration.
type Config struct {
	// Chain and network settings
	ChainID     uint64 `yaml:"chain_id"`
	RPCEndpoint string `yaml:"rpc_endpoint"`
	WSEndpoint  string `yaml:"ws_endpoint"`
	Exchange    string `yaml:"exchange"` // uniswap or sushiswap

	// Token universe and search parameters
	Tokens    []TokenConfig `yaml:"tokens"`
	BaseToken string        `yaml:"base_token"`
	MaxHops   int           `yaml:"max_hops"`

	// Trade sizing and profitability
	TradeAmount        *WeiAmount `yaml:"trade_amount"`
	MinProfitThreshold *WeiAmount `yaml:"min_profit_threshold"`
	MaxSlippageBps     int64      `yaml:"max_slippage_bps"`

	// Scheduling
	TickInterval       Duration `yaml:"tick_interval"`
	FeeRefreshInterval Duration `yaml:"fee_refresh_interval"`
	MaxConcurrency     int      `yaml:"max_concurrency"`
	TickQueueSize      int      `yaml:"tick_queue_size"`

	// Rate limiting
	RPCRateLimit RateLimitConfig `yaml:"rpc_rate_limit"`

	// Feature flags
	PrometheusEnabled  bool   `yaml:"prometheus_enabled"`
	PrometheusEndpoint string `yaml:"prometheus_endpoint"`
	ExecutionEnabled   bool   `yaml:"execution_enabled"`

	// Internal components
	Logger *zap.Logger `yaml:"-"`
}

// WeiAmount is a *big.Int that unmarshals from a decimal string.
type WeiAmount big.Int

// UnmarshalYAML parses a base-10 integer string.
func (w *WeiAmount) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return fmt.Errorf("invalid wei amount %q", raw)
	}
	*w = WeiAmount(*value)
	return nil
}

// Int returns the amount as a *big.Int, nil-safe.
func (w *WeiAmount) Int() *big.Int {
	if w == nil {
		return nil
	}
	return (*big.Int)(w)
}

// NewWeiAmount wraps a *big.Int for config defaults.
func NewWeiAmount(value *big.Int) *WeiAmount {
	return (*WeiAmount)(new(big.Int).Set(value))
}

// Duration is a time.Duration that unmarshals from strings like "12s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ValidateConfig checks everything the monitor refuses to start without.
func (c *Config) ValidateConfig() error {
	var errors []string

	if c.ChainID == 0 {
		errors = append(errors, "chain_id must be specified")
	}
	if c.RPCEndpoint == "" {
		errors = append(errors, "rpc_endpoint must be specified")
	}
	if c.Exchange != "uniswap" && c.Exchange != "sushiswap" {
		errors = append(errors, fmt.Sprintf("unsupported exchange %q", c.Exchange))
	}

	if len(c.Tokens) == 0 {
		errors = append(errors, "token universe must not be empty")
	}
	baseFound := false
	for _, token := range c.Tokens {
		if !common.IsHexAddress(token.Address) {
			errors = append(errors, fmt.Sprintf("token %s has invalid address %q", token.Symbol, token.Address))
		}
		if token.Symbol == "" {
			errors = append(errors, fmt.Sprintf("token %s has no symbol", token.Address))
		}
		if token.Symbol == c.BaseToken {
			baseFound = true
		}
	}
	if c.BaseToken == "" {
		errors = append(errors, "base_token must be specified")
	} else if !baseFound {
		errors = append(errors, fmt.Sprintf("base_token %q is not in the token universe", c.BaseToken))
	}

	if c.MaxHops < 2 {
		errors = append(errors, "max_hops must be at least 2")
	}
	if c.TradeAmount.Int() == nil || c.TradeAmount.Int().Sign() <= 0 {
		errors = append(errors, "trade_amount must be positive")
	}
	if c.MinProfitThreshold.Int() == nil || c.MinProfitThreshold.Int().Sign() < 0 {
		errors = append(errors, "min_profit_threshold must be non-negative")
	}
	if c.MaxSlippageBps < 0 || c.MaxSlippageBps > 10000 {
		errors = append(errors, "max_slippage_bps must be between 0 and 10000")
	}

	if c.MaxConcurrency <= 0 {
		errors = append(errors, "max_concurrency must be positive")
	}
	if c.TickQueueSize <= 0 {
		errors = append(errors, "tick_queue_size must be positive")
	}
	if err := c.RPCRateLimit.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("RPC rate limit error: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate checks the rate limit settings.
func (r *RateLimitConfig) Validate() error {
	if r.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if r.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}
	return nil
}

// LoadConfig reads and validates a YAML config file. An empty path falls
// back to $HOME/.arbwatch.yaml. Environment overrides (RPC endpoints) are
// applied after the file is read.
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".arbwatch.yaml")
	}

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	applyEnvOverrides(config)

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	config.Logger = logger

	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a mainnet Uniswap configuration with the standard
// token universe. The trade amount and threshold are placeholders a real
// deployment overrides.
func DefaultConfig() *Config {
	return &Config{
		ChainID:     1,
		RPCEndpoint: "http://localhost:8545",
		WSEndpoint:  "ws://localhost:8546",
		Exchange:    "uniswap",
		Tokens: []TokenConfig{
			{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18, Symbol: "WETH"},
			{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6, Symbol: "USDC"},
			{Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18, Symbol: "DAI"},
			{Address: "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984", Decimals: 18, Symbol: "UNI"},
		},
		BaseToken:          "WETH",
		MaxHops:            3,
		TradeAmount:        NewWeiAmount(big.NewInt(1000000000000000000)), // 1 WETH
		MinProfitThreshold: NewWeiAmount(big.NewInt(1000000000000)),       // 0.000001 WETH
		MaxSlippageBps:     50,
		TickInterval:       Duration(12 * time.Second),
		FeeRefreshInterval: Duration(time.Second),
		MaxConcurrency:     8,
		TickQueueSize:      16,
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         100,
			WaitTimeout:       Duration(time.Second),
		},
		PrometheusEnabled:  false,
		PrometheusEndpoint: "",
		ExecutionEnabled:   false,
		Logger:             zap.NewNop(),
	}
}
