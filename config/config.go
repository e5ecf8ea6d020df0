package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	// QuoteBaseURL is the swap quote API endpoint.
	QuoteBaseURL string
	// RPCURL is the Ethereum JSON-RPC endpoint.
	RPCURL string
	// ChainID selects the network; quote and RPC endpoints must agree with it.
	ChainID int64
	// PrivateKey is the hex-encoded signing key. Only needed for commands
	// that broadcast transactions.
	PrivateKey string
	// TokenListURL points at a standard token-list JSON document.
	TokenListURL string
	// AllowanceTarget overrides the canonical spender contract (optional).
	AllowanceTarget string

	// FeeRecipient/FeePercentage are passed through to quote requests.
	FeeRecipient  string
	FeePercentage float64

	// Debounce is the quote request quiescence window.
	Debounce time.Duration
	// HeartbeatInterval is the silent quote refresh period.
	HeartbeatInterval time.Duration

	// ListenAddr is the serve command's HTTP bind address.
	ListenAddr string
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".instant-swap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("quote_base_url", "https://api.0x.org/swap/v1")
	viper.SetDefault("chain_id", 1)
	viper.SetDefault("token_list_url", "https://tokens.coingecko.com/uniswap/all.json")
	viper.SetDefault("debounce_ms", 200)
	viper.SetDefault("heartbeat_interval_sec", 30)
	viper.SetDefault("listen_addr", ":8080")

	// Read from environment variables
	viper.SetEnvPrefix("INSTANT_SWAP")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		QuoteBaseURL:      viper.GetString("quote_base_url"),
		RPCURL:            viper.GetString("rpc_url"),
		ChainID:           viper.GetInt64("chain_id"),
		PrivateKey:        viper.GetString("private_key"),
		TokenListURL:      viper.GetString("token_list_url"),
		AllowanceTarget:   viper.GetString("allowance_target"),
		FeeRecipient:      viper.GetString("fee_recipient"),
		FeePercentage:     viper.GetFloat64("fee_percentage"),
		Debounce:          time.Duration(viper.GetInt64("debounce_ms")) * time.Millisecond,
		HeartbeatInterval: time.Duration(viper.GetInt64("heartbeat_interval_sec")) * time.Second,
		ListenAddr:        viper.GetString("listen_addr"),
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL not found. Please set INSTANT_SWAP_RPC_URL environment variable or create a .instant-swap.yaml config file")
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
