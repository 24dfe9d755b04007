/*
Package config loads server configuration from TOML.

All fields have working defaults; a config file only needs to name what
it overrides. Flags applied by the caller take precedence over the file.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/solace/token-engine/rewards"
)

// Config is the full server configuration tree.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Wallet  WalletConfig  `toml:"wallet"`
	Rewards rewards.Rules `toml:"rewards"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type StorageConfig struct {
	Path string `toml:"path"`
}

type WalletConfig struct {
	// RateLimitMS is the minimum spacing between successful awards per
	// wallet, in milliseconds. Must stay positive.
	RateLimitMS int `toml:"rate_limit_ms"`
	// TransactionCap bounds the retained transaction log.
	TransactionCap int `toml:"transaction_cap"`
}

// RateLimit returns the award spacing as a duration.
func (w WalletConfig) RateLimit() time.Duration {
	return time.Duration(w.RateLimitMS) * time.Millisecond
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Path: "token-engine.db",
		},
		Wallet: WalletConfig{
			RateLimitMS:    1000,
			TransactionCap: 100,
		},
		Rewards: rewards.DefaultRules(),
	}
}

// Load reads the TOML file at path over the defaults. An empty path
// returns the defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Wallet.RateLimitMS <= 0 {
		return fmt.Errorf("rate_limit_ms must be positive, got %d", c.Wallet.RateLimitMS)
	}
	if c.Wallet.TransactionCap < 1 {
		return fmt.Errorf("transaction_cap must be at least 1, got %d", c.Wallet.TransactionCap)
	}
	return nil
}
