package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	OpenAI   OpenAIConfig
	Chain    ChainConfig
	Data     DataConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"data/gateway.db"`
}

// AuthConfig holds the operator credential.
type AuthConfig struct {
	MasterKey string `env:"MASTER_KEY"`
}

// OpenAIConfig holds the completion collaborator configuration.
type OpenAIConfig struct {
	APIKey    string        `env:"OPENAI_API_KEY"`
	Model     string        `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	MaxTokens int           `env:"OPENAI_MAX_TOKENS" envDefault:"1000"`
	Timeout   time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
}

// ChainConfig holds the token-gate RPC configuration. Optional: with no
// RPC URL configured the balance gate is skipped.
type ChainConfig struct {
	RPCURL       string        `env:"BASE_RPC_URL"`
	TokenAddress string        `env:"BASE_TOKEN_ADDRESS"`
	MinBalance   string        `env:"MIN_TOKEN_BALANCE" envDefault:"1000000000000000000"`
	Timeout      time.Duration `env:"RPC_TIMEOUT" envDefault:"10s"`
}

// DataConfig holds filesystem paths.
type DataConfig struct {
	Dir string `env:"DATA_DIR" envDefault:"data"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Auth); err != nil {
		return nil, fmt.Errorf("parsing auth config: %w", err)
	}
	if err := env.Parse(&cfg.OpenAI); err != nil {
		return nil, fmt.Errorf("parsing openai config: %w", err)
	}
	if err := env.Parse(&cfg.Chain); err != nil {
		return nil, fmt.Errorf("parsing chain config: %w", err)
	}
	if err := env.Parse(&cfg.Data); err != nil {
		return nil, fmt.Errorf("parsing data config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MinBalanceInt parses the minimum token balance threshold.
func (c *ChainConfig) MinBalanceInt() (*big.Int, error) {
	v, ok := new(big.Int).SetString(c.MinBalance, 10)
	if !ok {
		return nil, fmt.Errorf("MIN_TOKEN_BALANCE is not a valid integer: %q", c.MinBalance)
	}
	return v, nil
}

// UseChainGate returns true if the token balance gate is configured.
func (c *Config) UseChainGate() bool {
	return c.Chain.RPCURL != "" && c.Chain.TokenAddress != ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Auth.MasterKey == "" {
		return fmt.Errorf("MASTER_KEY is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.UseChainGate() {
		if _, err := c.Chain.MinBalanceInt(); err != nil {
			return err
		}
	}
	return nil
}
