package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// API server
	APIAddr string
	APIKey  string
	DevMode bool

	// Solana RPC
	RPCUrl           string
	WalletPrivateKey string

	// External routing/pricing APIs
	JupiterBaseURL  string
	JupiterAPIKey   string
	JupiterPriceURL string
	CodexURL        string
	CodexAPIKey     string

	// Token registry
	TokenListURL  string
	TokenListPath string

	// Redis settings
	RedisAddr     string
	StoragePrefix string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

func Load() *Config {
	return &Config{
		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// RPC
		RPCUrl:           getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		WalletPrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),

		// External APIs
		JupiterBaseURL:  getEnv("JUPITER_BASE_URL", "https://quote-api.jup.ag/v6"),
		JupiterAPIKey:   getEnv("JUPITER_API_KEY", ""),
		JupiterPriceURL: getEnv("JUPITER_PRICE_URL", "https://price.jup.ag/v4/price"),
		CodexURL:        getEnv("CODEX_API_URL", "https://graph.codex.io/graphql"),
		CodexAPIKey:     getEnv("CODEX_API_KEY", ""),

		// Token registry
		TokenListURL:  getEnv("TOKEN_LIST_URL", "https://token.jup.ag/strict"),
		TokenListPath: getEnv("TOKEN_LIST_PATH", ""),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		StoragePrefix: getEnv("STORAGE_PREFIX", "swapfy"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "swapfy"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", time.Second),
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIAddr) == "" {
		return fmt.Errorf("API_ADDR is required")
	}
	if strings.TrimSpace(c.RPCUrl) == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if strings.TrimSpace(c.StoragePrefix) == "" {
		return fmt.Errorf("STORAGE_PREFIX must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
