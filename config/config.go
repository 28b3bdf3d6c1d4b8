// Package config loads relay service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the relay daemon needs to start.
type Config struct {
	// SponsorPrivateKey signs and pays for relayed transactions.
	SponsorPrivateKey string
	// RPCURL is the JSON-RPC endpoint of the target chain.
	RPCURL string
	// BatchRelayerAddress is the deployed relayer contract.
	BatchRelayerAddress string

	// Port the HTTP server listens on.
	Port string
	// GasLimit is the per-submission gas ceiling.
	GasLimit uint64
	// ConfirmWait bounds how long a relay waits for one confirmation.
	ConfirmWait time.Duration
	// CacheTTL is how long relay results are replayed to duplicate requests.
	CacheTTL time.Duration

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFile receives JSON logs in addition to stdout; empty disables it.
	LogFile string

	// Deployed target contracts, used by relayctl and the client builder.
	ProfileRegistryAddress string
	PostFeedAddress        string
	ReactionsAddress       string
	BadgesAddress          string
}

const (
	defaultPort        = "4030"
	defaultGasLimit    = 5_000_000
	defaultConfirmWait = 90 * time.Second
	defaultCacheTTL    = 10 * time.Minute
)

// Load reads configuration from a .env file (if present) and the process
// environment, the environment taking precedence. Missing required values
// are an error at startup rather than a failure on the first request.
func Load() (*Config, error) {
	// A missing .env file is fine; deployments set real environment variables.
	_ = godotenv.Load()

	cfg := &Config{
		SponsorPrivateKey:      os.Getenv("SPONSOR_PRIVATE_KEY"),
		RPCURL:                 os.Getenv("RPC_URL"),
		BatchRelayerAddress:    os.Getenv("BATCH_RELAYER_ADDRESS"),
		Port:                   envOr("PORT", defaultPort),
		GasLimit:               defaultGasLimit,
		ConfirmWait:            defaultConfirmWait,
		CacheTTL:               defaultCacheTTL,
		LogLevel:               envOr("LOG_LEVEL", "info"),
		LogFile:                os.Getenv("LOG_FILE"),
		ProfileRegistryAddress: os.Getenv("PROFILE_REGISTRY_ADDRESS"),
		PostFeedAddress:        os.Getenv("POST_FEED_ADDRESS"),
		ReactionsAddress:       os.Getenv("REACTIONS_ADDRESS"),
		BadgesAddress:          os.Getenv("BADGES_ADDRESS"),
	}

	if raw := os.Getenv("GAS_LIMIT"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid GAS_LIMIT %q: %w", raw, err)
		}
		cfg.GasLimit = limit
	}
	if raw := os.Getenv("CONFIRM_WAIT_SECONDS"); raw != "" {
		seconds, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid CONFIRM_WAIT_SECONDS %q: %w", raw, err)
		}
		cfg.ConfirmWait = time.Duration(seconds) * time.Second
	}
	if raw := os.Getenv("CACHE_TTL_SECONDS"); raw != "" {
		seconds, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL_SECONDS %q: %w", raw, err)
		}
		cfg.CacheTTL = time.Duration(seconds) * time.Second
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SponsorPrivateKey == "" {
		return fmt.Errorf("SPONSOR_PRIVATE_KEY environment variable is required")
	}
	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL environment variable is required")
	}
	if c.BatchRelayerAddress == "" {
		return fmt.Errorf("BATCH_RELAYER_ADDRESS environment variable is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
