// Package config loads process configuration from the environment, the
// same "env vars in, typed struct out, sane defaults" shape as the
// teacher's internal/app.AppConfig / internal/cli.DetectMode.
package config

import (
	"os"
	"time"

	"github.com/yourusername/btcrelay/internal/models"
)

// Config is the process-wide configuration for the relay daemon.
type Config struct {
	// DBPath is the path to the single JSON store document (spec §4.2/§6).
	DBPath string

	// Network is the network the engine runs against at startup; the
	// control surface may switch it later via Settings.ActiveNetwork.
	Network models.Network

	// PollInterval is the engine's cycle cadence (spec §4.6, ~30s).
	PollInterval time.Duration

	// ChainClientBaseURL is the Blockstream-compatible REST base URL for
	// testnet (BaseURLsFor uses it for every network other than mainnet).
	ChainClientBaseURL string

	// FeeOracleBaseURL is the mempool.space-compatible fee API base URL for
	// testnet (BaseURLsFor uses it for every network other than mainnet).
	FeeOracleBaseURL string

	// MainnetChainClientBaseURL / MainnetFeeOracleBaseURL back mainnet so the control surface can switch between testnet and
	// mainnet engines without a restart (spec §6 "GET/POST /api/network").
	MainnetChainClientBaseURL string
	MainnetFeeOracleBaseURL   string

	// HTTPAddr is the control-surface bind address (spec §6 binds 0.0.0.0).
	HTTPAddr string

	// ChainClientTimeout / FeeOracleTimeout are the suspension points named
	// in spec §5.
	ChainClientTimeout time.Duration
	FeeOracleTimeout   time.Duration

	// ShutdownTimeout bounds Engine.Stop()'s join (spec §5, 10s).
	ShutdownTimeout time.Duration
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// Load reads Config from the environment with defaults matching spec
// §4.6/§5/§6: RELAY_DB_PATH, RELAY_NETWORK, RELAY_POLL_INTERVAL,
// RELAY_CHAIN_CLIENT_URL, RELAY_FEE_ORACLE_URL, RELAY_HTTP_ADDR.
func Load() *Config {
	network := models.Network(getEnv("RELAY_NETWORK", string(models.Testnet)))
	if !network.IsValid() {
		network = models.Testnet
	}

	return &Config{
		DBPath:             getEnv("RELAY_DB_PATH", "relay.db.json"),
		Network:            network,
		PollInterval:       getEnvDuration("RELAY_POLL_INTERVAL", 30*time.Second),
		ChainClientBaseURL:        getEnv("RELAY_CHAIN_CLIENT_URL", "https://blockstream.info/testnet/api"),
		FeeOracleBaseURL:          getEnv("RELAY_FEE_ORACLE_URL", "https://mempool.space/testnet/api/v1/fees/recommended"),
		MainnetChainClientBaseURL: getEnv("RELAY_MAINNET_CHAIN_CLIENT_URL", "https://blockstream.info/api"),
		MainnetFeeOracleBaseURL:   getEnv("RELAY_MAINNET_FEE_ORACLE_URL", "https://mempool.space/api/v1/fees/recommended"),
		HTTPAddr:                  getEnv("RELAY_HTTP_ADDR", "0.0.0.0:8787"),
		ChainClientTimeout: getEnvDuration("RELAY_CHAIN_CLIENT_TIMEOUT", 30*time.Second),
		FeeOracleTimeout:   getEnvDuration("RELAY_FEE_ORACLE_TIMEOUT", 10*time.Second),
		ShutdownTimeout:    getEnvDuration("RELAY_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// BaseURLsFor returns the Chain Client / Fee Oracle base URLs for network,
// so the control surface can construct a client pair for whichever network
// it switches to (spec §6).
func (c *Config) BaseURLsFor(network models.Network) (chainClientURL, feeOracleURL string) {
	if network == models.Mainnet {
		return c.MainnetChainClientBaseURL, c.MainnetFeeOracleBaseURL
	}
	return c.ChainClientBaseURL, c.FeeOracleBaseURL
}

// MasterPasswordFromEnv reads RELAY_MASTER_PASSWORD, the non-interactive
// path for daemon-mode bootstrapping (see internal/logging.DetectMode).
func MasterPasswordFromEnv() (string, bool) {
	v := os.Getenv("RELAY_MASTER_PASSWORD")
	return v, v != ""
}
