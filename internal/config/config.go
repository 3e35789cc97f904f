// Package config loads the daemon configuration from a YAML file with
// ${VAR:-default} environment substitution, so deployments can keep secrets in
// the environment and everything else in the file.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration shared by both daemons.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Signer   SignerConfig   `yaml:"signer"`
	Database DatabaseConfig `yaml:"database"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Chain    ChainConfig    `yaml:"chain"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the coordinator HTTP settings.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	AllowedOrigin string        `yaml:"allowed_origin"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
}

// SignerConfig holds the signer daemon settings and the coordinator's view of it.
type SignerConfig struct {
	Addr          string        `yaml:"addr"`
	Endpoint      string        `yaml:"endpoint"`
	AllowedOrigin string        `yaml:"allowed_origin"`
	PrivateKey    string        `yaml:"private_key"`
	SecretKey     string        `yaml:"secret_key"`
	UserID        string        `yaml:"user_id"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
}

// DatabaseConfig holds the ledger connection settings.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_connections"`
}

// BridgeConfig holds transfer-pipeline settings.
type BridgeConfig struct {
	// DefaultBridgeID bootstraps lookups when no per-destination bridge row
	// exists yet (historical BRIDGE_KEY behavior).
	DefaultBridgeID string `yaml:"default_bridge_id"`

	// FeeDisposition is "retain" or "forward_to:<address>". The deposit's fee
	// component stays with the origin bridge account either way; forward_to is
	// recorded for the treasury sweep.
	FeeDisposition string `yaml:"fee_disposition"`
}

// ChainConfig holds per-network RPC and confirmation settings.
type ChainConfig struct {
	RPCTimeout        time.Duration `yaml:"rpc_timeout"`
	MinConfirmations  uint64        `yaml:"min_confirmations"`
	ReceiptPollBudget time.Duration `yaml:"receipt_poll_budget"`
	ReceiptPollDelay  time.Duration `yaml:"receipt_poll_delay"`

	// Networks overrides MinConfirmations per network id.
	Networks map[string]NetworkOverride `yaml:"networks"`
}

// NetworkOverride carries the per-network knobs.
type NetworkOverride struct {
	MinConfirmations uint64        `yaml:"min_confirmations"`
	RPCTimeout       time.Duration `yaml:"rpc_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads, substitutes and validates the configuration file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration built purely from the environment, for
// deployments that run without a config file.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		},
		Signer: SignerConfig{
			PrivateKey: os.Getenv("PRIVATE_KEY"),
			SecretKey:  os.Getenv("SECRET_KEY"),
			UserID:     os.Getenv("USER_ID"),
			Username:   os.Getenv("USERNAME"),
			Password:   os.Getenv("PASSWORD"),
		},
		Database: DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Bridge:   BridgeConfig{DefaultBridgeID: os.Getenv("BRIDGE_KEY")},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.Signer.Addr == "" {
		c.Signer.Addr = ":7000"
	}
	if c.Signer.Endpoint == "" {
		c.Signer.Endpoint = "http://127.0.0.1:7000"
	}
	if c.Signer.TokenTTL == 0 {
		c.Signer.TokenTTL = time.Hour
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Bridge.FeeDisposition == "" {
		c.Bridge.FeeDisposition = "retain"
	}
	if c.Chain.RPCTimeout == 0 {
		c.Chain.RPCTimeout = 10 * time.Second
	}
	if c.Chain.MinConfirmations == 0 {
		c.Chain.MinConfirmations = 2
	}
	if c.Chain.ReceiptPollBudget == 0 {
		c.Chain.ReceiptPollBudget = 60 * time.Second
	}
	if c.Chain.ReceiptPollDelay == 0 {
		c.Chain.ReceiptPollDelay = 5 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the invariants a daemon cannot start without.
func (c *Config) Validate() error {
	if c.Chain.MinConfirmations < 1 {
		return fmt.Errorf("chain.min_confirmations must be at least 1")
	}
	switch {
	case c.Bridge.FeeDisposition == "retain":
	case regexp.MustCompile(`^forward_to:0x[0-9a-fA-F]{40}$`).MatchString(c.Bridge.FeeDisposition):
	default:
		return fmt.Errorf("bridge.fee_disposition must be retain or forward_to:<address>, got %q", c.Bridge.FeeDisposition)
	}
	return nil
}

// MinConfirmationsFor returns the confirmation depth for a network id.
func (c *ChainConfig) MinConfirmationsFor(networkID string) uint64 {
	if o, ok := c.Networks[networkID]; ok && o.MinConfirmations > 0 {
		return o.MinConfirmations
	}
	return c.MinConfirmations
}

// RPCTimeoutFor returns the RPC deadline for a network id.
func (c *ChainConfig) RPCTimeoutFor(networkID string) time.Duration {
	if o, ok := c.Networks[networkID]; ok && o.RPCTimeout > 0 {
		return o.RPCTimeout
	}
	return c.RPCTimeout
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)(:-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func substituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) > 3 && parts[3] != "" {
			return parts[3]
		}
		return match
	})
}
