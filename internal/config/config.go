// Package config provides configuration management for solsend.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/solsend/internal/chain"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Home     string         `yaml:"home"`
	Network  NetworkConfig  `yaml:"network"`
	Transfer TransferConfig `yaml:"transfer"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// NetworkConfig defines the Solana cluster and RPC settings.
type NetworkConfig struct {
	Cluster       string  `yaml:"cluster"`
	RPC           string  `yaml:"rpc"`
	Commitment    string  `yaml:"commitment"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst"`
}

// TransferConfig defines transfer safety margins and timeouts.
type TransferConfig struct {
	FeeReserveLamports    uint64 `yaml:"fee_reserve_lamports"`
	ProviderTimeoutSecs   int    `yaml:"provider_timeout_seconds"`
	ConfirmTimeoutSecs    int    `yaml:"confirm_timeout_seconds"`
	ConfirmPollIntervalMs int    `yaml:"confirm_poll_interval_ms"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file on top of Defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, solerr.WithCause(solerr.ErrConfigInvalid, err)
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the config file path under home.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default solsend home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".solsend"
	}
	return filepath.Join(home, ".solsend")
}

// Validate checks the configuration for values the transfer flow cannot use.
func (c *Config) Validate() error {
	if !chain.Network(c.Network.Cluster).IsValid() {
		return invalid("network.cluster", c.Network.Cluster, "use mainnet-beta, devnet, testnet or localnet")
	}

	u, err := url.Parse(c.Network.RPC)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("network.rpc", c.Network.RPC, "set an http(s) JSON-RPC URL")
	}

	switch c.Network.Commitment {
	case CommitmentConfirmed, CommitmentFinalized:
	default:
		return invalid("network.commitment", c.Network.Commitment, "use confirmed or finalized")
	}

	if c.Transfer.ProviderTimeoutSecs <= 0 {
		return invalid("transfer.provider_timeout_seconds", fmt.Sprint(c.Transfer.ProviderTimeoutSecs), "must be positive")
	}
	if c.Transfer.ConfirmTimeoutSecs <= 0 {
		return invalid("transfer.confirm_timeout_seconds", fmt.Sprint(c.Transfer.ConfirmTimeoutSecs), "must be positive")
	}
	if c.Transfer.ConfirmPollIntervalMs <= 0 {
		return invalid("transfer.confirm_poll_interval_ms", fmt.Sprint(c.Transfer.ConfirmPollIntervalMs), "must be positive")
	}

	return nil
}

func invalid(key, value, suggestion string) error {
	return solerr.WithSuggestion(
		solerr.WithDetails(solerr.ErrConfigInvalid, map[string]string{"key": key, "value": value}),
		suggestion,
	)
}

// GetHome returns the solsend home directory, expanding a leading ~/.
func (c *Config) GetHome() string {
	if strings.HasPrefix(c.Home, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, c.Home[2:])
		}
	}
	return c.Home
}

// KeyDir returns the directory holding encrypted key files.
func (c *Config) KeyDir() string {
	return filepath.Join(c.GetHome(), "keys")
}

// GetRPC returns the Solana JSON-RPC URL.
func (c *Config) GetRPC() string {
	return c.Network.RPC
}

// GetNetwork returns the configured cluster.
func (c *Config) GetNetwork() chain.Network {
	return chain.Network(c.Network.Cluster)
}

// GetCommitment returns the commitment level confirmations wait for.
func (c *Config) GetCommitment() string {
	return c.Network.Commitment
}

// GetFeeReserve returns the lamports held back to pay the network fee.
func (c *Config) GetFeeReserve() uint64 {
	return c.Transfer.FeeReserveLamports
}

// GetProviderTimeout bounds how long a connect or sign prompt may wait.
func (c *Config) GetProviderTimeout() time.Duration {
	return time.Duration(c.Transfer.ProviderTimeoutSecs) * time.Second
}

// GetConfirmTimeout bounds how long a confirmation may take.
func (c *Config) GetConfirmTimeout() time.Duration {
	return time.Duration(c.Transfer.ConfirmTimeoutSecs) * time.Second
}

// GetConfirmPollInterval returns the delay between signature status polls.
func (c *Config) GetConfirmPollInterval() time.Duration {
	return time.Duration(c.Transfer.ConfirmPollIntervalMs) * time.Millisecond
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}
