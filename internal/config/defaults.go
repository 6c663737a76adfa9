package config

import "github.com/mrz1836/solsend/internal/chain"

// Commitment levels accepted in network.commitment.
const (
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// RPC endpoints for the public clusters.
const (
	DefaultDevnetRPC  = "https://api.devnet.solana.com"
	DefaultMainnetRPC = "https://api.mainnet-beta.solana.com"
	DefaultTestnetRPC = "https://api.testnet.solana.com"
	DefaultLocalRPC   = "http://127.0.0.1:8899"
)

// DefaultFeeReserveLamports covers the base fee of a single-signature transfer.
const DefaultFeeReserveLamports uint64 = 5000

// Defaults returns the default configuration. It targets devnet.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.solsend",
		Network: NetworkConfig{
			Cluster:       string(chain.Devnet),
			RPC:           DefaultDevnetRPC,
			Commitment:    CommitmentConfirmed,
			RatePerSecond: 4,
			RateBurst:     8,
		},
		Transfer: TransferConfig{
			FeeReserveLamports:    DefaultFeeReserveLamports,
			ProviderTimeoutSecs:   120,
			ConfirmTimeoutSecs:    90,
			ConfirmPollIntervalMs: 1000,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.solsend/solsend.log",
		},
	}
}

// DefaultRPCFor returns the public endpoint for a cluster, or "" if unknown.
func DefaultRPCFor(network chain.Network) string {
	switch network {
	case chain.Mainnet:
		return DefaultMainnetRPC
	case chain.Devnet:
		return DefaultDevnetRPC
	case chain.Testnet:
		return DefaultTestnetRPC
	case chain.Local:
		return DefaultLocalRPC
	default:
		return ""
	}
}
