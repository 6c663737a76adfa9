package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/solsend/internal/chain"
)

// Environment variable names.
const (
	EnvHome         = "SOLSEND_HOME"
	EnvCluster      = "SOLSEND_CLUSTER"
	EnvRPC          = "SOLSEND_RPC"
	EnvCommitment   = "SOLSEND_COMMITMENT"
	EnvFeeReserve   = "SOLSEND_FEE_RESERVE"
	EnvOutputFormat = "SOLSEND_OUTPUT_FORMAT"
	EnvVerbose      = "SOLSEND_VERBOSE"
	EnvLogLevel     = "SOLSEND_LOG_LEVEL"
	EnvNoColor      = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
// Selecting a cluster without an explicit RPC switches to that cluster's public endpoint.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvCluster); v != "" {
		cfg.Network.Cluster = strings.ToLower(strings.TrimSpace(v))
		if rpc := DefaultRPCFor(chain.Network(cfg.Network.Cluster)); rpc != "" && os.Getenv(EnvRPC) == "" {
			cfg.Network.RPC = rpc
		}
	}

	if v := os.Getenv(EnvRPC); v != "" {
		cfg.Network.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvCommitment); v != "" {
		cfg.Network.Commitment = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvFeeReserve); v != "" {
		if n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.Transfer.FeeReserveLamports = n
		}
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL trims whitespace and control characters left over from copy-paste.
func SanitizeURL(raw string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
}
