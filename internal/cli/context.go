package cli

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/chain/sol"
	"github.com/mrz1836/solsend/internal/config"
	"github.com/mrz1836/solsend/internal/output"
)

// ChainClient is the network access commands need.
type ChainClient interface {
	chain.Client
	SendTransaction(ctx context.Context, tx *solana.Transaction) (string, error)
	Close()
}

// ChainFactory opens a chain client for the configured cluster.
type ChainFactory func(c *config.Config, log *config.Logger) (ChainClient, error)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Config   *config.Config
	Logger   *config.Logger
	Fmt      *output.Formatter
	NewChain ChainFactory
}

// NewCommandContext creates a context backed by the Solana JSON-RPC client.
func NewCommandContext(c *config.Config, log *config.Logger, f *output.Formatter) *CommandContext {
	return &CommandContext{
		Config:   c,
		Logger:   log,
		Fmt:      f,
		NewChain: newRPCChain,
	}
}

func newRPCChain(c *config.Config, log *config.Logger) (ChainClient, error) {
	client, err := sol.NewClient(c.GetRPC(), &sol.Options{
		Commitment:     rpc.CommitmentType(c.GetCommitment()),
		ConfirmTimeout: c.GetConfirmTimeout(),
		PollInterval:   c.GetConfirmPollInterval(),
		RateLimiter:    chain.NewRateLimiter(c.Network.RatePerSecond, c.Network.RateBurst),
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

type cmdContextKey struct{}

// SetCmdContext attaches cc to the command.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the command's context, or nil if none was attached.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cc, _ := ctx.Value(cmdContextKey{}).(*CommandContext)
	return cc
}

// contextWithTimeout returns a timeout context rooted in the command context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, d)
}
