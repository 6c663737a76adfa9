// Package sol implements the chain client against a Solana JSON-RPC endpoint.
package sol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/metrics"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

// Default confirmation bounds.
const (
	DefaultConfirmTimeout = 90 * time.Second
	DefaultPollInterval   = time.Second
)

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Commitment     rpc.CommitmentType
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	RateLimiter    *chain.RateLimiter
	Logger         LogWriter
	Metrics        *metrics.Metrics
}

// Client is a long-lived handle to one RPC endpoint. It is safe for concurrent use.
type Client struct {
	endpoint       string
	rpc            *rpc.Client
	commitment     rpc.CommitmentType
	confirmTimeout time.Duration
	pollInterval   time.Duration
	limiter        *chain.RateLimiter
	logger         LogWriter
	metrics        *metrics.Metrics
}

var _ chain.Client = (*Client)(nil)

// NewClient creates a client for endpoint.
func NewClient(endpoint string, opts *Options) (*Client, error) {
	if endpoint == "" {
		return nil, solerr.WithSuggestion(
			solerr.ErrConfigInvalid,
			"Solana RPC URL not configured. Set network.rpc in config.yaml or SOLSEND_RPC",
		)
	}
	if opts == nil {
		opts = &Options{}
	}

	c := &Client{
		endpoint:       endpoint,
		rpc:            rpc.New(endpoint),
		commitment:     opts.Commitment,
		confirmTimeout: opts.ConfirmTimeout,
		pollInterval:   opts.PollInterval,
		limiter:        opts.RateLimiter,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
	}
	if c.commitment == "" {
		c.commitment = rpc.CommitmentConfirmed
	}
	if c.confirmTimeout <= 0 {
		c.confirmTimeout = DefaultConfirmTimeout
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.limiter == nil {
		c.limiter = chain.DefaultRateLimiter()
	}
	if c.logger == nil {
		c.logger = nopLogger{}
	}
	if c.metrics == nil {
		c.metrics = metrics.Global
	}

	return c, nil
}

// Endpoint returns the RPC URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Close releases the underlying HTTP client.
func (c *Client) Close() {
	_ = c.rpc.Close()
}

// GetBalance returns the lamport balance of account. Zero is a valid balance.
func (c *Client) GetBalance(ctx context.Context, account chain.Account) (uint64, error) {
	var out *rpc.GetBalanceResult
	err := c.call(ctx, "getBalance", func() error {
		var err error
		out, err = c.rpc.GetBalance(ctx, account.PublicKey(), c.commitment)
		return err
	})
	if err != nil {
		return 0, networkError("getBalance", err)
	}
	if out == nil {
		return 0, networkError("getBalance", errNilResult)
	}

	c.logger.Debug("balance of %s: %d lamports", account, out.Value)
	return out.Value, nil
}

// LatestAnchor returns the most recent blockhash at the client's commitment.
func (c *Client) LatestAnchor(ctx context.Context) (chain.Anchor, error) {
	var out *rpc.GetLatestBlockhashResult
	err := c.call(ctx, "getLatestBlockhash", func() error {
		var err error
		out, err = c.rpc.GetLatestBlockhash(ctx, c.commitment)
		return err
	})
	if err != nil {
		return chain.Anchor{}, networkError("getLatestBlockhash", err)
	}
	if out == nil || out.Value == nil || out.Value.Blockhash.IsZero() {
		return chain.Anchor{}, networkError("getLatestBlockhash", errNilResult)
	}

	return chain.Anchor{
		Blockhash:            out.Value.Blockhash,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}

// SendTransaction broadcasts a signed transaction and returns its signature.
// Preflight rejections carry the node's error code and message.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (string, error) {
	var sig solana.Signature
	err := c.call(ctx, "sendTransaction", func() error {
		var err error
		sig, err = c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: c.commitment,
		})
		return err
	})
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) {
			return "", solerr.WithDetails(
				solerr.WithCause(solerr.ErrLedgerRejected, err),
				map[string]string{
					"code":    fmt.Sprint(rpcErr.Code),
					"message": rpcErr.Message,
				},
			)
		}
		return "", networkError("sendTransaction", err)
	}

	c.logger.Debug("broadcast %s", sig)
	return sig.String(), nil
}

// AwaitConfirmation polls the signature status until it reaches the client's
// commitment, the ledger reports an error, or the confirmation timeout elapses.
// Transient poll failures are logged and polling continues.
func (c *Client) AwaitConfirmation(ctx context.Context, signature string) error {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return solerr.WithDetails(
			solerr.WithCause(solerr.ErrInvalidTransaction, err),
			map[string]string{"signature": signature},
		)
	}

	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		done, err := c.pollStatus(ctx, sig)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return solerr.WithDetails(
				solerr.WithCause(solerr.ErrConfirmationTimeout, ctx.Err()),
				map[string]string{"signature": signature, "waited": c.confirmTimeout.String()},
			)
		case <-ticker.C:
		}
	}
}

// pollStatus returns true once the signature has reached the target commitment.
func (c *Client) pollStatus(ctx context.Context, sig solana.Signature) (bool, error) {
	var out *rpc.GetSignatureStatusesResult
	err := c.call(ctx, "getSignatureStatuses", func() error {
		var err error
		out, err = c.rpc.GetSignatureStatuses(ctx, false, sig)
		return err
	})
	if err != nil {
		c.logger.Debug("status poll for %s failed: %v", sig, err)
		return false, nil
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return false, nil
	}

	status := out.Value[0]
	if status.Err != nil {
		c.logger.Error("transaction %s failed on ledger: %v", sig, status.Err)
		return false, solerr.WithDetails(
			solerr.ErrLedgerRejected,
			map[string]string{"signature": sig.String(), "error": fmt.Sprint(status.Err)},
		)
	}

	return c.reached(status.ConfirmationStatus), nil
}

func (c *Client) reached(status rpc.ConfirmationStatusType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return c.commitment != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return false
	default:
		return false
	}
}

// call waits for the rate limiter, runs fn, and records the outcome.
func (c *Client) call(ctx context.Context, method string, fn func() error) error {
	if err := c.limiter.Wait(ctx, c.endpoint); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	err := fn()
	c.metrics.RecordRPCCall(time.Since(start), err)
	if err != nil {
		c.logger.Debug("rpc %s failed: %v", method, err)
	}
	return err
}

var errNilResult = errors.New("empty RPC result")

func networkError(method string, err error) error {
	return solerr.WithDetails(
		solerr.WithCause(solerr.ErrNetworkError, err),
		map[string]string{"method": method},
	)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
