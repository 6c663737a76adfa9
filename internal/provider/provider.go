// Package provider defines the wallet provider boundary: the capability set
// {connect, disconnect, sign-and-send} the transfer flow needs from a wallet,
// and the mapping of provider failures onto typed errors.
package provider

import (
	"context"
	"errors"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/transfer"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

// ErrPromptCanceled is returned by interactive prompts the user dismissed.
var ErrPromptCanceled = errors.New("prompt canceled")

// Provider is a wallet able to reveal an account and sign transfers for it.
// Every call except Detect may prompt the user.
type Provider interface {
	// Detect reports whether the wallet is present. It has no side effects.
	Detect() bool

	// Connect opens a session and returns the wallet's account.
	Connect(ctx context.Context) (chain.Account, error)

	// Disconnect closes the session. It is idempotent.
	Disconnect(ctx context.Context) error

	// SignAndSend signs the transfer and submits it to the network.
	SignAndSend(ctx context.Context, tx *transfer.UnsignedTransfer) (Submission, error)
}

// Submission identifies a transaction accepted for broadcast.
type Submission struct {
	Signature string
}

// Op names the provider operation a failure came from.
type Op int

// Provider operations.
const (
	OpConnect Op = iota
	OpDisconnect
	OpSign
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpConnect:
		return "connect"
	case OpDisconnect:
		return "disconnect"
	case OpSign:
		return "sign"
	default:
		return "unknown"
	}
}

// Classify maps a provider error onto the failure taxonomy for op.
// Errors already carrying a provider kind pass through unchanged; a canceled
// prompt is USER_REJECTED; anything else becomes the op's generic failure,
// with a timed-out detail when ctx's deadline caused it.
func Classify(op Op, err error) error {
	if err == nil {
		return nil
	}

	for _, kind := range []*solerr.Error{
		solerr.ErrProviderUnavailable,
		solerr.ErrUserRejected,
		solerr.ErrConnectFailed,
		solerr.ErrDisconnectFailed,
		solerr.ErrSignFailed,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}

	if errors.Is(err, ErrPromptCanceled) {
		return solerr.WithCause(solerr.ErrUserRejected, err)
	}

	var kind *solerr.Error
	switch op {
	case OpConnect:
		kind = solerr.ErrConnectFailed
	case OpDisconnect:
		kind = solerr.ErrDisconnectFailed
	case OpSign:
		kind = solerr.ErrSignFailed
	default:
		kind = solerr.ErrGeneral
	}

	wrapped := solerr.WithCause(kind, err)
	if errors.Is(err, context.DeadlineExceeded) {
		return solerr.WithDetails(wrapped, map[string]string{"reason": "timed out waiting for wallet"})
	}
	return wrapped
}
