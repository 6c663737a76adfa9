package transfer

import (
	"context"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/provider"
)

// Provider is the wallet the service drives.
type Provider interface {
	provider.Provider
}

// Chain reads balances and anchors and waits for confirmation.
type Chain interface {
	chain.Client
}

// Confirmer asks the user to approve a transfer plan.
// Returning false declines the transfer.
type Confirmer interface {
	ConfirmTransfer(ctx context.Context, plan TransferPlan) (bool, error)
}

// Observer receives flow events. Callbacks run on the calling goroutine
// without the service lock held.
type Observer interface {
	OnConnect(session Session, err error)
	OnSend(result *Result, err error)
	OnDisconnect(err error)
	OnStateChange(state State)
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnConnect(Session, error) {}
func (NopObserver) OnSend(*Result, error)    {}
func (NopObserver) OnDisconnect(error)       {}
func (NopObserver) OnStateChange(State)      {}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
