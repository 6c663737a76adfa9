package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/metrics"
	"github.com/mrz1836/solsend/internal/provider"
	txbuild "github.com/mrz1836/solsend/internal/transfer"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

var errRPCDown = errors.New("rpc down")

type fixture struct {
	svc       *Service
	provider  *mockProvider
	chain     *mockChain
	confirmer *mockConfirmer
	observer  *recordingObserver
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T, balance uint64, confirmer *mockConfirmer) *fixture {
	t.Helper()
	f := &fixture{
		provider:  newMockProvider(),
		chain:     newMockChain(balance),
		confirmer: confirmer,
		observer:  &recordingObserver{},
		metrics:   &metrics.Metrics{},
	}
	svc, err := NewService(&Config{
		Provider:        f.provider,
		Chain:           f.chain,
		Confirmer:       f.confirmer,
		Observer:        f.observer,
		Metrics:         f.metrics,
		ProviderTimeout: time.Second,
		Network:         "devnet",
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func connected(t *testing.T, balance uint64, confirmer *mockConfirmer) *fixture {
	t.Helper()
	f := newFixture(t, balance, confirmer)
	_, err := f.svc.Connect(context.Background())
	require.NoError(t, err)
	return f
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewService(&Config{Provider: newMockProvider()})
	require.ErrorIs(t, err, solerr.ErrConfigInvalid)

	_, err = NewService(nil)
	require.ErrorIs(t, err, solerr.ErrConfigInvalid)
}

func TestConnect(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0, approve())

	session, err := f.svc.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, session.Connected)
	assert.True(t, session.Account.Equals(walletAccount))
	assert.Equal(t, StateConnected, f.svc.State())
	assert.Equal(t, []State{StateConnecting, StateConnected}, f.observer.history())

	// Already connected returns the same session.
	again, err := f.svc.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, again.Account.Equals(walletAccount))
}

func TestConnect_ProviderUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0, approve())
	f.provider.detected = false

	_, err := f.svc.Connect(context.Background())
	require.ErrorIs(t, err, solerr.ErrProviderUnavailable)
	assert.Equal(t, StateIdle, f.svc.State())
	assert.False(t, f.svc.Session().Connected)
}

func TestConnect_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected *solerr.Error
	}{
		{"declined", provider.ErrPromptCanceled, solerr.ErrUserRejected},
		{"rejected kind", solerr.ErrUserRejected, solerr.ErrUserRejected},
		{"generic", errRPCDown, solerr.ErrConnectFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, 0, approve())
			f.provider.connectFn = func(context.Context) (chain.Account, error) {
				return chain.Account{}, tt.err
			}

			_, err := f.svc.Connect(context.Background())
			require.ErrorIs(t, err, tt.expected)
			assert.Equal(t, StateIdle, f.svc.State())
		})
	}
}

func TestConnect_Timeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0, approve())
	f.svc.providerTimeout = 10 * time.Millisecond
	f.provider.connectFn = func(ctx context.Context) (chain.Account, error) {
		<-ctx.Done()
		return chain.Account{}, ctx.Err()
	}

	_, err := f.svc.Connect(context.Background())
	require.ErrorIs(t, err, solerr.ErrConnectFailed)
	assert.Contains(t, err.Error(), "timed out")
}

func TestConnect_AlreadyInProgress(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0, approve())

	release := make(chan struct{})
	f.provider.connectFn = func(context.Context) (chain.Account, error) {
		<-release
		return walletAccount, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Connect(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return f.svc.State() == StateConnecting }, time.Second, time.Millisecond)

	_, err := f.svc.Connect(context.Background())
	require.ErrorIs(t, err, solerr.ErrAlreadyInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateConnected, f.svc.State())
}

func TestConnect_DisconnectedWhileConnecting(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0, approve())

	release := make(chan struct{})
	f.provider.connectFn = func(context.Context) (chain.Account, error) {
		<-release
		return walletAccount, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Connect(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return f.svc.State() == StateConnecting }, time.Second, time.Millisecond)

	require.NoError(t, f.svc.Disconnect(context.Background()))
	close(release)

	require.ErrorIs(t, <-done, solerr.ErrConnectFailed)
	assert.Equal(t, StateIdle, f.svc.State())
	assert.False(t, f.svc.Session().Connected)
}

func TestSend_Settled(t *testing.T) {
	t.Parallel()
	f := connected(t, 1_000_000, approve())

	result, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 995_000})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, testSignature, result.Signature)
	assert.Equal(t, uint64(995_000), result.Amount)
	assert.True(t, result.To.Equals(destAccount))
	assert.Equal(t, "confirmed", result.Status)
	assert.Equal(t, StateConnected, f.svc.State())

	require.Len(t, f.confirmer.plans, 1)
	plan := f.confirmer.plans[0]
	assert.Equal(t, uint64(995_000), plan.Amount)
	assert.Equal(t, uint64(1_000_000), plan.Balance)
	assert.Equal(t, txbuild.DefaultFeeReserve, plan.FeeReserve)
	assert.Equal(t, "devnet", plan.Network)

	require.NotNil(t, f.provider.lastTx)
	assert.Equal(t, uint64(995_000), f.provider.lastTx.Amount())
	assert.True(t, f.provider.lastTx.Instructions[0].To.Equals(destAccount))

	assert.Equal(t, []State{
		StateConnecting, StateConnected,
		StateChecking, StateBuilding, StateReviewing, StateAwaitingSignature,
		StateConfirming, StateSettled, StateConnected,
	}, f.observer.history())
	assert.Equal(t, int64(1), f.metrics.Snapshot().TransfersSettled)
}

func TestSend_OverSpendable(t *testing.T) {
	t.Parallel()
	f := connected(t, 1_000_000, approve())

	_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 995_001})
	require.ErrorIs(t, err, solerr.ErrInsufficientFunds)
	assert.Empty(t, f.confirmer.plans)
	assert.Equal(t, 0, f.provider.signCount())
	assert.Equal(t, StateConnected, f.svc.State())
}

func TestSend_BalanceWithinReserve(t *testing.T) {
	t.Parallel()
	f := connected(t, txbuild.DefaultFeeReserve, approve())

	_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 1})
	require.ErrorIs(t, err, solerr.ErrInsufficientFunds)
	assert.Equal(t, 0, f.provider.signCount())
}

func TestSend_NoFunds(t *testing.T) {
	t.Parallel()
	f := connected(t, 0, approve())

	_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 1})
	require.ErrorIs(t, err, solerr.ErrNoFunds)
	assert.Equal(t, 0, f.chain.anchors)
	assert.Empty(t, f.confirmer.plans)
	assert.Equal(t, 0, f.provider.signCount())
	assert.Equal(t, StateConnected, f.svc.State())
	assert.Contains(t, f.observer.history(), StateFailed)
}

func TestSend_Declined(t *testing.T) {
	t.Parallel()
	f := connected(t, 1_000_000, decline())

	result, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 10})
	require.ErrorIs(t, err, solerr.ErrUserRejected)
	assert.Nil(t, result)
	assert.Equal(t, 0, f.provider.signCount())
	assert.Equal(t, int64(1), f.metrics.Snapshot().TransfersDeclined)
	assert.Equal(t, StateConnected, f.svc.State())
}

func TestSend_ReviewCanceled(t *testing.T) {
	t.Parallel()
	f := connected(t, 1_000_000, &mockConfirmer{fn: func(context.Context, TransferPlan) (bool, error) {
		return false, provider.ErrPromptCanceled
	}})

	_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 10})
	require.ErrorIs(t, err, solerr.ErrUserRejected)
	assert.Equal(t, 0, f.provider.signCount())
}

func TestSend_InvalidRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		req      SendRequest
		expected *solerr.Error
	}{
		{"missing destination", SendRequest{Amount: 10}, solerr.ErrInvalidRecipient},
		{"self transfer", SendRequest{To: walletAccount, Amount: 10}, solerr.ErrInvalidRecipient},
		{"missing amount", SendRequest{To: destAccount}, solerr.ErrAmountRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := connected(t, 1_000_000, approve())

			_, err := f.svc.Send(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.expected)
			assert.Empty(t, f.confirmer.plans)
			assert.Equal(t, StateConnected, f.svc.State())
		})
	}
}

func TestSend_NotConnected(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1_000_000, approve())

	_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 10})
	require.ErrorIs(t, err, solerr.ErrNotConnected)
	assert.Equal(t, StateIdle, f.svc.State())
}

func TestSend_ChainFailures(t *testing.T) {
	t.Parallel()

	t.Run("balance", func(t *testing.T) {
		t.Parallel()
		f := connected(t, 1_000_000, approve())
		f.chain.balErr = errRPCDown

		_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 10})
		require.ErrorIs(t, err, solerr.ErrNetworkError)
		require.ErrorIs(t, err, errRPCDown)
	})

	t.Run("anchor", func(t *testing.T) {
		t.Parallel()
		f := connected(t, 1_000_000, approve())
		f.chain.anchorErr = solerr.WithCause(solerr.ErrNetworkError, errRPCDown)

		_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 10})
		require.ErrorIs(t, err, solerr.ErrNetworkError)
		assert.Empty(t, f.confirmer.plans)
	})

	t.Run("ledger rejected", func(t *testing.T) {
		t.Parallel()
		f := connected(t, 1_000_000, approve())
		f.chain.awaitFn = func(context.Context, string) error { return solerr.ErrLedgerRejected }

		_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 10})
		require.ErrorIs(t, err, solerr.ErrLedgerRejected)
	})
}

func TestSend_ConfirmationTimeout(t *testing.T) {
	t.Parallel()
	f := connected(t, 1_000_000, approve())
	f.chain.awaitFn = func(context.Context, string) error { return solerr.ErrConfirmationTimeout }

	result, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 10})
	require.ErrorIs(t, err, solerr.ErrConfirmationTimeout)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), testSignature)
	assert.Equal(t, StateConnected, f.svc.State())
	assert.Equal(t, 1, f.observer.sends)
	assert.Equal(t, int64(1), f.metrics.Snapshot().TransfersFailed)
}

func TestSend_SignFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected *solerr.Error
	}{
		{"declined in wallet", provider.ErrPromptCanceled, solerr.ErrUserRejected},
		{"wallet error", errRPCDown, solerr.ErrSignFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := connected(t, 1_000_000, approve())
			f.provider.signFn = func(context.Context, *txbuild.UnsignedTransfer) (provider.Submission, error) {
				return provider.Submission{}, tt.err
			}

			_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 10})
			require.ErrorIs(t, err, tt.expected)
			assert.Equal(t, StateConnected, f.svc.State())
		})
	}
}

func TestSend_AlreadyInProgress(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	f := connected(t, 1_000_000, &mockConfirmer{fn: func(context.Context, TransferPlan) (bool, error) {
		<-release
		return true, nil
	}})

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 10})
		done <- err
	}()
	require.Eventually(t, func() bool { return f.svc.State() == StateReviewing }, time.Second, time.Millisecond)

	_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 10})
	require.ErrorIs(t, err, solerr.ErrAlreadyInProgress)
	_, err = f.svc.Connect(context.Background())
	require.ErrorIs(t, err, solerr.ErrAlreadyInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestSend_FreshAnchorPerAttempt(t *testing.T) {
	t.Parallel()
	f := connected(t, 1_000_000, approve())

	for range 3 {
		_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 10})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.chain.anchors)
}

func TestDisconnect(t *testing.T) {
	t.Parallel()
	f := connected(t, 0, approve())

	require.NoError(t, f.svc.Disconnect(context.Background()))
	assert.Equal(t, StateIdle, f.svc.State())
	assert.False(t, f.svc.Session().Connected)
	assert.Nil(t, f.svc.Session().Account)

	// Second disconnect is a no-op.
	require.NoError(t, f.svc.Disconnect(context.Background()))
	assert.Equal(t, StateIdle, f.svc.State())
	assert.Equal(t, 1, f.provider.disconnects)
}

func TestDisconnect_ProviderGone(t *testing.T) {
	t.Parallel()
	f := connected(t, 0, approve())
	f.provider.mu.Lock()
	f.provider.detected = false
	f.provider.mu.Unlock()

	err := f.svc.Disconnect(context.Background())
	require.ErrorIs(t, err, solerr.ErrProviderUnavailable)
	assert.Equal(t, StateIdle, f.svc.State())
	assert.False(t, f.svc.Session().Connected)
}

func TestDisconnect_DuringSend(t *testing.T) {
	t.Parallel()

	reviewing := make(chan struct{})
	release := make(chan struct{})
	f := connected(t, 1_000_000, &mockConfirmer{fn: func(context.Context, TransferPlan) (bool, error) {
		close(reviewing)
		<-release
		return true, nil
	}})

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Send(context.Background(), SendRequest{To: destAccount, Amount: 10})
		done <- err
	}()
	<-reviewing

	require.NoError(t, f.svc.Disconnect(context.Background()))
	close(release)

	require.ErrorIs(t, <-done, solerr.ErrNotConnected)
	assert.Equal(t, StateIdle, f.svc.State())
	assert.False(t, f.svc.Session().Connected)
	assert.Equal(t, 0, f.provider.signCount())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "awaiting_signature", StateAwaitingSignature.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, StateConnecting.Busy())
	assert.True(t, StateConfirming.Busy())
	assert.False(t, StateConnected.Busy())
	assert.False(t, StateIdle.Busy())
}
