package transfer

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/provider"
	txbuild "github.com/mrz1836/solsend/internal/transfer"
)

var (
	walletAccount = chain.MustParseAccount("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	destAccount   = chain.MustParseAccount("So11111111111111111111111111111111111111112")
	testAnchor    = chain.Anchor{Blockhash: solana.Hash{9}, LastValidBlockHeight: 500}
)

const testSignature = "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"

type mockProvider struct {
	mu          sync.Mutex
	detected    bool
	connectFn   func(ctx context.Context) (chain.Account, error)
	signFn      func(ctx context.Context, tx *txbuild.UnsignedTransfer) (provider.Submission, error)
	disconnects int
	signs       int
	lastTx      *txbuild.UnsignedTransfer
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		detected: true,
		connectFn: func(context.Context) (chain.Account, error) {
			return walletAccount, nil
		},
		signFn: func(context.Context, *txbuild.UnsignedTransfer) (provider.Submission, error) {
			return provider.Submission{Signature: testSignature}, nil
		},
	}
}

func (m *mockProvider) Detect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detected
}

func (m *mockProvider) Connect(ctx context.Context) (chain.Account, error) {
	return m.connectFn(ctx)
}

func (m *mockProvider) Disconnect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnects++
	return nil
}

func (m *mockProvider) SignAndSend(ctx context.Context, tx *txbuild.UnsignedTransfer) (provider.Submission, error) {
	m.mu.Lock()
	m.signs++
	m.lastTx = tx
	m.mu.Unlock()
	return m.signFn(ctx, tx)
}

func (m *mockProvider) signCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signs
}

type mockChain struct {
	balance   uint64
	balErr    error
	anchorErr error
	awaitFn   func(ctx context.Context, sig string) error

	mu      sync.Mutex
	anchors int
}

func newMockChain(balance uint64) *mockChain {
	return &mockChain{
		balance: balance,
		awaitFn: func(context.Context, string) error { return nil },
	}
}

func (m *mockChain) GetBalance(context.Context, chain.Account) (uint64, error) {
	return m.balance, m.balErr
}

func (m *mockChain) LatestAnchor(context.Context) (chain.Anchor, error) {
	m.mu.Lock()
	m.anchors++
	m.mu.Unlock()
	return testAnchor, m.anchorErr
}

func (m *mockChain) AwaitConfirmation(ctx context.Context, sig string) error {
	return m.awaitFn(ctx, sig)
}

type mockConfirmer struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, plan TransferPlan) (bool, error)
	plans []TransferPlan
}

func approve() *mockConfirmer {
	return &mockConfirmer{fn: func(context.Context, TransferPlan) (bool, error) { return true, nil }}
}

func decline() *mockConfirmer {
	return &mockConfirmer{fn: func(context.Context, TransferPlan) (bool, error) { return false, nil }}
}

func (m *mockConfirmer) ConfirmTransfer(ctx context.Context, plan TransferPlan) (bool, error) {
	m.mu.Lock()
	m.plans = append(m.plans, plan)
	m.mu.Unlock()
	return m.fn(ctx, plan)
}

type recordingObserver struct {
	mu       sync.Mutex
	states   []State
	sends    int
	lastSend error
}

func (o *recordingObserver) OnConnect(Session, error) {}
func (o *recordingObserver) OnDisconnect(error)       {}

func (o *recordingObserver) OnSend(_ *Result, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sends++
	o.lastSend = err
}

func (o *recordingObserver) OnStateChange(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *recordingObserver) history() []State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]State(nil), o.states...)
}
