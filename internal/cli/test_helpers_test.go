package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/config"
	"github.com/mrz1836/solsend/internal/output"
)

const (
	testPassword = "correct horse"
	testDest     = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
// confirmCalls counts how often the transfer prompt was shown.
func withMockPrompts(t *testing.T, password string, confirm bool) *int {
	t.Helper()
	origPW := promptPasswordFn
	origNewPW := promptNewPasswordFn
	origConfirm := promptConfirmFn
	t.Cleanup(func() {
		promptPasswordFn = origPW
		promptNewPasswordFn = origNewPW
		promptConfirmFn = origConfirm
	})

	promptPasswordFn = func(string) ([]byte, error) {
		return []byte(password), nil
	}
	promptNewPasswordFn = func() ([]byte, error) {
		return []byte(password), nil
	}
	confirmCalls := new(int)
	promptConfirmFn = func(string) (bool, error) {
		*confirmCalls++
		return confirm, nil
	}
	return confirmCalls
}

// withFlags restores package-level flag variables on cleanup.
func withFlags(t *testing.T) {
	t.Helper()
	saved := []string{keyName, balanceName, balanceAddress, sendName, sendTo, sendAmount}
	savedVerify := keyVerify
	t.Cleanup(func() {
		keyName, balanceName, balanceAddress = saved[0], saved[1], saved[2]
		sendName, sendTo, sendAmount = saved[3], saved[4], saved[5]
		keyVerify = savedVerify
	})
	keyName, balanceName, sendName = defaultKeyName, defaultKeyName, defaultKeyName
	balanceAddress, sendTo, sendAmount = "", "", ""
	keyVerify = false
}

// fakeChain is an in-memory ChainClient.
type fakeChain struct {
	mu       sync.Mutex
	balance  uint64
	sent     []*solana.Transaction
	awaitErr error
	closed   bool
}

func (f *fakeChain) GetBalance(context.Context, chain.Account) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeChain) LatestAnchor(context.Context) (chain.Anchor, error) {
	return chain.Anchor{Blockhash: solana.Hash{7}, LastValidBlockHeight: 1000}, nil
}

func (f *fakeChain) AwaitConfirmation(context.Context, string) error {
	return f.awaitErr
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *solana.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return tx.Signatures[0].String(), nil
}

func (f *fakeChain) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

type testEnv struct {
	cc    *CommandContext
	chain *fakeChain
	out   *bytes.Buffer
	err   *bytes.Buffer
}

func newTestEnv(t *testing.T, format output.Format) *testEnv {
	t.Helper()

	c := config.Defaults()
	c.Home = t.TempDir()

	env := &testEnv{chain: &fakeChain{}, out: &bytes.Buffer{}, err: &bytes.Buffer{}}
	env.cc = &CommandContext{
		Config: c,
		Logger: config.NullLogger(),
		Fmt:    output.NewFormatter(format, env.out, env.err),
		NewChain: func(*config.Config, *config.Logger) (ChainClient, error) {
			return env.chain, nil
		},
	}
	return env
}

func (e *testEnv) command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(e.out)
	cmd.SetErr(e.err)
	cmd.SetContext(context.Background())
	SetCmdContext(cmd, e.cc)
	return cmd
}

// transferAmount decodes the lamports and recipient of a single system transfer.
func transferAmount(t *testing.T, tx *solana.Transaction) (uint64, solana.PublicKey) {
	t.Helper()
	require.Len(t, tx.Message.Instructions, 1)

	compiled := tx.Message.Instructions[0]
	accounts, err := compiled.ResolveInstructionAccounts(&tx.Message)
	require.NoError(t, err)
	decoded, err := system.DecodeInstruction(accounts, compiled.Data)
	require.NoError(t, err)

	ix, ok := decoded.Impl.(*system.Transfer)
	require.True(t, ok)
	return *ix.Lamports, ix.GetRecipientAccount().PublicKey
}
