package keystore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/crypto"
	"github.com/mrz1836/solsend/internal/provider"
	"github.com/mrz1836/solsend/internal/transfer"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

// PasswordFunc asks the user for the key file password.
// Returning provider.ErrPromptCanceled or an empty password declines the connection.
type PasswordFunc func(prompt string) ([]byte, error)

// Broadcaster submits signed transactions to the network.
type Broadcaster interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (string, error)
}

// LogWriter is the logging interface used by the provider.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Provider is a wallet whose key lives in an encrypted file.
type Provider struct {
	path        string
	name        string
	password    PasswordFunc
	broadcaster Broadcaster
	logger      LogWriter

	mu      sync.Mutex
	key     *crypto.SecureBytes
	account chain.Account
}

var _ provider.Provider = (*Provider)(nil)

// New creates a provider for the key called name in dir.
func New(dir, name string, password PasswordFunc, broadcaster Broadcaster, logger LogWriter) *Provider {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Provider{
		path:        Path(dir, name),
		name:        name,
		password:    password,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Detect reports whether the key file exists.
func (p *Provider) Detect() bool {
	info, err := os.Stat(p.path)
	return err == nil && info.Mode().IsRegular()
}

// Connect unlocks the key file and returns its account. Connecting an
// already unlocked provider returns the same account without prompting.
func (p *Provider) Connect(ctx context.Context) (chain.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		return p.account, nil
	}
	if !p.Detect() {
		return chain.Account{}, notFound(p.name)
	}

	ciphertext, err := os.ReadFile(p.path)
	if err != nil {
		return chain.Account{}, solerr.WithCause(solerr.ErrConnectFailed, err)
	}

	password, err := p.askPassword(ctx)
	if err != nil {
		return chain.Account{}, err
	}
	defer crypto.Zero(password)

	key, account, err := decode(ciphertext, password)
	if err != nil {
		p.logger.Debug("unlocking key %s failed: %v", p.name, err)
		return chain.Account{}, solerr.WithCause(solerr.ErrConnectFailed, err)
	}

	p.key = key
	p.account = account
	p.logger.Debug("unlocked key %s (%s)", p.name, account)
	return account, nil
}

// askPassword runs the prompt, giving up when ctx is done. A prompt that
// is still reading the terminal when ctx ends is abandoned.
func (p *Provider) askPassword(ctx context.Context) ([]byte, error) {
	if p.password == nil {
		return nil, solerr.WithDetails(solerr.ErrConnectFailed, map[string]string{"reason": "no password prompt available"})
	}

	type answer struct {
		password []byte
		err      error
	}
	ch := make(chan answer, 1)
	go func() {
		pw, err := p.password(fmt.Sprintf("Password for key %q: ", p.name))
		ch <- answer{pw, err}
	}()

	select {
	case <-ctx.Done():
		return nil, solerr.WithCause(solerr.ErrConnectFailed, ctx.Err())
	case a := <-ch:
		if a.err != nil {
			if errors.Is(a.err, provider.ErrPromptCanceled) {
				return nil, solerr.WithCause(solerr.ErrUserRejected, a.err)
			}
			return nil, solerr.WithCause(solerr.ErrConnectFailed, a.err)
		}
		if len(a.password) == 0 {
			return nil, solerr.WithDetails(solerr.ErrUserRejected, map[string]string{"reason": "no password entered"})
		}
		return a.password, nil
	}
}

// Disconnect wipes the unlocked key. It is safe to call when not connected.
func (p *Provider) Disconnect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		p.key.Destroy()
		p.key = nil
		p.logger.Debug("locked key %s", p.name)
	}
	p.account = chain.Account{}
	return nil
}

// SignAndSend signs tx with the unlocked key and broadcasts it.
func (p *Provider) SignAndSend(ctx context.Context, tx *transfer.UnsignedTransfer) (provider.Submission, error) {
	if tx == nil {
		return provider.Submission{}, solerr.WithCause(solerr.ErrSignFailed, solerr.ErrInvalidTransaction)
	}

	signed, err := p.sign(tx)
	if err != nil {
		return provider.Submission{}, err
	}

	if p.broadcaster == nil {
		return provider.Submission{}, solerr.WithDetails(solerr.ErrSignFailed, map[string]string{"reason": "no broadcaster configured"})
	}

	sig, err := p.broadcaster.SendTransaction(ctx, signed)
	if err != nil {
		p.logger.Error("broadcast failed: %v", err)
		return provider.Submission{}, solerr.WithCause(solerr.ErrSignFailed, err)
	}

	p.logger.Debug("broadcast transaction %s", sig)
	return provider.Submission{Signature: sig}, nil
}

func (p *Provider) sign(tx *transfer.UnsignedTransfer) (*solana.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key == nil {
		return nil, solerr.WithDetails(solerr.ErrSignFailed, map[string]string{"reason": "wallet is locked"})
	}
	if !tx.FeePayer.Equals(p.account) {
		return nil, solerr.WithDetails(solerr.ErrSignFailed, map[string]string{
			"reason":    "fee payer is not the unlocked account",
			"fee_payer": tx.FeePayer.String(),
		})
	}

	solTx, err := tx.Transaction()
	if err != nil {
		return nil, solerr.WithCause(solerr.ErrSignFailed, err)
	}

	secret := solana.PrivateKey(p.key.Bytes())
	_, err = solTx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(p.account.PublicKey()) {
			return &secret
		}
		return nil
	})
	if err != nil {
		return nil, solerr.WithCause(solerr.ErrSignFailed, err)
	}
	return solTx, nil
}
