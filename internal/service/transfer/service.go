// Package transfer drives a wallet provider through connecting, sending a
// user-approved SOL transfer and disconnecting.
package transfer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/metrics"
	"github.com/mrz1836/solsend/internal/provider"
	txbuild "github.com/mrz1836/solsend/internal/transfer"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

// DefaultProviderTimeout bounds a single connect or sign request.
const DefaultProviderTimeout = 2 * time.Minute

// errSessionEnded is returned by a send that outlived its session.
var errSessionEnded = solerr.WithDetails(solerr.ErrNotConnected, map[string]string{"reason": "wallet disconnected during transfer"})

// Service runs one connect or transfer flow at a time.
type Service struct {
	provider        Provider
	chain           Chain
	confirmer       Confirmer
	observer        Observer
	logger          LogWriter
	metrics         *metrics.Metrics
	feeReserve      uint64
	providerTimeout time.Duration
	network         string
	commitment      string

	mu         sync.Mutex
	state      State
	account    *chain.Account
	generation uint64
}

// Config holds dependencies for the transfer service.
type Config struct {
	Provider        Provider
	Chain           Chain
	Confirmer       Confirmer
	Observer        Observer
	Logger          LogWriter
	Metrics         *metrics.Metrics
	FeeReserve      uint64        // zero means txbuild.DefaultFeeReserve
	ProviderTimeout time.Duration // zero means DefaultProviderTimeout
	Network         string
	Commitment      string
}

// NewService creates a new transfer service.
func NewService(cfg *Config) (*Service, error) {
	if cfg == nil || cfg.Provider == nil || cfg.Chain == nil || cfg.Confirmer == nil {
		return nil, solerr.WithDetails(solerr.ErrConfigInvalid, map[string]string{
			"reason": "provider, chain and confirmer are required",
		})
	}

	s := &Service{
		provider:        cfg.Provider,
		chain:           cfg.Chain,
		confirmer:       cfg.Confirmer,
		observer:        cfg.Observer,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		feeReserve:      cfg.FeeReserve,
		providerTimeout: cfg.ProviderTimeout,
		network:         cfg.Network,
		commitment:      cfg.Commitment,
	}
	if s.observer == nil {
		s.observer = NopObserver{}
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Global
	}
	if s.feeReserve == 0 {
		s.feeReserve = txbuild.DefaultFeeReserve
	}
	if s.providerTimeout <= 0 {
		s.providerTimeout = DefaultProviderTimeout
	}
	if s.commitment == "" {
		s.commitment = "confirmed"
	}
	return s, nil
}

// State returns the current state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns a snapshot of the connection.
func (s *Service) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionLocked()
}

func (s *Service) sessionLocked() Session {
	if s.account == nil {
		return Session{}
	}
	account := *s.account
	return Session{Connected: true, Account: &account}
}

// Connect asks the provider for an account. Connecting an already
// connected service returns the current session.
func (s *Service) Connect(ctx context.Context) (Session, error) {
	s.mu.Lock()
	if s.state.Busy() {
		s.mu.Unlock()
		return Session{}, solerr.ErrAlreadyInProgress
	}
	if s.state == StateConnected {
		session := s.sessionLocked()
		s.mu.Unlock()
		return session, nil
	}
	if !s.provider.Detect() {
		s.mu.Unlock()
		err := solerr.ErrProviderUnavailable
		s.observer.OnConnect(Session{}, err)
		return Session{}, err
	}
	s.generation++
	gen := s.generation
	s.state = StateConnecting
	s.mu.Unlock()
	s.observer.OnStateChange(StateConnecting)

	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	account, err := s.provider.Connect(pctx)
	cancel()

	if err != nil {
		err = provider.Classify(provider.OpConnect, err)
		s.logger.Debug("connect failed: %v", err)
		s.advance(gen, StateIdle)
		s.observer.OnConnect(Session{}, err)
		return Session{}, err
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		// Disconnected while the provider was still connecting.
		_ = s.provider.Disconnect(context.WithoutCancel(ctx))
		err = solerr.WithDetails(solerr.ErrConnectFailed, map[string]string{"reason": "disconnected while connecting"})
		s.observer.OnConnect(Session{}, err)
		return Session{}, err
	}
	s.account = &account
	s.state = StateConnected
	session := s.sessionLocked()
	s.mu.Unlock()

	s.logger.Debug("connected %s", account)
	s.observer.OnStateChange(StateConnected)
	s.observer.OnConnect(session, nil)
	return session, nil
}

// Send transfers req.Amount lamports to req.To after the confirmer approves
// the plan. The service returns to Connected whatever the outcome.
func (s *Service) Send(ctx context.Context, req SendRequest) (*Result, error) {
	s.mu.Lock()
	switch {
	case s.state.Busy():
		s.mu.Unlock()
		return nil, solerr.ErrAlreadyInProgress
	case s.state != StateConnected || s.account == nil:
		s.mu.Unlock()
		return nil, solerr.ErrNotConnected
	}
	from := *s.account
	gen := s.generation
	s.state = StateChecking
	s.mu.Unlock()
	s.observer.OnStateChange(StateChecking)

	result, err := s.send(ctx, gen, from, req)
	s.finish(gen, err)

	switch {
	case err == nil:
		s.metrics.RecordTransfer(metrics.TransferSettled)
		s.logger.Debug("transfer %s settled", result.Signature)
	case errors.Is(err, solerr.ErrUserRejected):
		s.metrics.RecordTransfer(metrics.TransferDeclined)
		s.logger.Debug("transfer declined: %v", err)
	default:
		s.metrics.RecordTransfer(metrics.TransferFailed)
		s.logger.Error("transfer failed: %v", err)
	}

	s.observer.OnSend(result, err)
	return result, err
}

func (s *Service) send(ctx context.Context, gen uint64, from chain.Account, req SendRequest) (*Result, error) {
	if err := req.Validate(from); err != nil {
		return nil, err
	}

	balance, err := s.chain.GetBalance(ctx, from)
	if err != nil {
		return nil, chainError(err)
	}
	if balance == 0 {
		return nil, solerr.WithDetails(solerr.ErrNoFunds, map[string]string{"address": from.String()})
	}

	if !s.advance(gen, StateBuilding) {
		return nil, errSessionEnded
	}
	anchor, err := s.chain.LatestAnchor(ctx)
	if err != nil {
		return nil, chainError(err)
	}
	tx, err := txbuild.Build(from, req.To, req.Amount, balance, s.feeReserve, anchor)
	if err != nil {
		return nil, err
	}

	if !s.advance(gen, StateReviewing) {
		return nil, errSessionEnded
	}
	plan := TransferPlan{
		From:       from,
		To:         req.To,
		Amount:     tx.Amount(),
		FeeReserve: s.feeReserve,
		Balance:    balance,
		Network:    s.network,
	}
	approved, err := s.confirmer.ConfirmTransfer(ctx, plan)
	if err != nil {
		return nil, reviewError(err)
	}
	if !approved {
		return nil, solerr.ErrUserRejected
	}

	if !s.advance(gen, StateAwaitingSignature) {
		return nil, errSessionEnded
	}
	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	sub, err := s.provider.SignAndSend(pctx, tx)
	cancel()
	if err != nil {
		return nil, provider.Classify(provider.OpSign, err)
	}
	s.logger.Debug("submitted %s", sub.Signature)

	// The transaction is on its way; confirmation is tracked even if the
	// session ends meanwhile.
	s.advance(gen, StateConfirming)
	if err := s.chain.AwaitConfirmation(ctx, sub.Signature); err != nil {
		return nil, solerr.WithDetails(chainError(err), map[string]string{"signature": sub.Signature})
	}

	return &Result{
		Signature: sub.Signature,
		From:      from,
		To:        req.To,
		Amount:    req.Amount,
		Status:    s.commitment,
	}, nil
}

// finish moves through Settled or Failed back to Connected, unless the
// session ended while the transfer ran.
func (s *Service) finish(gen uint64, err error) {
	terminal := StateSettled
	if err != nil {
		terminal = StateFailed
	}
	if s.advance(gen, terminal) {
		s.advance(gen, StateConnected)
	}
}

// Disconnect ends the session. The service is Idle afterwards even when the
// provider reports an error. A transfer in flight is abandoned, not canceled.
func (s *Service) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		s.observer.OnDisconnect(nil)
		return nil
	}
	s.generation++
	s.state = StateIdle
	s.account = nil
	s.mu.Unlock()
	s.observer.OnStateChange(StateIdle)

	var err error
	if !s.provider.Detect() {
		err = solerr.ErrProviderUnavailable
	} else {
		pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		err = provider.Classify(provider.OpDisconnect, s.provider.Disconnect(pctx))
		cancel()
	}
	if err != nil {
		s.logger.Error("disconnect: %v", err)
	}

	s.observer.OnDisconnect(err)
	return err
}

// advance sets the state if gen is still current.
func (s *Service) advance(gen uint64, to State) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	s.state = to
	s.mu.Unlock()
	s.observer.OnStateChange(to)
	return true
}

// chainError keeps typed chain failures and treats anything else as a
// network failure.
func chainError(err error) error {
	var se *solerr.Error
	if errors.As(err, &se) {
		return err
	}
	return solerr.WithCause(solerr.ErrNetworkError, err)
}

func reviewError(err error) error {
	switch {
	case errors.Is(err, provider.ErrPromptCanceled):
		return solerr.WithCause(solerr.ErrUserRejected, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return solerr.WithCause(solerr.ErrUserRejected, err)
	default:
		return solerr.Wrap(err, "reviewing transfer")
	}
}
