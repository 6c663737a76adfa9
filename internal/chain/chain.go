// Package chain defines the ledger-facing types shared by the transfer flow:
// validated account references, freshness anchors, and the client interfaces.
package chain

import (
	"context"
	"strings"

	"github.com/gagliardetto/solana-go"

	solerr "github.com/mrz1836/solsend/pkg/errors"
)

// Network identifies a Solana cluster.
type Network string

// Known clusters.
const (
	Mainnet Network = "mainnet-beta"
	Devnet  Network = "devnet"
	Testnet Network = "testnet"
	Local   Network = "localnet"
)

// IsValid returns true if the network is a known cluster.
func (n Network) IsValid() bool {
	switch n {
	case Mainnet, Devnet, Testnet, Local:
		return true
	default:
		return false
	}
}

// String returns the cluster name.
func (n Network) String() string {
	return string(n)
}

// Account is a validated ledger account reference.
// The zero value is not a valid account; use ParseAccount or AccountFromKey.
type Account struct {
	key solana.PublicKey
}

// ParseAccount decodes a base58 public key into an Account.
func ParseAccount(address string) (Account, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Account{}, solerr.ErrInvalidAddress
	}

	key, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return Account{}, solerr.WithDetails(
			solerr.WithCause(solerr.ErrInvalidAddress, err),
			map[string]string{"address": address},
		)
	}

	return AccountFromKey(key)
}

// AccountFromKey wraps an already-decoded public key.
func AccountFromKey(key solana.PublicKey) (Account, error) {
	if key.IsZero() {
		return Account{}, solerr.WithDetails(
			solerr.ErrInvalidAddress,
			map[string]string{"reason": "zero public key"},
		)
	}
	return Account{key: key}, nil
}

// MustParseAccount is ParseAccount for constants and tests. It panics on error.
func MustParseAccount(address string) Account {
	a, err := ParseAccount(address)
	if err != nil {
		panic(err)
	}
	return a
}

// PublicKey returns the underlying key.
func (a Account) PublicKey() solana.PublicKey {
	return a.key
}

// String returns the base58 address.
func (a Account) String() string {
	return a.key.String()
}

// IsZero reports whether a was never set.
func (a Account) IsZero() bool {
	return a.key.IsZero()
}

// Equals compares two accounts.
func (a Account) Equals(b Account) bool {
	return a.key.Equals(b.key)
}

// Anchor is a recent blockhash bounding how long a transaction stays valid.
type Anchor struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// IsZero reports whether the anchor carries no blockhash.
func (a Anchor) IsZero() bool {
	return a.Blockhash.IsZero()
}

// BalanceReader reads native balances.
type BalanceReader interface {
	// GetBalance returns the lamport balance of an account. Zero is a valid result.
	GetBalance(ctx context.Context, account Account) (uint64, error)
}

// AnchorSource provides freshness anchors.
type AnchorSource interface {
	// LatestAnchor returns the most recent blockhash.
	LatestAnchor(ctx context.Context) (Anchor, error)
}

// ConfirmationWaiter waits for a submitted transaction to land.
type ConfirmationWaiter interface {
	// AwaitConfirmation blocks until the signature is confirmed, rejected, or times out.
	AwaitConfirmation(ctx context.Context, signature string) error
}

// Client combines the ledger operations the transfer flow needs.
type Client interface {
	BalanceReader
	AnchorSource
	ConfirmationWaiter
}
