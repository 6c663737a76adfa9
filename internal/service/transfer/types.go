package transfer

import (
	"github.com/mrz1836/solsend/internal/chain"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

// Session is a snapshot of the wallet connection.
type Session struct {
	Connected bool
	Account   *chain.Account
}

// SendRequest is a transfer the user asked for. Both fields are required.
type SendRequest struct {
	To     chain.Account
	Amount uint64 // lamports
}

// Validate checks the request against the sending account.
func (r SendRequest) Validate(from chain.Account) error {
	if r.To.IsZero() {
		return solerr.WithDetails(solerr.ErrInvalidRecipient, map[string]string{"reason": "destination is required"})
	}
	if r.To.Equals(from) {
		return solerr.WithDetails(solerr.ErrInvalidRecipient, map[string]string{"reason": "destination is the sending account"})
	}
	if r.Amount == 0 {
		return solerr.ErrAmountRequired
	}
	return nil
}

// TransferPlan is what the user approves before anything is signed.
type TransferPlan struct {
	From       chain.Account
	To         chain.Account
	Amount     uint64
	FeeReserve uint64
	Balance    uint64
	Network    string
}

// Result describes a settled transfer.
type Result struct {
	Signature string
	From      chain.Account
	To        chain.Account
	Amount    uint64
	Status    string
}
