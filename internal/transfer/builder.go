// Package transfer builds unsigned native SOL transfer transactions.
package transfer

import (
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/mrz1836/solsend/internal/chain"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

// DefaultFeeReserve is held back from the balance to pay the base fee of a
// single-signature transaction.
const DefaultFeeReserve uint64 = 5000

// Instruction moves Lamports from one account to another.
type Instruction struct {
	From     chain.Account
	To       chain.Account
	Lamports uint64
}

// UnsignedTransfer is a transfer ready for signing.
type UnsignedTransfer struct {
	FeePayer     chain.Account
	Anchor       chain.Anchor
	Instructions []Instruction
}

// Amount returns the total lamports moved by the transfer.
func (u *UnsignedTransfer) Amount() uint64 {
	var total uint64
	for _, ix := range u.Instructions {
		total += ix.Lamports
	}
	return total
}

// Transaction converts the transfer into a solana transaction using system
// program transfer instructions. The result carries no signatures.
func (u *UnsignedTransfer) Transaction() (*solana.Transaction, error) {
	if len(u.Instructions) == 0 {
		return nil, solerr.WithDetails(solerr.ErrInvalidTransaction, map[string]string{"reason": "no instructions"})
	}

	ixs := make([]solana.Instruction, 0, len(u.Instructions))
	for _, ix := range u.Instructions {
		ixs = append(ixs, system.NewTransferInstruction(
			ix.Lamports,
			ix.From.PublicKey(),
			ix.To.PublicKey(),
		).Build())
	}

	tx, err := solana.NewTransaction(ixs, u.Anchor.Blockhash, solana.TransactionPayer(u.FeePayer.PublicKey()))
	if err != nil {
		return nil, solerr.WithCause(solerr.ErrInvalidTransaction, err)
	}
	return tx, nil
}

// SpendableBalance returns the most that can be sent from balance while
// keeping feeReserve for the fee. It is zero when the balance does not cover
// the reserve.
func SpendableBalance(balance, feeReserve uint64) uint64 {
	if balance <= feeReserve {
		return 0
	}
	return balance - feeReserve
}

// Build creates an unsigned transfer of amount lamports from one account to
// another. The caller supplies a fresh anchor obtained immediately before building.
// It fails with INSUFFICIENT_FUNDS unless amount fits in balance minus feeReserve.
func Build(from, to chain.Account, amount, balance, feeReserve uint64, anchor chain.Anchor) (*UnsignedTransfer, error) {
	if from.IsZero() {
		return nil, solerr.WithDetails(solerr.ErrInvalidAddress, map[string]string{"field": "from"})
	}
	if to.IsZero() {
		return nil, solerr.WithDetails(solerr.ErrInvalidRecipient, map[string]string{"reason": "recipient is required"})
	}
	if from.Equals(to) {
		return nil, solerr.WithDetails(solerr.ErrInvalidRecipient, map[string]string{"reason": "recipient is the sending account"})
	}
	if amount == 0 {
		return nil, solerr.WithDetails(solerr.ErrInvalidAmount, map[string]string{"reason": "amount must be greater than zero"})
	}
	if anchor.IsZero() {
		return nil, solerr.WithDetails(solerr.ErrInvalidTransaction, map[string]string{"reason": "missing recent blockhash"})
	}

	spendable := SpendableBalance(balance, feeReserve)
	if amount > spendable {
		return nil, solerr.WithDetails(solerr.ErrInsufficientFunds, map[string]string{
			"required":    chain.FormatSOL(amount) + " SOL",
			"available":   chain.FormatSOL(spendable) + " SOL",
			"fee_reserve": strconv.FormatUint(feeReserve, 10) + " lamports",
		})
	}

	return &UnsignedTransfer{
		FeePayer: from,
		Anchor:   anchor,
		Instructions: []Instruction{{
			From:     from,
			To:       to,
			Lamports: amount,
		}},
	}, nil
}
