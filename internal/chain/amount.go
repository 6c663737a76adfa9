package chain

import (
	"math"
	"strconv"
	"strings"

	solerr "github.com/mrz1836/solsend/pkg/errors"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL uint64 = 1_000_000_000

// SOLDecimals is the number of decimal places in a SOL amount.
const SOLDecimals = 9

// ParseSOL parses a decimal SOL amount such as "1.5" into lamports.
// More than nine decimal places, signs, exponents and overflow are rejected.
//
//nolint:gocognit,gocyclo // Decimal parsing requires sequential validation steps
func ParseSOL(amount string) (uint64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, solerr.ErrAmountRequired
	}

	invalid := solerr.WithDetails(solerr.ErrInvalidAmount, map[string]string{"amount": amount})

	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return 0, invalid
	}

	intPart := parts[0]
	decPart := ""
	if len(parts) == 2 {
		decPart = parts[1]
	}
	if intPart == "" && decPart == "" {
		return 0, invalid
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(decPart) > SOLDecimals {
		return 0, solerr.WithDetails(invalid, map[string]string{"reason": "more than 9 decimal places"})
	}

	for _, c := range intPart + decPart {
		if c < '0' || c > '9' {
			return 0, invalid
		}
	}

	whole, err := strconv.ParseUint(intPart, 10, 64)
	if err != nil || whole > math.MaxUint64/LamportsPerSOL {
		return 0, solerr.WithDetails(invalid, map[string]string{"reason": "amount too large"})
	}

	var frac uint64
	if decPart != "" {
		decPart += strings.Repeat("0", SOLDecimals-len(decPart))
		frac, err = strconv.ParseUint(decPart, 10, 64)
		if err != nil {
			return 0, invalid
		}
	}

	lamports := whole * LamportsPerSOL
	if lamports > math.MaxUint64-frac {
		return 0, solerr.WithDetails(invalid, map[string]string{"reason": "amount too large"})
	}

	return lamports + frac, nil
}

// FormatSOL renders lamports as a decimal SOL string without trailing zeros.
func FormatSOL(lamports uint64) string {
	whole := lamports / LamportsPerSOL
	frac := lamports % LamportsPerSOL
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}

	fracStr := strconv.FormatUint(frac, 10)
	fracStr = strings.Repeat("0", SOLDecimals-len(fracStr)) + fracStr
	fracStr = strings.TrimRight(fracStr, "0")

	return strconv.FormatUint(whole, 10) + "." + fracStr
}
