// Package errors provides structured error handling for solsend.
// Every failure the transfer flow can produce is a sentinel here, so callers
// branch with errors.Is on the kind instead of matching message strings.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitAuth       = 3 // Authentication failed or request declined
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Permission denied or insufficient funds
	ExitNetwork    = 6 // Network or ledger failure
)

// Error is the structured error type for solsend.
type Error struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// General errors.
var (
	ErrGeneral = &Error{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &Error{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &Error{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	ErrDecryptionFailed = &Error{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong password or corrupted file",
		ExitCode: ExitAuth,
	}

	ErrKeyExists = &Error{
		Code:     "KEY_EXISTS",
		Message:  "key file already exists",
		ExitCode: ExitInput,
	}

	ErrConfigInvalid = &Error{
		Code:     "CONFIG_INVALID",
		Message:  "configuration is invalid",
		ExitCode: ExitInput,
	}
)

// Provider errors.
var (
	ErrProviderUnavailable = &Error{
		Code:     "PROVIDER_UNAVAILABLE",
		Message:  "wallet provider not available",
		ExitCode: ExitNotFound,
	}

	ErrUserRejected = &Error{
		Code:     "USER_REJECTED",
		Message:  "request declined by user",
		ExitCode: ExitAuth,
	}

	ErrConnectFailed = &Error{
		Code:     "CONNECT_FAILED",
		Message:  "failed to connect to wallet provider",
		ExitCode: ExitAuth,
	}

	ErrDisconnectFailed = &Error{
		Code:     "DISCONNECT_FAILED",
		Message:  "failed to disconnect from wallet provider",
		ExitCode: ExitGeneral,
	}

	ErrSignFailed = &Error{
		Code:     "SIGN_FAILED",
		Message:  "failed to sign and send transaction",
		ExitCode: ExitGeneral,
	}
)

// Chain errors.
var (
	ErrNetworkError = &Error{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitNetwork,
	}

	ErrConfirmationTimeout = &Error{
		Code:     "CONFIRMATION_TIMEOUT",
		Message:  "transaction was not confirmed in time",
		ExitCode: ExitNetwork,
	}

	ErrLedgerRejected = &Error{
		Code:     "LEDGER_REJECTED",
		Message:  "transaction rejected by network",
		ExitCode: ExitNetwork,
	}

	ErrInvalidAddress = &Error{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}
)

// Transfer errors.
var (
	ErrNoFunds = &Error{
		Code:     "NO_FUNDS",
		Message:  "account has no funds",
		ExitCode: ExitPermission,
	}

	ErrInsufficientFunds = &Error{
		Code:     "INSUFFICIENT_FUNDS",
		Message:  "insufficient funds for transaction",
		ExitCode: ExitPermission,
	}

	ErrAlreadyInProgress = &Error{
		Code:     "ALREADY_IN_PROGRESS",
		Message:  "another request is already in progress",
		ExitCode: ExitGeneral,
	}

	ErrNotConnected = &Error{
		Code:     "NOT_CONNECTED",
		Message:  "wallet is not connected",
		ExitCode: ExitInput,
	}

	ErrAmountRequired = &Error{
		Code:     "AMOUNT_REQUIRED",
		Message:  "amount is required",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &Error{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount",
		ExitCode: ExitInput,
	}

	ErrInvalidRecipient = &Error{
		Code:     "INVALID_RECIPIENT",
		Message:  "invalid recipient",
		ExitCode: ExitInput,
	}

	ErrInvalidTransaction = &Error{
		Code:     "INVALID_TRANSACTION",
		Message:  "invalid transaction",
		ExitCode: ExitInput,
	}
)

// New creates a new Error with the given code and message.
func New(code, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var se *Error
	if errors.As(err, &se) {
		return &Error{
			Code:       se.Code,
			Message:    fmt.Sprintf("%s: %s", msg, se.Message),
			Details:    se.Details,
			Suggestion: se.Suggestion,
			Cause:      err,
			ExitCode:   se.ExitCode,
		}
	}

	return &Error{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause returns a copy of kind that carries cause as its underlying error.
// The result still matches kind with errors.Is.
func WithCause(kind *Error, cause error) error {
	return &Error{
		Code:       kind.Code,
		Message:    kind.Message,
		Details:    kind.Details,
		Suggestion: kind.Suggestion,
		Cause:      cause,
		ExitCode:   kind.ExitCode,
	}
}

// WithDetails adds details to an error, merging with any it already has.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		merged := make(map[string]string, len(se.Details)+len(details))
		for k, v := range se.Details {
			merged[k] = v
		}
		for k, v := range details {
			merged[k] = v
		}
		return &Error{
			Code:       se.Code,
			Message:    se.Message,
			Details:    merged,
			Suggestion: se.Suggestion,
			Cause:      se.Cause,
			ExitCode:   se.ExitCode,
		}
	}

	return &Error{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return &Error{
			Code:       se.Code,
			Message:    se.Message,
			Details:    se.Details,
			Suggestion: suggestion,
			Cause:      se.Cause,
			ExitCode:   se.ExitCode,
		}
	}

	return &Error{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var se *Error
	if errors.As(err, &se) {
		return se.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
