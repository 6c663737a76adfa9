package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mrz1836/solsend/internal/crypto"
	"github.com/mrz1836/solsend/internal/provider"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

const minPasswordLength = 8

// Prompt functions are variables so tests can replace them.
//
//nolint:gochecknoglobals // Replaced in tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptConfirmFn     = promptConfirm
)

// stdinReader is shared so buffered input is not lost between prompts.
//
//nolint:gochecknoglobals // Single process-wide stdin
var stdinReader = bufio.NewReader(os.Stdin)

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	password, err := term.ReadPassword(syscall.Stdin)
	outln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// promptNewPassword prompts for a new password with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Enter encryption password: ")
	if err != nil {
		return nil, err
	}

	if len(password) < minPasswordLength {
		crypto.Zero(password)
		return nil, solerr.WithSuggestion(
			solerr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength),
		)
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		crypto.Zero(password)
		return nil, err
	}
	defer crypto.Zero(confirm)

	if string(password) != string(confirm) {
		crypto.Zero(password)
		return nil, solerr.WithSuggestion(solerr.ErrInvalidInput, "passwords do not match")
	}

	return password, nil
}

// promptConfirm asks a yes/no question. Only "y" or "yes" approves.
// End of input is reported as provider.ErrPromptCanceled.
func promptConfirm(prompt string) (bool, error) {
	out(os.Stderr, "%s", prompt)
	return readConfirmation(stdinReader)
}

func readConfirmation(r *bufio.Reader) (bool, error) {
	line, err := r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return false, provider.ErrPromptCanceled
		}
		return false, fmt.Errorf("reading confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
