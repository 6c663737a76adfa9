package crypto

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"

	solerr "github.com/mrz1836/solsend/pkg/errors"
)

// Encrypt encrypts plaintext with an age scrypt recipient derived from password.
func Encrypt(plaintext, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, solerr.WithSuggestion(solerr.ErrInvalidInput, "password must not be empty")
	}

	recipient, err := age.NewScryptRecipient(string(password))
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}

	return buf.Bytes(), nil
}

// DecryptSecure decrypts ciphertext into locked memory. A wrong password or a
// damaged file fails with DECRYPTION_FAILED.
func DecryptSecure(ciphertext, password []byte) (*SecureBytes, error) {
	identity, err := age.NewScryptIdentity(string(password))
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, solerr.ErrDecryptionFailed
		}
		return nil, solerr.WithCause(solerr.ErrDecryptionFailed, err)
	}

	plaintext, err := io.ReadAll(r)
	defer zero(plaintext)
	if err != nil {
		return nil, solerr.WithCause(solerr.ErrDecryptionFailed, err)
	}

	return SecureBytesFromSlice(plaintext), nil
}
