// Package keystore implements a wallet provider backed by a password-encrypted
// key file on disk.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/crypto"
	"github.com/mrz1836/solsend/internal/fileutil"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

// File extensions for the encrypted key and its public address.
const (
	keyExt = ".age"
	pubExt = ".pub"
)

const keyFileVersion = 1

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// keyFile is the plaintext inside the encrypted file.
type keyFile struct {
	Version    int    `json:"version"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// ValidateName checks that name is usable as a key file name.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return solerr.WithSuggestion(
			solerr.WithDetails(solerr.ErrInvalidInput, map[string]string{"name": name}),
			"key names use letters, digits, '-' and '_' (max 64)",
		)
	}
	return nil
}

// Path returns the encrypted key file path for name in dir.
func Path(dir, name string) string {
	return filepath.Join(dir, name+keyExt)
}

// Create generates a new keypair and stores it under name, encrypted with password.
func Create(dir, name string, password []byte) (chain.Account, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return chain.Account{}, fmt.Errorf("generating key: %w", err)
	}
	defer crypto.Zero(key)

	return store(dir, name, key, password)
}

// Import stores an existing base58 private key under name, encrypted with password.
func Import(dir, name, privateKey string, password []byte) (chain.Account, error) {
	key, err := solana.PrivateKeyFromBase58(strings.TrimSpace(privateKey))
	if err != nil {
		return chain.Account{}, solerr.WithSuggestion(
			solerr.WithCause(solerr.ErrInvalidInput, err),
			"expected a base58-encoded 64-byte Solana secret key",
		)
	}
	defer crypto.Zero(key)

	if err := validateKey(key); err != nil {
		return chain.Account{}, err
	}

	return store(dir, name, key, password)
}

func store(dir, name string, key solana.PrivateKey, password []byte) (chain.Account, error) {
	if err := ValidateName(name); err != nil {
		return chain.Account{}, err
	}

	account, err := chain.AccountFromKey(key.PublicKey())
	if err != nil {
		return chain.Account{}, err
	}

	plaintext, err := json.Marshal(keyFile{
		Version:    keyFileVersion,
		PublicKey:  account.String(),
		PrivateKey: key.String(),
	})
	if err != nil {
		return chain.Account{}, fmt.Errorf("encoding key file: %w", err)
	}
	defer crypto.Zero(plaintext)

	ciphertext, err := crypto.Encrypt(plaintext, password)
	if err != nil {
		return chain.Account{}, err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return chain.Account{}, fmt.Errorf("creating key directory: %w", err)
	}

	if err := fileutil.WriteExclusive(Path(dir, name), ciphertext, 0o600); err != nil {
		if errors.Is(err, os.ErrExist) {
			return chain.Account{}, solerr.WithDetails(solerr.ErrKeyExists, map[string]string{"name": name})
		}
		return chain.Account{}, fmt.Errorf("writing key file: %w", err)
	}

	pubPath := filepath.Join(dir, name+pubExt)
	_ = os.Remove(pubPath)
	if err := fileutil.WriteExclusive(pubPath, []byte(account.String()+"\n"), 0o644); err != nil {
		return chain.Account{}, fmt.Errorf("writing address file: %w", err)
	}

	return account, nil
}

// ReadAddress returns the public address stored next to the key without decrypting it.
func ReadAddress(dir, name string) (chain.Account, error) {
	if err := ValidateName(name); err != nil {
		return chain.Account{}, err
	}

	data, err := os.ReadFile(filepath.Join(dir, name+pubExt)) //nolint:gosec // G304: name is validated
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return chain.Account{}, notFound(name)
		}
		return chain.Account{}, fmt.Errorf("reading address file: %w", err)
	}

	return chain.ParseAccount(string(data))
}

// List returns the names of all keys in dir, sorted.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), keyExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), keyExt)
		if validName.MatchString(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// decode decrypts a key file and returns the secret key in locked memory.
func decode(ciphertext, password []byte) (*crypto.SecureBytes, chain.Account, error) {
	sb, err := crypto.DecryptSecure(ciphertext, password)
	if err != nil {
		return nil, chain.Account{}, err
	}
	defer sb.Destroy()

	var kf keyFile
	if err := json.Unmarshal(sb.Bytes(), &kf); err != nil {
		return nil, chain.Account{}, solerr.WithCause(solerr.ErrDecryptionFailed, err)
	}
	if kf.Version != keyFileVersion {
		return nil, chain.Account{}, solerr.WithDetails(
			solerr.ErrDecryptionFailed,
			map[string]string{"reason": fmt.Sprintf("unsupported key file version %d", kf.Version)},
		)
	}

	key, err := solana.PrivateKeyFromBase58(kf.PrivateKey)
	kf.PrivateKey = ""
	if err != nil {
		return nil, chain.Account{}, solerr.WithCause(solerr.ErrDecryptionFailed, err)
	}
	defer crypto.Zero(key)

	if err := validateKey(key); err != nil {
		return nil, chain.Account{}, err
	}

	account, err := chain.AccountFromKey(key.PublicKey())
	if err != nil {
		return nil, chain.Account{}, err
	}
	if account.String() != kf.PublicKey {
		return nil, chain.Account{}, solerr.WithDetails(
			solerr.ErrDecryptionFailed,
			map[string]string{"reason": "stored public key does not match secret key"},
		)
	}

	return crypto.SecureBytesFromSlice(key), account, nil
}

func validateKey(key solana.PrivateKey) error {
	if len(key) != 64 {
		return solerr.WithDetails(solerr.ErrInvalidInput, map[string]string{"reason": "secret key must be 64 bytes"})
	}
	return nil
}

func notFound(name string) error {
	return solerr.WithSuggestion(
		solerr.WithDetails(solerr.ErrProviderUnavailable, map[string]string{"name": name}),
		"create one with 'solsend key new --name "+name+"'",
	)
}
