package cli

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/solsend/internal/provider"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

func TestReadConfirmation(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{" YES \n", true},
		{"y", true},
		{"n\n", false},
		{"\n", false},
		{"sure\n", false},
	}

	for _, tt := range tests {
		got, err := readConfirmation(bufio.NewReader(strings.NewReader(tt.input)))
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}
}

func TestReadConfirmation_EOF(t *testing.T) {
	got, err := readConfirmation(bufio.NewReader(strings.NewReader("")))
	require.ErrorIs(t, err, provider.ErrPromptCanceled)
	assert.False(t, got)
}

func TestPromptNewPassword(t *testing.T) {
	orig := promptPasswordFn
	t.Cleanup(func() { promptPasswordFn = orig })

	answers := func(values ...string) {
		i := 0
		promptPasswordFn = func(string) ([]byte, error) {
			v := values[i]
			i++
			return []byte(v), nil
		}
	}

	answers("longenough", "longenough")
	pw, err := promptNewPassword()
	require.NoError(t, err)
	assert.Equal(t, "longenough", string(pw))

	answers("short")
	_, err = promptNewPassword()
	require.ErrorIs(t, err, solerr.ErrInvalidInput)

	answers("longenough", "different1")
	_, err = promptNewPassword()
	require.ErrorIs(t, err, solerr.ErrInvalidInput)
}
