package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/solsend/internal/config"
	"github.com/mrz1836/solsend/internal/output"
	"github.com/mrz1836/solsend/internal/version"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

func TestApplyFlags(t *testing.T) {
	saved := []string{clusterFlag, rpcFlag, outputFormat}
	savedVerbose := verbose
	t.Cleanup(func() {
		clusterFlag, rpcFlag, outputFormat = saved[0], saved[1], saved[2]
		verbose = savedVerbose
	})

	c := config.Defaults()
	clusterFlag, rpcFlag, outputFormat, verbose = "mainnet-beta", "", "json", true
	applyFlags(c)
	assert.Equal(t, "mainnet-beta", c.Network.Cluster)
	assert.Equal(t, config.DefaultRPCFor("mainnet-beta"), c.Network.RPC)
	assert.Equal(t, "json", c.Output.DefaultFormat)
	assert.Equal(t, "debug", c.Logging.Level)

	c = config.Defaults()
	clusterFlag, rpcFlag, outputFormat, verbose = "", "https://rpc.example.com\n", "auto", false
	applyFlags(c)
	assert.Equal(t, "https://rpc.example.com", c.Network.RPC)
	assert.Equal(t, config.Defaults().Output.DefaultFormat, c.Output.DefaultFormat)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, solerr.ExitAuth, ExitCode(solerr.ErrUserRejected))
	assert.Equal(t, solerr.ExitSuccess, ExitCode(nil))
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t, output.FormatText)
	require.NoError(t, runVersion(env.command(), nil))
	assert.Contains(t, env.out.String(), "solsend "+Version)

	env = newTestEnv(t, output.FormatJSON)
	require.NoError(t, runVersion(env.command(), nil))
	assert.Contains(t, env.out.String(), `"version"`)
}

func TestVersion_Check(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"v9.9.9","html_url":"https://example.com/v9.9.9"}`))
	}))
	t.Cleanup(server.Close)

	origChecker, origCheck := newVersionChecker, versionCheck
	t.Cleanup(func() { newVersionChecker, versionCheck = origChecker, origCheck })
	newVersionChecker = func() *version.Checker { return version.NewChecker(server.URL, "", nil) }
	versionCheck = true

	env := newTestEnv(t, output.FormatText)
	require.NoError(t, runVersion(env.command(), nil))
	assert.Contains(t, env.out.String(), "A newer release is available: v9.9.9")
}

func TestCommandContext(t *testing.T) {
	env := newTestEnv(t, output.FormatText)
	cmd := env.command()
	assert.Same(t, env.cc, GetCmdContext(cmd))

	cc := NewCommandContext(config.Defaults(), config.NullLogger(), output.NewFormatter(output.FormatText, &bytes.Buffer{}, nil))
	client, err := cc.NewChain(cc.Config, cc.Logger)
	require.NoError(t, err)
	client.Close()
}
