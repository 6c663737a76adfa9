// Package cli implements the solsend command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/config"
	"github.com/mrz1836/solsend/internal/metrics"
	"github.com/mrz1836/solsend/internal/output"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	clusterFlag  string
	rpcFlag      string

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "solsend",
	Short: "Send SOL from an encrypted local key",
	Long: `solsend keeps a Solana key in a password-encrypted file and sends SOL
to a destination you choose. Every transfer is shown in full and must be
approved at the prompt before it is signed.

Example:
  solsend key new --name main
  solsend balance --name main
  solsend send --name main --to <address> --amount 0.25`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initGlobals(); err != nil {
			return err
		}
		if GetCmdContext(cmd) == nil {
			SetCmdContext(cmd, NewCommandContext(cfg, logger, formatter))
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(os.Stderr, err, format)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return solerr.ExitCode(err)
}

// initGlobals loads configuration and sets up the logger and formatter.
func initGlobals() error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = config.Defaults()
	case err != nil:
		return err
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	level := config.ParseLogLevel(cfg.GetLoggingLevel())
	logger, err = config.NewLogger(level, cfg.GetLoggingFile())
	if err != nil {
		logger = config.NullLogger()
	}

	format := output.DetectFormat(os.Stdout, output.ParseFormat(cfg.GetOutputFormat()))
	formatter = output.NewFormatter(format, os.Stdout, os.Stderr)
	return nil
}

// applyFlags overrides configuration with command-line flags.
func applyFlags(c *config.Config) {
	if clusterFlag != "" {
		c.Network.Cluster = clusterFlag
		if rpcFlag == "" {
			c.Network.RPC = config.DefaultRPCFor(chain.Network(clusterFlag))
		}
	}
	if rpcFlag != "" {
		c.Network.RPC = config.SanitizeURL(rpcFlag)
	}
	if verbose {
		c.Output.Verbose = true
		c.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != string(output.FormatAuto) {
		c.Output.DefaultFormat = outputFormat
	}
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		logger.WithFields(map[string]any{"metrics": metrics.Global.Snapshot()}).Debug("run complete")
		_ = logger.Close()
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&homeDir, "home", "", "solsend data directory (default: ~/.solsend)")
	flags.StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&clusterFlag, "cluster", "", "Solana cluster: mainnet-beta, devnet, testnet, localnet")
	flags.StringVar(&rpcFlag, "rpc", "", "Solana JSON-RPC URL (overrides the cluster default)")
}
