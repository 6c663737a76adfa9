package cli

import (
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/solsend/internal/version"
)

// Build information, set with -ldflags at release time.
//
//nolint:gochecknoglobals // Set by the linker
var (
	Version = "dev"
	Commit  = "none"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var (
	versionCheck bool

	// newVersionChecker is replaced in tests.
	newVersionChecker = func() *version.Checker { return version.NewChecker("", "", nil) }
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print version information. With --check, also ask GitHub whether a
newer release is available.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check for a newer release")
}

type versionInfo struct {
	Version string        `json:"version"`
	Commit  string        `json:"commit"`
	Go      string        `json:"go"`
	OS      string        `json:"os"`
	Arch    string        `json:"arch"`
	Update  *version.Info `json:"update,omitempty"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := versionInfo{
		Version: Version,
		Commit:  Commit,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}

	if versionCheck {
		ctx, cancel := contextWithTimeout(cmd, 20*time.Second)
		defer cancel()

		update, err := newVersionChecker().Check(ctx, Version)
		if err != nil {
			return err
		}
		info.Update = update
	}

	w := cmd.OutOrStdout()
	if cc := GetCmdContext(cmd); cc != nil && cc.Fmt.IsJSON() {
		return writeJSON(w, info)
	}

	out(w, "solsend %s (%s) %s %s/%s\n", info.Version, info.Commit, info.Go, info.OS, info.Arch)
	if u := info.Update; u != nil {
		if u.IsNewer {
			out(w, "A newer release is available: %s\n  %s\n", u.Latest, u.URL)
		} else {
			out(w, "You are running the latest release (%s).\n", u.Latest)
		}
	}
	return nil
}
