package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/crypto"
	"github.com/mrz1836/solsend/internal/output"
	"github.com/mrz1836/solsend/internal/provider/keystore"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	keyName   string
	keyVerify bool
)

// keyCmd is the parent command for key management.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage encrypted signing keys",
	Long: `Create, import and inspect Solana keys. Keys are stored under
<home>/keys, encrypted with a password you choose.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyNewCmd = &cobra.Command{
	Use:     "new",
	Short:   "Generate a new key",
	Example: `  solsend key new --name main`,
	Args:    cobra.NoArgs,
	RunE:    runKeyNew,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an existing base58 secret key",
	Long: `Import an existing Solana secret key. The key is read from a hidden
prompt, never from a flag, so it does not end up in shell history.`,
	Example: `  solsend key import --name cold`,
	Args:    cobra.NoArgs,
	RunE:    runKeyImport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Show a key's public address",
	Long: `Show the public address of a key. With --verify the key file is
unlocked to prove the password works and matches the stored address.`,
	Example: `  solsend key address --name main
  solsend key address --name main --verify`,
	Args: cobra.NoArgs,
	RunE: runKeyAddress,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored keys",
	Args:  cobra.NoArgs,
	RunE:  runKeyList,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyNewCmd, keyImportCmd, keyAddressCmd, keyListCmd)

	for _, c := range []*cobra.Command{keyNewCmd, keyImportCmd, keyAddressCmd} {
		c.Flags().StringVarP(&keyName, "name", "n", defaultKeyName, "key name")
	}
	keyAddressCmd.Flags().BoolVar(&keyVerify, "verify", false, "unlock the key to check the password")
}

const defaultKeyName = "main"

type keyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func runKeyNew(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if err := keystore.ValidateName(keyName); err != nil {
		return err
	}

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer crypto.Zero(password)

	account, err := keystore.Create(cc.Config.KeyDir(), keyName, password)
	if err != nil {
		return err
	}
	cc.Logger.Debug("created key %s (%s)", keyName, account)

	return showKey(cmd, cc, keyName, account, "Key created")
}

func runKeyImport(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if err := keystore.ValidateName(keyName); err != nil {
		return err
	}

	secret, err := promptPasswordFn("Enter secret key (base58): ")
	if err != nil {
		return err
	}
	defer crypto.Zero(secret)
	if len(secret) == 0 {
		return solerr.WithSuggestion(solerr.ErrInvalidInput, "no secret key entered")
	}

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer crypto.Zero(password)

	account, err := keystore.Import(cc.Config.KeyDir(), keyName, string(secret), password)
	if err != nil {
		return err
	}
	cc.Logger.Debug("imported key %s (%s)", keyName, account)

	return showKey(cmd, cc, keyName, account, "Key imported")
}

func runKeyAddress(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	account, err := keystore.ReadAddress(cc.Config.KeyDir(), keyName)
	if err != nil {
		return err
	}

	if keyVerify {
		ctx, cancel := contextWithTimeout(cmd, cc.Config.GetProviderTimeout())
		defer cancel()

		p := keystore.New(cc.Config.KeyDir(), keyName, promptPasswordFn, nil, cc.Logger)
		unlocked, err := p.Connect(ctx)
		if err != nil {
			return err
		}
		_ = p.Disconnect(context.WithoutCancel(ctx))

		if !unlocked.Equals(account) {
			return solerr.WithDetails(solerr.ErrDecryptionFailed, map[string]string{
				"reason": "address file does not match the encrypted key",
			})
		}
	}

	if err := showKey(cmd, cc, keyName, account, ""); err != nil {
		return err
	}
	if !cc.Fmt.IsJSON() {
		output.RenderQR(cmd.OutOrStdout(), account.String())
	}
	return nil
}

func runKeyList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	dir := cc.Config.KeyDir()

	names, err := keystore.List(dir)
	if err != nil {
		return err
	}

	keys := make([]keyInfo, 0, len(names))
	for _, name := range names {
		info := keyInfo{Name: name}
		if account, err := keystore.ReadAddress(dir, name); err == nil {
			info.Address = account.String()
		}
		keys = append(keys, info)
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return writeJSON(w, keys)
	}
	if len(keys) == 0 {
		outln(w, "No keys found. Create one with 'solsend key new'.")
		return nil
	}

	table := output.NewTable("NAME", "ADDRESS")
	for _, k := range keys {
		table.AddRow(k.Name, k.Address)
	}
	return table.Render(w)
}

func showKey(cmd *cobra.Command, cc *CommandContext, name string, account chain.Account, headline string) error {
	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return writeJSON(w, keyInfo{Name: name, Address: account.String()})
	}
	writeKeyText(w, name, account, headline)
	return nil
}

func writeKeyText(w io.Writer, name string, account chain.Account, headline string) {
	if headline != "" {
		outln(w, headline)
		outln(w)
	}
	out(w, "  Name:    %s\n", name)
	out(w, "  Address: %s\n", account)
}
