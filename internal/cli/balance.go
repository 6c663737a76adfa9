package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/provider/keystore"
	"github.com/mrz1836/solsend/internal/transfer"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	balanceName    string
	balanceAddress string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the SOL balance of a key or address",
	Long: `Show the balance of a stored key, or of any address with --address.
The spendable amount is the balance minus the fee reserve: the largest
amount 'solsend send' will accept.`,
	Example: `  solsend balance --name main
  solsend balance --address 9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM`,
	Args: cobra.NoArgs,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&balanceName, "name", "n", defaultKeyName, "key name")
	balanceCmd.Flags().StringVar(&balanceAddress, "address", "", "address to query instead of a stored key")
}

type balanceResult struct {
	Address            string `json:"address"`
	Network            string `json:"network"`
	Lamports           uint64 `json:"lamports"`
	Balance            string `json:"balance"`
	SpendableLamports  uint64 `json:"spendable_lamports"`
	Spendable          string `json:"spendable"`
	FeeReserveLamports uint64 `json:"fee_reserve_lamports"`
}

func runBalance(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	account, err := balanceAccount(cc)
	if err != nil {
		return err
	}

	client, err := cc.NewChain(cc.Config, cc.Logger)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := contextWithTimeout(cmd, cc.Config.GetConfirmTimeout())
	defer cancel()

	lamports, err := client.GetBalance(ctx, account)
	if err != nil {
		return err
	}

	reserve := cc.Config.GetFeeReserve()
	spendable := transfer.SpendableBalance(lamports, reserve)
	result := balanceResult{
		Address:            account.String(),
		Network:            cc.Config.GetNetwork().String(),
		Lamports:           lamports,
		Balance:            chain.FormatSOL(lamports),
		SpendableLamports:  spendable,
		Spendable:          chain.FormatSOL(spendable),
		FeeReserveLamports: reserve,
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return writeJSON(w, result)
	}

	out(w, "  Address:   %s\n", result.Address)
	out(w, "  Network:   %s\n", result.Network)
	out(w, "  Balance:   %s SOL\n", result.Balance)
	out(w, "  Spendable: %s SOL (keeps %s SOL for fees)\n", result.Spendable, chain.FormatSOL(reserve))
	return nil
}

func balanceAccount(cc *CommandContext) (chain.Account, error) {
	if balanceAddress != "" {
		return chain.ParseAccount(balanceAddress)
	}
	return keystore.ReadAddress(cc.Config.KeyDir(), balanceName)
}
