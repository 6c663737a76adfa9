package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/solsend/internal/chain"
	"github.com/mrz1836/solsend/internal/output"
	"github.com/mrz1836/solsend/internal/provider/keystore"
	"github.com/mrz1836/solsend/internal/service/transfer"
	solerr "github.com/mrz1836/solsend/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	sendName   string
	sendTo     string
	sendAmount string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send SOL to an address",
	Long: `Send an amount of SOL from a stored key to a destination address.

Both the destination and the amount are required. The transfer is shown in
full and is signed only after you answer "y" at the prompt.`,
	Example: `  solsend send --name main --to 9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM --amount 0.25`,
	Args:    cobra.NoArgs,
	RunE:    runSend,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendName, "name", "n", defaultKeyName, "key to send from")
	sendCmd.Flags().StringVar(&sendTo, "to", "", "destination address (required)")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "amount in SOL, e.g. 0.25 (required)")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")
}

type sendResult struct {
	Signature string `json:"signature"`
	From      string `json:"from"`
	To        string `json:"to"`
	Lamports  uint64 `json:"lamports"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	Network   string `json:"network"`
}

func runSend(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	req, err := parseSendRequest(sendTo, sendAmount)
	if err != nil {
		return err
	}

	client, err := cc.NewChain(cc.Config, cc.Logger)
	if err != nil {
		return err
	}
	defer client.Close()

	wallet := keystore.New(cc.Config.KeyDir(), sendName, promptPasswordFn, client, cc.Logger)
	svc, err := transfer.NewService(&transfer.Config{
		Provider:        wallet,
		Chain:           client,
		Confirmer:       &promptConfirmer{w: planWriter(cmd, cc)},
		Observer:        &progressObserver{formatter: cc.Fmt},
		Logger:          cc.Logger,
		FeeReserve:      cc.Config.GetFeeReserve(),
		ProviderTimeout: cc.Config.GetProviderTimeout(),
		Network:         cc.Config.GetNetwork().String(),
		Commitment:      cc.Config.GetCommitment(),
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if _, err := svc.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = svc.Disconnect(context.WithoutCancel(ctx)) }()

	result, err := svc.Send(ctx, req)
	if err != nil {
		return err
	}

	return displaySendResult(cmd, cc, result)
}

// parseSendRequest validates the destination and amount typed by the user.
func parseSendRequest(to, amount string) (transfer.SendRequest, error) {
	dest, err := chain.ParseAccount(to)
	if err != nil {
		return transfer.SendRequest{}, solerr.WithSuggestion(
			solerr.WithDetails(solerr.ErrInvalidRecipient, map[string]string{"to": to}),
			"--to must be a base58 Solana address",
		)
	}

	lamports, err := chain.ParseSOL(amount)
	if err != nil {
		return transfer.SendRequest{}, err
	}
	if lamports == 0 {
		return transfer.SendRequest{}, solerr.WithDetails(solerr.ErrInvalidAmount, map[string]string{
			"reason": "amount must be greater than zero",
		})
	}

	return transfer.SendRequest{To: dest, Amount: lamports}, nil
}

// planWriter keeps stdout clean for JSON output.
func planWriter(cmd *cobra.Command, cc *CommandContext) io.Writer {
	if cc.Fmt.IsJSON() {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

// promptConfirmer shows the transfer plan and asks the user to approve it.
type promptConfirmer struct {
	w io.Writer
}

func (p *promptConfirmer) ConfirmTransfer(_ context.Context, plan transfer.TransferPlan) (bool, error) {
	displayTransferPlan(p.w, plan)
	return promptConfirmFn("Send this transaction? [y/N]: ")
}

func displayTransferPlan(w io.Writer, plan transfer.TransferPlan) {
	outln(w)
	outln(w, "═══════════════════════════════════════════════════════════════")
	outln(w, "                    TRANSACTION DETAILS")
	outln(w, "═══════════════════════════════════════════════════════════════")
	outln(w)
	out(w, "  Network:   %s\n", plan.Network)
	out(w, "  From:      %s\n", plan.From)
	out(w, "  To:        %s\n", plan.To)
	out(w, "  Amount:    %s SOL (%d lamports)\n", chain.FormatSOL(plan.Amount), plan.Amount)
	out(w, "  Balance:   %s SOL\n", chain.FormatSOL(plan.Balance))
	out(w, "  Remaining: %s SOL (fee reserve %s SOL)\n",
		chain.FormatSOL(plan.Balance-plan.Amount), chain.FormatSOL(plan.FeeReserve))
	outln(w)
	outln(w, "═══════════════════════════════════════════════════════════════")
}

// progressObserver reports long-running steps.
type progressObserver struct {
	transfer.NopObserver
	formatter *output.Formatter
}

func (o *progressObserver) OnStateChange(state transfer.State) {
	switch state {
	case transfer.StateAwaitingSignature:
		o.formatter.Infof("Signing and broadcasting...")
	case transfer.StateConfirming:
		o.formatter.Infof("Waiting for confirmation...")
	default:
	}
}

func displaySendResult(cmd *cobra.Command, cc *CommandContext, result *transfer.Result) error {
	res := sendResult{
		Signature: result.Signature,
		From:      result.From.String(),
		To:        result.To.String(),
		Lamports:  result.Amount,
		Amount:    chain.FormatSOL(result.Amount),
		Status:    result.Status,
		Network:   cc.Config.GetNetwork().String(),
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return writeJSON(w, res)
	}

	outln(w, "\nTransaction confirmed!")
	outln(w)
	out(w, "  Signature: %s\n", res.Signature)
	out(w, "  Status:    %s\n", res.Status)
	out(w, "  Amount:    %s SOL\n", res.Amount)
	out(w, "  To:        %s\n", res.To)
	return nil
}
