package main

import (
	"os"

	"github.com/aretw0/ussdflow/internal/cli"
	"github.com/aretw0/ussdflow/internal/presentation/tui"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a transaction against the in-process simulator",
	Long: `Runs one transaction end to end against a scripted carrier menu, printing
every transition. Nothing is persisted. Without --pin the PIN is read from the
terminal when the flow asks for it.

A custom script is a YAML file:

  screens:
    - text: "1. Transfer Money\n2. Cash Out"
      input: true
    - text: "Transaction successful. Ref: ABC123"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		typ, _ := cmd.Flags().GetString("type")
		t, err := domain.ParseTransactionType(typ)
		if err != nil {
			return err
		}
		opts := cli.SimulateOptions{Setup: domain.Setup{Type: t}, In: os.Stdin, Out: cmd.OutOrStdout()}
		opts.Setup.Phone, _ = cmd.Flags().GetString("phone")
		opts.Setup.Amount, _ = cmd.Flags().GetString("amount")
		opts.Setup.UseCustomPin, _ = cmd.Flags().GetBool("custom-pin")
		opts.Code, _ = cmd.Flags().GetString("code")
		opts.Network, _ = cmd.Flags().GetString("network")
		opts.Merchant, _ = cmd.Flags().GetString("merchant")
		opts.Script, _ = cmd.Flags().GetString("script")
		opts.PIN, _ = cmd.Flags().GetString("pin")
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")

		opts.Render = tui.PlainRenderer()
		if plain, _ := cmd.Flags().GetBool("plain"); !plain && term.IsTerminal(int(os.Stdout.Fd())) {
			opts.Render = tui.NewRenderer()
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		_, err = cli.RunSimulate(ctx, cfg, logger, opts)
		return err
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringP("type", "t", "", "Transaction type (cash_in, cash_out, airtime_transfer, pay_merchant, balance, commission)")
	simulateCmd.Flags().String("phone", "", "Counterpart phone number")
	simulateCmd.Flags().String("amount", "", "Amount")
	simulateCmd.Flags().String("pin", "", "PIN submitted when the flow asks for one")
	simulateCmd.Flags().Bool("custom-pin", false, "Require a PIN instead of the default one")
	simulateCmd.Flags().String("code", "", "USSD code to dial (default: rendered from the template catalog)")
	simulateCmd.Flags().String("network", "", "Network used to render the code (default: detected from the phone)")
	simulateCmd.Flags().String("merchant", "", "Merchant ID for pay_merchant")
	simulateCmd.Flags().String("script", "", "YAML screen script (default: built-in menu)")
	simulateCmd.Flags().Duration("timeout", cli.DefaultSimulateTimeout, "Give up after this long")
	simulateCmd.Flags().Bool("plain", false, "Print markdown without styling")
	_ = simulateCmd.MarkFlagRequired("type")
}
