package main

import (
	"fmt"
	"os"

	"github.com/aretw0/ussdflow/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Browse recorded transaction outcomes",
}

var ledgerListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List outcomes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		plain, _ := cmd.Flags().GetBool("plain")

		app, err := openOffline(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		outcomes, err := app.Ledger.List(cmd.Context(), limit)
		if err != nil {
			return err
		}

		render := tui.PlainRenderer()
		if !plain && term.IsTerminal(int(os.Stdout.Fd())) {
			render = tui.NewRenderer()
		}
		out, err := render(tui.OutcomesMarkdown(outcomes))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	ledgerListCmd.Flags().IntP("limit", "n", 20, "Maximum number of outcomes (0 for all)")
	ledgerListCmd.Flags().Bool("plain", false, "Print markdown without styling")
	ledgerCmd.AddCommand(ledgerListCmd)
	rootCmd.AddCommand(ledgerCmd)
}
