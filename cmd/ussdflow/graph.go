package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/ussdflow/internal/presentation/graph"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the step machine as a Mermaid flowchart",
	Long: `Prints the steps a transaction walks through as a Mermaid flowchart.
Without --type the stored transaction is drawn, with its progress highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if typ, _ := cmd.Flags().GetString("type"); typ != "" {
			t, err := domain.ParseTransactionType(typ)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(t, nil))
			return nil
		}

		app, err := openOffline(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		p, err := app.Params.Load(cmd.Context(), app.Config.Controller.SessionKey)
		if errors.Is(err, domain.ErrParamsNotFound) {
			return errors.New("no transaction configured; pass --type")
		}
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(p.Type, graph.OverlayFor(*p)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("type", "t", "", "Draw this transaction type instead of the stored one")
}
