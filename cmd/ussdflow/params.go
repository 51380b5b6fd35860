package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/persistence/middleware"
	"github.com/spf13/cobra"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Inspect the persisted transaction parameters",
}

var paramsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored parameters with the PIN and phone masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openOffline(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		p, err := app.Params.Load(cmd.Context(), app.Config.Controller.SessionKey)
		if errors.Is(err, domain.ErrParamsNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No transaction configured.")
			return nil
		}
		if err != nil {
			return err
		}
		if p.PIN != "" {
			p.PIN = middleware.Mask
		}
		p.Phone = middleware.MaskPhone(p.Phone)

		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var paramsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openOffline(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Params.Delete(cmd.Context(), app.Config.Controller.SessionKey); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Parameters cleared.")
		return nil
	},
}

func init() {
	paramsCmd.AddCommand(paramsShowCmd, paramsClearCmd)
	rootCmd.AddCommand(paramsCmd)
}
