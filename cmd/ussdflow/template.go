package main

import (
	"fmt"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/templates"
	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Work with the USSD code catalog",
}

var templateRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the USSD code for a transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := templates.NewStore(cfg.Templates.Path)
		if err != nil {
			return err
		}

		typ, _ := cmd.Flags().GetString("type")
		t, err := domain.ParseTransactionType(typ)
		if err != nil {
			return err
		}
		phone, _ := cmd.Flags().GetString("phone")
		amount, _ := cmd.Flags().GetString("amount")
		merchant, _ := cmd.Flags().GetString("merchant")
		network, _ := cmd.Flags().GetString("network")

		phone = templates.NormalizePhone(phone)
		n := templates.ParseNetwork(network)
		if n == templates.Unknown {
			n = templates.DetectNetwork(phone)
		}
		code, err := store.Render(t, n, templates.Values{Amount: amount, Phone: phone, Merchant: merchant})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	},
}

var templateDetectCmd = &cobra.Command{
	Use:   "detect <phone>",
	Short: "Print the network a phone number belongs to",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		phone := templates.NormalizePhone(args[0])
		n := templates.DetectNetwork(phone)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tvalid=%t\n", phone, n.DisplayName(), templates.ValidatePhone(phone))
	},
}

func init() {
	templateRenderCmd.Flags().StringP("type", "t", "", "Transaction type")
	templateRenderCmd.Flags().String("phone", "", "Counterpart phone number")
	templateRenderCmd.Flags().String("amount", "", "Amount")
	templateRenderCmd.Flags().String("merchant", "", "Merchant ID")
	templateRenderCmd.Flags().String("network", "", "Network (default: detected from the phone)")
	_ = templateRenderCmd.MarkFlagRequired("type")

	templateCmd.AddCommand(templateRenderCmd, templateDetectCmd)
	rootCmd.AddCommand(templateCmd)
}
