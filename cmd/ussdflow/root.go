package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/ussdflow/internal/cli"
	"github.com/aretw0/ussdflow/internal/config"
	"github.com/aretw0/ussdflow/pkg/adapters/sim"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ussdflow",
	Short: "ussdflow automates mobile-money USSD dialogs",
	Long: `ussdflow watches the phone's USSD dialogs and answers them for one
configured transaction: menus, phone number, amount, confirmation and PIN.

It runs against an Android device over adb or against an in-process simulator.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "ussdflow.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "Dotenv files to load (default .env)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("host", "", "Override host (adb or sim)")
	rootCmd.PersistentFlags().String("serial", "", "Override adb.serial")
}

// loadConfig reads the configuration and applies the global flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")

	cfg, err := config.Load(path, envFiles...)
	if err != nil {
		return nil, nil, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Host = v
	}
	if v, _ := cmd.Flags().GetString("serial"); v != "" {
		cfg.ADB.Serial = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := cli.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openApp wires the configured host.
func openApp(cmd *cobra.Command) (*cli.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.Build(cfg, logger, cli.Deps{})
}

// openOffline wires stores and ledger without touching a device.
func openOffline(cmd *cobra.Command) (*cli.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.Build(cfg, logger, cli.Deps{Host: sim.New(sim.WithAvailable(false))})
}
