package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadpop/leadpop/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configValidateCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/leadpop/leadpop.yaml", "Path to configuration file")
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  Base URL: %s\n", cfg.Server.BaseURL)
	fmt.Printf("  Database path: %s\n", cfg.Database.Path)
	fmt.Printf("  Webhook: %v\n", cfg.Webhook.Enabled)
	fmt.Printf("  Email notifications: %v\n", cfg.Notify.Enabled)
	fmt.Printf("  Metrics: %v\n", cfg.Metrics.Enabled)
	fmt.Printf("  Nonce check: %v\n", cfg.Auth.NonceSecret != "")

	return nil
}
