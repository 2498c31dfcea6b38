package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairgate",
		Short: "Channel pairing approval gateway",
		Long: `pairgate lets an operator approve pending pairing requests issued by
external chat channels, over a WebSocket gateway or a REST API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.pairgate/config.json5)")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(pairCmd())

	return cmd
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pairgate", "config.json5")
}
