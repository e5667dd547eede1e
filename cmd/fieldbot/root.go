package main

import (
	"fmt"
	"os"

	"github.com/aretw0/fieldbot/internal/cli"
	"github.com/aretw0/fieldbot/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fieldbot",
	Short: "Field Bot answers site lookups and device change requests",
	Long: `Field Bot is a chat bot for field technicians. It searches the site
workbook and submits device change requests to the provisioning gateway.`,
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
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
}

// loadApp reads the configuration selected by the persistent flags and builds the bot.
func loadApp(cmd *cobra.Command) (*cli.App, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cli.Build(cfg, cli.NewLogger(cfg.Log.Level))
}
