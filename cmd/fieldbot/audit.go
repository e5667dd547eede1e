package main

import (
	"encoding/json"
	"os"

	"github.com/aretw0/fieldbot/internal/cli"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print recent provisioning audit entries",
	Long: `Prints the newest provisioning audit entries as JSON lines.
Entries outlive the process only when audit.redis_addr is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		n, _ := cmd.Flags().GetInt("limit")
		entries, err := app.RecentAudit(cmd.Context(), n)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			cli.PrintSystemMessage(os.Stderr, "No audit entries found.")
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().IntP("limit", "n", 20, "Number of entries to print")
}
