package main

import (
	"os"
	"time"

	"github.com/aretw0/fieldbot/internal/cli"
	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Fetch the dataset and report its size",
	Long:  `Fetches and parses the configured dataset, which checks that the source is reachable and readable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		snap, err := app.Bot.ReloadDataset(cmd.Context())
		if err != nil {
			return err
		}
		cli.PrintSystemMessage(os.Stdout, "Loaded %d records (%d columns) from %s at %s.",
			snap.Len(), len(snap.Columns), snap.Source, snap.LoadedAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}
