package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/fieldbot/pkg/runner"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search the site dataset once",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		term, err := app.Bot.Sanitize(strings.Join(args, " "))
		if err != nil {
			return err
		}
		reply, _, err := app.Bot.Search(cmd.Context(), term)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, runner.DefaultRenderer(os.Stdout)(reply))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
