package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/fieldbot"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of fieldbot",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fieldbot version %s\n", strings.TrimSpace(fieldbot.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
