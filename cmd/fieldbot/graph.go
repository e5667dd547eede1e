package main

import (
	"fmt"

	"github.com/aretw0/fieldbot/internal/presentation/graph"
	"github.com/aretw0/fieldbot/internal/runtime"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the dialog state diagram",
	Long:  `Outputs a Mermaid diagram (graph TD) of the dialog states and the messages that move between them.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(graph.GenerateMermaid(runtime.Edges(), nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
