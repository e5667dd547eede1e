package main

import (
	"os"

	"github.com/aretw0/fieldbot"
	"github.com/aretw0/fieldbot/internal/cli"
	"github.com/aretw0/fieldbot/internal/presentation/tui"
	"github.com/aretw0/fieldbot/pkg/runner"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the bot in the terminal",
	Long: `Starts an interactive conversation for one local user.
Type a menu label or a command such as /help. Type 'exit' or press Ctrl+D to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		user, _ := cmd.Flags().GetString("user")
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			if err := startWatcher(sigCtx, app); err != nil {
				return err
			}
		}

		tui.PrintBanner(os.Stdout, fieldbot.Version)
		r := runner.New(app.Bot,
			runner.WithUserID(user),
			runner.WithLogger(cli.NewLogger(app.Config.Log.Level)),
		)
		err = r.Run(sigCtx)
		if sigCtx.Signal() != nil {
			cli.PrintSystemMessage(os.Stdout, "Interrupted.")
		}
		if cli.IsInterrupted(err) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("user", runner.DefaultUserID, "User id of the local conversation")
	chatCmd.Flags().Bool("watch", false, "Reload the dataset file when it changes")
}
