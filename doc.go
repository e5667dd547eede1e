/*
Package fieldbot is a chat-bot conversation engine for field engineers.

Each user talks to the bot through a small state machine: from the main menu
they either search a site spreadsheet or submit a change-device request to a
SOAP provisioning gateway. The engine is transport-agnostic; adapters for HTTP,
MCP and an interactive terminal live under pkg/adapters and pkg/runner.

# Concepts

  - Session: the dialog state of one user id (idle, searching, changing_device).
    Events for the same user are serialized; different users never wait on each other.
  - Snapshot: the parsed spreadsheet, loaded on first use and swapped atomically on reload.
  - Reply: lines of text, bold and code spans, rendered per transport by pkg/router.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/fieldbot"
		"github.com/aretw0/fieldbot/pkg/dataset"
		"github.com/aretw0/fieldbot/pkg/provisioning"
		"github.com/aretw0/fieldbot/pkg/router"
	)

	func main() {
		bot, err := fieldbot.New(
			fieldbot.WithDatasetSource(dataset.FileSource{Path: "sites.xlsx"}),
			fieldbot.WithProvisioner(provisioning.NewClient("https://gw.example/ws", provisioning.Credentials{})),
		)
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		for _, msg := range []string{"/start", "Search Site", "HAN01"} {
			reply, sess, err := bot.HandleText(ctx, "user-1", msg)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("[%s]\n%s\n", sess.State, router.Plain(reply))
		}
	}
*/
package fieldbot
