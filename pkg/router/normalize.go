package router

import (
	"strings"

	"github.com/aretw0/fieldbot/pkg/domain"
)

// commands maps slash command names, lower-cased, to engine commands.
var commands = map[string]domain.Command{
	"start":         domain.CommandStart,
	"back":          domain.CommandReset,
	"reset":         domain.CommandReset,
	"menu":          domain.CommandReset,
	"help":          domain.CommandHelp,
	"search":        domain.CommandSearch,
	"change":        domain.CommandChangeDevice,
	"change_device": domain.CommandChangeDevice,
}

// Normalize classifies a sanitized message.
//
// A leading "/" followed by a known name is a command; names are
// case-insensitive and may carry a "@botname" suffix. A message that is
// exactly a main menu label is a button. Everything else, unknown slash
// commands included, is free text and is passed on unmodified.
func Normalize(text string) domain.Event {
	trimmed := strings.TrimSpace(text)

	if name, ok := strings.CutPrefix(trimmed, "/"); ok && name != "" && !strings.ContainsAny(name, " \t\r\n") {
		name, _, _ = strings.Cut(name, "@")
		if c, known := commands[strings.ToLower(name)]; known {
			return domain.Event{Kind: domain.EventCommand, Command: c, Text: trimmed}
		}
	}

	if ev, ok := domain.ButtonEvent(trimmed); ok {
		return ev
	}
	return domain.TextEvent(text)
}

// Parse sanitizes text and normalizes it.
func Parse(text string) (domain.Event, error) {
	return ParseLimit(text, DefaultMaxInputSize)
}

// ParseLimit is Parse with an explicit size limit, see SanitizeLimit.
func ParseLimit(text string, limit int) (domain.Event, error) {
	clean, err := SanitizeLimit(text, limit)
	if err != nil {
		return domain.Event{}, err
	}
	return Normalize(clean), nil
}
