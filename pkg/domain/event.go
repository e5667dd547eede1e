package domain

import "fmt"

// EventKind tells the engine how an inbound message reached the router.
type EventKind string

const (
	// EventCommand is an explicit slash command (e.g. /start, /back).
	EventCommand EventKind = "command"
	// EventButton is a menu label sent as plain text. It acts as a command
	// only while the user is choosing from the menu.
	EventButton EventKind = "button"
	// EventText is free text.
	EventText EventKind = "text"
)

// Command identifies a fixed menu or navigation action.
type Command string

const (
	CommandNone         Command = ""
	CommandStart        Command = "start"
	CommandSearch       Command = "search"
	CommandChangeDevice Command = "change_device"
	CommandHelp         Command = "help"
	CommandReset        Command = "reset"
)

// Event is one normalized inbound message.
type Event struct {
	Kind    EventKind `json:"kind"`
	Command Command   `json:"command,omitempty"`
	Text    string    `json:"text"`
}

// CommandEvent builds an explicit command event.
func CommandEvent(c Command) Event {
	return Event{Kind: EventCommand, Command: c, Text: "/" + string(c)}
}

// TextEvent builds a free-text event.
func TextEvent(text string) Event {
	return Event{Kind: EventText, Text: text}
}

// Main menu labels.
const (
	ButtonSearch       = "Search Site"
	ButtonChangeDevice = "Change Device"
	ButtonHelp         = "Help"
)

// MainMenu is the ordered list of menu labels offered with the welcome message.
var MainMenu = []string{ButtonSearch, ButtonChangeDevice, ButtonHelp}

// ButtonEvent builds a menu button event for label.
// The second result is false when label is not a menu label.
func ButtonEvent(label string) (Event, bool) {
	var c Command
	switch label {
	case ButtonSearch:
		c = CommandSearch
	case ButtonChangeDevice:
		c = CommandChangeDevice
	case ButtonHelp:
		c = CommandHelp
	default:
		return Event{}, false
	}
	return Event{Kind: EventButton, Command: c, Text: label}, true
}

// Validate reports whether the event is well formed.
func (e Event) Validate() error {
	switch e.Kind {
	case EventText:
		return nil
	case EventCommand, EventButton:
		switch e.Command {
		case CommandStart, CommandSearch, CommandChangeDevice, CommandHelp, CommandReset:
			if e.Kind == EventButton && (e.Command == CommandStart || e.Command == CommandReset) {
				return fmt.Errorf("%w: %q is not a menu button", ErrInvalidEvent, e.Command)
			}
			return nil
		}
		return fmt.Errorf("%w: unknown command %q", ErrInvalidEvent, e.Command)
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
}
