// Package router translates between transport messages and the engine.
//
// Inbound, it sanitizes raw text and normalizes it into a domain.Event:
// slash commands, main menu labels and free text. Outbound, it renders a
// domain.Reply as HTML, Markdown or plain text for the transport at hand.
package router
