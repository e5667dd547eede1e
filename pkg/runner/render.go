package runner

import (
	"io"
	"os"
	"strings"

	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/router"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ReplyRenderer turns a reply into terminal text.
type ReplyRenderer func(domain.Reply) string

// PlainRenderer renders replies without markup, followed by the menu options.
func PlainRenderer(r domain.Reply) string {
	return withOptions(router.Plain(r), r.Options)
}

// NewMarkdownRenderer renders the Markdown form of replies through glamour.
// It falls back to plain text if glamour cannot be initialized or fails.
func NewMarkdownRenderer() ReplyRenderer {
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithEmoji(),
	)
	if err != nil {
		return PlainRenderer
	}
	return func(r domain.Reply) string {
		out, err := tr.Render(router.Markdown(r))
		if err != nil {
			return PlainRenderer(r)
		}
		return withOptions(strings.Trim(out, "\n"), r.Options)
	}
}

// DefaultRenderer picks the Markdown renderer when w is a terminal.
func DefaultRenderer(w io.Writer) ReplyRenderer {
	if IsTerminal(w) {
		return NewMarkdownRenderer()
	}
	return PlainRenderer
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func withOptions(text string, options []string) string {
	if len(options) == 0 {
		return text
	}
	return text + "\n\n[" + strings.Join(options, "] [") + "]"
}

// colorize paints s with the accent color when out supports it.
func colorize(out io.Writer, s string) string {
	o := termenv.NewOutput(out)
	return o.String(s).Foreground(o.Color("#a78bfa")).Bold().String()
}
