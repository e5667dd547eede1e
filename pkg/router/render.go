package router

import (
	"strings"

	"github.com/aretw0/fieldbot/pkg/domain"
)

// Format selects a reply rendering.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatPlain    Format = "plain"
)

// Render renders r in the given format. Unknown formats render as plain text.
func Render(r domain.Reply, f Format) string {
	switch f {
	case FormatHTML:
		return HTML(r)
	case FormatMarkdown:
		return Markdown(r)
	}
	return Plain(r)
}

// htmlEscaper escapes what chat HTML parse modes reserve. Quotes stay literal.
var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// markdownEscaper backslash-escapes inline Markdown markers.
var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"*", "\\*",
	"_", "\\_",
	"`", "\\`",
	"[", "\\[",
	"]", "\\]",
)

// HTML renders bold as <b> and code as <code>, escaping all text.
func HTML(r domain.Reply) string {
	return render(r, "\n", func(sb *strings.Builder, s domain.Span) {
		text := htmlEscaper.Replace(s.Text)
		switch s.Kind {
		case domain.SpanBold:
			sb.WriteString("<b>" + text + "</b>")
		case domain.SpanCode:
			sb.WriteString("<code>" + text + "</code>")
		default:
			sb.WriteString(text)
		}
	})
}

// Markdown renders bold as **text** and code as `text`.
// Text and bold spans are escaped; code spans are fenced to fit their content.
// Lines end in a hard break so Markdown viewers keep the reply layout.
func Markdown(r domain.Reply) string {
	return render(r, "  \n", func(sb *strings.Builder, s domain.Span) {
		switch s.Kind {
		case domain.SpanBold:
			sb.WriteString("**" + markdownEscaper.Replace(s.Text) + "**")
		case domain.SpanCode:
			sb.WriteString(codeSpan(s.Text))
		default:
			sb.WriteString(markdownEscaper.Replace(s.Text))
		}
	})
}

// codeSpan fences text with one backtick more than its longest backtick run.
// Content touching a backtick is padded with a space, which Markdown strips.
func codeSpan(text string) string {
	longest, run := 0, 0
	for _, c := range text {
		if c == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	fence := strings.Repeat("`", longest+1)
	if strings.HasPrefix(text, "`") || strings.HasSuffix(text, "`") {
		text = " " + text + " "
	}
	return fence + text + fence
}

// Plain drops all markers.
func Plain(r domain.Reply) string {
	return r.String()
}

func render(r domain.Reply, sep string, span func(*strings.Builder, domain.Span)) string {
	var sb strings.Builder
	for i, line := range r.Lines {
		if i > 0 {
			sb.WriteString(sep)
		}
		for _, s := range line {
			span(&sb, s)
		}
	}
	return sb.String()
}
