package domain

import "strings"

// SpanKind is the semantic marker of a piece of reply text.
type SpanKind string

const (
	SpanText SpanKind = "text"
	SpanBold SpanKind = "bold"
	SpanCode SpanKind = "code"
)

// Span is a run of text with a single marker.
type Span struct {
	Kind SpanKind `json:"kind"`
	Text string   `json:"text"`
}

// Line is an ordered sequence of spans rendered on one line.
type Line []Span

// Reply is the payload a router renders back to the transport.
type Reply struct {
	Lines []Line `json:"lines"`

	// Options are menu labels the router may offer as quick replies.
	Options []string `json:"options,omitempty"`
}

// ReplyBuilder assembles a Reply line by line.
type ReplyBuilder struct {
	reply Reply
	cur   Line
}

// NewReply starts an empty reply.
func NewReply() *ReplyBuilder {
	return &ReplyBuilder{}
}

// Text appends plain text to the current line.
func (b *ReplyBuilder) Text(s string) *ReplyBuilder {
	return b.add(SpanText, s)
}

// Bold appends emphasized text to the current line.
func (b *ReplyBuilder) Bold(s string) *ReplyBuilder {
	return b.add(SpanBold, s)
}

// Code appends a literal span to the current line.
func (b *ReplyBuilder) Code(s string) *ReplyBuilder {
	return b.add(SpanCode, s)
}

// Line terminates the current line.
func (b *ReplyBuilder) Line() *ReplyBuilder {
	b.reply.Lines = append(b.reply.Lines, b.cur)
	b.cur = nil
	return b
}

// Blank appends an empty line.
func (b *ReplyBuilder) Blank() *ReplyBuilder {
	if len(b.cur) > 0 {
		b.Line()
	}
	return b.Line()
}

// Lines appends already built lines.
func (b *ReplyBuilder) Lines(lines ...Line) *ReplyBuilder {
	if len(b.cur) > 0 {
		b.Line()
	}
	b.reply.Lines = append(b.reply.Lines, lines...)
	return b
}

// Options sets the quick-reply menu.
func (b *ReplyBuilder) Options(opts ...string) *ReplyBuilder {
	b.reply.Options = opts
	return b
}

// Build returns the reply, closing any unterminated line.
func (b *ReplyBuilder) Build() Reply {
	if len(b.cur) > 0 {
		b.Line()
	}
	return b.reply
}

func (b *ReplyBuilder) add(kind SpanKind, s string) *ReplyBuilder {
	if s == "" {
		return b
	}
	b.cur = append(b.cur, Span{Kind: kind, Text: s})
	return b
}

// String flattens the reply into unmarked text, one line per Line.
func (r Reply) String() string {
	var sb strings.Builder
	for i, line := range r.Lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, span := range line {
			sb.WriteString(span.Text)
		}
	}
	return sb.String()
}
