package search

import (
	"fmt"

	"github.com/aretw0/fieldbot/pkg/domain"
)

// DefaultMaxRendered is how many matches are rendered in full.
const DefaultMaxRendered = 5

// DefaultExcluded lists columns that are identifiers with no value to end users.
var DefaultExcluded = []string{"No", "BTS Name"}

// Formatter renders search results into replies.
type Formatter struct {
	excluded    map[string]struct{}
	maxRendered int
}

// NewFormatter creates a formatter hiding the given columns.
// A non-positive maxRendered selects DefaultMaxRendered.
func NewFormatter(excluded []string, maxRendered int) *Formatter {
	if maxRendered <= 0 {
		maxRendered = DefaultMaxRendered
	}
	f := &Formatter{
		excluded:    make(map[string]struct{}, len(excluded)),
		maxRendered: maxRendered,
	}
	for _, c := range excluded {
		f.excluded[c] = struct{}{}
	}
	return f
}

// FormatRecord renders one record as "label: value" lines in column order.
func (f *Formatter) FormatRecord(rec domain.Record) []domain.Line {
	var lines []domain.Line
	for i, col := range rec.Columns {
		if _, hidden := f.excluded[col]; hidden {
			continue
		}
		val := ""
		if i < len(rec.Values) {
			val = rec.Values[i]
		}
		line := domain.Line{{Kind: domain.SpanBold, Text: col + ":"}, {Kind: domain.SpanText, Text: " "}}
		if val != "" {
			line = append(line, domain.Span{Kind: domain.SpanCode, Text: val})
		}
		lines = append(lines, line)
	}
	return lines
}

// Render builds the reply for a search.
// At most maxRendered records are shown; the rest are summarized in a single line.
func (f *Formatter) Render(term string, results []domain.Record) domain.Reply {
	if len(results) == 0 {
		return domain.NewReply().
			Text("❌ No matches found for '").Code(term).Text("'").Line().
			Blank().
			Text("Suggestions:").Line().
			Text("- Check for typos").Line().
			Text("- Try different keywords").Line().
			Text("- Be less specific").Line().
			Build()
	}

	b := domain.NewReply().
		Text("🔍 Found ").Bold(fmt.Sprint(len(results))).Text(" matches for '").Code(term).Text("':").Line()

	shown := results
	if len(shown) > f.maxRendered {
		shown = shown[:f.maxRendered]
	}
	for _, rec := range shown {
		b.Blank().Lines(f.FormatRecord(rec)...)
	}

	if rest := len(results) - len(shown); rest > 0 {
		b.Blank().Text("...and ").Bold(fmt.Sprint(rest)).Text(" more results not shown").Line()
	}

	return b.Blank().
		Text("ℹ️ Tip: Try a more specific search term for better results. /back").Line().
		Build()
}
