package runtime

import "github.com/aretw0/fieldbot/pkg/domain"

// Edge is one row of the dialog transition table.
type Edge struct {
	From  domain.DialogState
	To    domain.DialogState
	Label string
}

// Edges lists every transition Step can take, for documentation and diagrams.
func Edges() []Edge {
	var (
		idle     = domain.StateIdle
		search   = domain.StateSearching
		change   = domain.StateChangingDevice
		commands = []struct {
			label string
			to    func(from domain.DialogState) domain.DialogState
		}{
			{"/start", func(domain.DialogState) domain.DialogState { return idle }},
			{"/back", func(domain.DialogState) domain.DialogState { return idle }},
			{"/help", func(from domain.DialogState) domain.DialogState { return from }},
			{"/search", func(domain.DialogState) domain.DialogState { return search }},
			{"/change", func(domain.DialogState) domain.DialogState { return change }},
		}
	)

	edges := []Edge{
		{idle, search, domain.ButtonSearch},
		{idle, change, domain.ButtonChangeDevice},
		{idle, idle, domain.ButtonHelp},
		{idle, idle, "free text"},
		{search, search, "search term"},
		{search, search, "blank text"},
		{search, idle, "data unavailable"},
		{change, change, "change request"},
		{change, change, "invalid format"},
		{change, change, "transport error"},
	}
	for _, from := range []domain.DialogState{idle, search, change} {
		for _, c := range commands {
			edges = append(edges, Edge{From: from, To: c.to(from), Label: c.label})
		}
	}
	return edges
}
