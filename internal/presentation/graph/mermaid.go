package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/fieldbot/internal/runtime"
	"github.com/aretw0/fieldbot/pkg/domain"
)

// Overlay marks a session's position on the diagram.
type Overlay struct {
	Current domain.DialogState
}

// GenerateMermaid produces a Mermaid flowchart of the dialog states.
// The initial state is drawn as a circle; edges sharing endpoints are merged
// into one arrow whose label lists every input.
func GenerateMermaid(edges []runtime.Edge, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var states []domain.DialogState
	seen := map[domain.DialogState]bool{}
	addState := func(s domain.DialogState) {
		if !seen[s] {
			seen[s] = true
			states = append(states, s)
		}
	}

	type pair struct{ from, to domain.DialogState }
	var order []pair
	labels := map[pair][]string{}
	for _, e := range edges {
		addState(e.From)
		addState(e.To)
		p := pair{e.From, e.To}
		if _, ok := labels[p]; !ok {
			order = append(order, p)
		}
		labels[p] = append(labels[p], e.Label)
	}

	for _, s := range states {
		opener, closer := "[", "]"
		if s == domain.StateIdle {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(string(s)), opener, s, closer)
	}

	for _, p := range order {
		label := strings.ReplaceAll(strings.Join(labels[p], ", "), "\"", "'")
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", sanitizeMermaidID(string(p.from)), label, sanitizeMermaidID(string(p.to)))
	}

	if overlay != nil && overlay.Current != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light and dark themes.
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(string(overlay.Current)))
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
