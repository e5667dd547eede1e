package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the fieldbot banner and version to w.
// Colors are dropped when w does not support them.
func PrintBanner(w io.Writer, version string) {
	o := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{`  __ _      _     _ _           _   `, "#818cf8"},
		{` / _(_) ___| | __| | |__   ___ | |_ `, "#a78bfa"},
		{`| |_| |/ _ \ |/ _' | '_ \ / _ \| __|`, "#c084fc"},
		{`|  _| |  __/ | (_| | |_) | (_) | |_ `, "#e879f9"},
		{`|_| |_|\___|_|\__,_|_.__/ \___/ \__|`, "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, o.String(l.text).Foreground(o.Color(l.color)))
	}
	fmt.Fprintln(w, o.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
