package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles colour human-readable output. The renderer detects the colour
// profile of the destination, so output that is not a terminal is left
// plain.
type styles struct {
	label   lipgloss.Style
	section lipgloss.Style
	marker  lipgloss.Style
	warning lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		label:   r.NewStyle().Foreground(lipgloss.Color("45")),
		section: r.NewStyle().Foreground(lipgloss.Color("51")).Bold(true),
		marker:  r.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
	}
}

// field writes label and value, with the value column starting after
// width characters.
func (s styles) field(out io.Writer, label string, width int, value interface{}) {
	label += ":"
	pad := width - len(label)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(out, "%s%s %v\n", s.label.Render(label), strings.Repeat(" ", pad), value)
}
