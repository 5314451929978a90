package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles of the text output. Colors are only used when the output is a terminal.
type styles struct {
	title   lipgloss.Style
	id      lipgloss.Style
	special lipgloss.Style
	token   lipgloss.Style
	dim     lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true),
		id:      r.NewStyle().Foreground(lipgloss.Color("147")),
		special: r.NewStyle().Foreground(lipgloss.Color("204")).Bold(true),
		token:   r.NewStyle().Foreground(lipgloss.Color("255")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}
