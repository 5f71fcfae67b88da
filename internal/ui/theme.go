// Package ui renders botstrap's human-facing output and runs the
// interactive configuration wizard.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Theme uses ANSI 256-color codes. Colors are dropped automatically when
// the writer is not a terminal.
type Theme struct {
	Pass   lipgloss.Style
	Warn   lipgloss.Style
	Fail   lipgloss.Style
	Skip   lipgloss.Style
	Header lipgloss.Style
	Faint  lipgloss.Style
	Code   lipgloss.Style
}

// NewTheme builds a theme whose styles render through a renderer bound to w.
func NewTheme(w io.Writer) Theme {
	r := lipgloss.NewRenderer(w)
	return Theme{
		Pass:   r.NewStyle().Foreground(lipgloss.Color("42")),
		Warn:   r.NewStyle().Foreground(lipgloss.Color("214")),
		Fail:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Skip:   r.NewStyle().Foreground(lipgloss.Color("245")),
		Header: r.NewStyle().Bold(true),
		Faint:  r.NewStyle().Faint(true),
		Code:   r.NewStyle().Foreground(lipgloss.Color("81")),
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
