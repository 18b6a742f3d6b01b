package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#20B9B4")
	colorMuted   = lipgloss.Color("#6e7681")
	colorError   = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Muted lipgloss.Style
	Error lipgloss.Style
}{
	Title: lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
	Label: lipgloss.NewStyle().Bold(true),
	Muted: lipgloss.NewStyle().Foreground(colorMuted),
	Error: lipgloss.NewStyle().Bold(true).Foreground(colorError),
}

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w, styles.Title.Render(title))
}

func printField(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s %v\n", styles.Label.Render(label+":"), value)
}

// printList prints names joined by sep, or a muted placeholder when empty
func printList(w io.Writer, names []string, sep, empty string) {
	if len(names) == 0 {
		fmt.Fprintln(w, styles.Muted.Render(empty))
		return
	}
	fmt.Fprintln(w, strings.Join(names, sep))
}
