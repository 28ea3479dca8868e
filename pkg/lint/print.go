package lint

import (
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c6c6c"))
)

func styleFor(sev Severity) lipgloss.Style {
	switch sev {
	case SeverityError:
		return errorStyle
	case SeverityWarning:
		return warningStyle
	default:
		return infoStyle
	}
}

// Print writes each diagnostic to w with the same color-by-severity
// convention the teacher's pkg/tui/styles.go uses for its log entries
// (error/warning/muted styles), one per line.
func Print(w io.Writer, diags []Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, styleFor(d.Severity).Render(d.String()))
	}
}

// CopyToClipboard joins every diagnostic's plain text onto the system
// clipboard for `chor lint --copy`, using the same atotto/clipboard
// dependency the teacher's go.mod declares but never imports.
func CopyToClipboard(diags []Diagnostic) error {
	lines := make([]string, len(diags))
	for i, d := range diags {
		lines[i] = d.String()
	}
	return clipboard.WriteAll(strings.Join(lines, "\n"))
}
