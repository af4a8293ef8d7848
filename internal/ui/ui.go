// Package ui provides terminal rendering helpers for CLI output.
//
// All helpers degrade to plain text when stdout is not a terminal or
// the environment disables color, so piped output stays clean.
package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	profileOnce sync.Once
	profile     termenv.Profile
)

// colorProfile detects the terminal's color support once per process.
func colorProfile() termenv.Profile {
	profileOnce.Do(func() {
		profile = termenv.EnvColorProfile()
	})
	return profile
}

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderAccent renders s in the accent color.
func RenderAccent(s string) string {
	if colorProfile() == termenv.Ascii {
		return s
	}
	return accentStyle.Render(s)
}

// RenderPass renders s in the success color.
func RenderPass(s string) string {
	if colorProfile() == termenv.Ascii {
		return s
	}
	return passStyle.Render(s)
}

// RenderWarn renders s in the warning color.
func RenderWarn(s string) string {
	if colorProfile() == termenv.Ascii {
		return s
	}
	return warnStyle.Render(s)
}

// RenderErr renders s in the error color.
func RenderErr(s string) string {
	if colorProfile() == termenv.Ascii {
		return s
	}
	return errStyle.Render(s)
}

// RenderMuted renders s dimmed, for secondary detail lines.
func RenderMuted(s string) string {
	if colorProfile() == termenv.Ascii {
		return s
	}
	return mutedStyle.Render(s)
}

// IsInteractive reports whether both stdin and stdout are terminals,
// meaning the command may prompt.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
