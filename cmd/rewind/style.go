package main

import "github.com/charmbracelet/lipgloss"

var (
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// truncate shortens s to at most n runes, never splitting a multibyte rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func renderStepStatus(ok, required bool) string {
	if ok {
		return styleSuccess.Render("[OK]")
	}
	if required {
		return styleError.Render("[FAIL]")
	}
	return styleWarn.Render("[WARN]")
}
