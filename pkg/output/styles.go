package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Teal palette used for elver terminal output.
var (
	ColorTeal  = lipgloss.Color("#14b8a6") // accent
	ColorMuted = lipgloss.Color("#64748b")
	ColorGreen = lipgloss.Color("#22c55e")
	ColorRed   = lipgloss.Color("#ef4444")
	ColorGray  = lipgloss.Color("#94a3b8")
)

// tealStyles returns charmbracelet/log styles using the teal palette.
func tealStyles() *log.Styles {
	styles := log.DefaultStyles()

	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Foreground(ColorTeal).
		Bold(true)

	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Foreground(lipgloss.Color("#f59e0b")).
		Bold(true)

	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Foreground(ColorRed).
		Bold(true)

	styles.Levels[log.DebugLevel] = lipgloss.NewStyle().
		SetString("DEBUG").
		Foreground(ColorMuted)

	styles.Timestamp = lipgloss.NewStyle().
		Foreground(ColorMuted)

	styles.Key = lipgloss.NewStyle().
		Foreground(ColorTeal)

	styles.Value = lipgloss.NewStyle().
		Foreground(ColorGray)

	return styles
}
