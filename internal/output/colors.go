package output

import (
	"os"

	"charm.land/lipgloss/v2"
)

// Basic ANSI indices leave the exact shade to the terminal theme.
var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	cyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

var enabled = true

// Init turns styling off for --no-color, a set NO_COLOR, or when stdout
// is piped, so outcome JSON and redirect URLs stay copy-pasteable.
func Init(noColor bool) {
	enabled = !noColor && os.Getenv("NO_COLOR") == "" && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// Enabled reports whether styling is applied.
func Enabled() bool {
	return enabled
}

func render(style lipgloss.Style, text string) string {
	if !enabled {
		return text
	}
	return style.Render(text)
}

// Success styles a succeeded outcome or a valid token.
func Success(text string) string { return render(successStyle, text) }

// Error styles a failed outcome and the headline of a formatted error.
func Error(text string) string { return render(errorStyle, text) }

// Warning styles rejected applications and expired tokens.
func Warning(text string) string { return render(warningStyle, text) }

// Info styles suggestions under an error.
func Info(text string) string { return render(infoStyle, text) }

// Dim styles absent values.
func Dim(text string) string { return render(dimStyle, text) }

// Cyan styles profile names.
func Cyan(text string) string { return render(cyanStyle, text) }

// Bold styles section headings.
func Bold(text string) string { return render(boldStyle, text) }
