package output

import (
	"fmt"
	"io"
	"os"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

// Verbosity levels
const (
	QuietLevel = iota
	NormalLevel
	VerboseLevel
)

var (
	verbosity              = NormalLevel
	outputWriter io.Writer = os.Stdout
	errorWriter  io.Writer = os.Stderr
)

// SetVerbosity sets the verbosity level.
func SetVerbosity(level int) {
	verbosity = level
}

// SetWriters sets the output and error writers (useful for testing).
func SetWriters(out, err io.Writer) {
	outputWriter = out
	errorWriter = err
}

// Writer returns the current output writer.
func Writer() io.Writer {
	return outputWriter
}

// Println prints a line if verbosity allows.
func Println(args ...interface{}) {
	if verbosity >= NormalLevel {
		fmt.Fprintln(outputWriter, args...)
	}
}

// Printf prints formatted text if verbosity allows.
func Printf(format string, args ...interface{}) {
	if verbosity >= NormalLevel {
		fmt.Fprintf(outputWriter, format, args...)
	}
}

// VerbosePrintf prints formatted text only in verbose mode.
func VerbosePrintf(format string, args ...interface{}) {
	if verbosity >= VerboseLevel {
		fmt.Fprintf(outputWriter, format, args...)
	}
}

// ErrorPrintf always prints formatted text (errors should always be shown).
func ErrorPrintf(format string, args ...interface{}) {
	fmt.Fprintf(errorWriter, format, args...)
}

// SuccessPrintln prints success message with newline if verbosity allows.
func SuccessPrintln(text string) {
	if verbosity >= NormalLevel {
		fmt.Fprintf(outputWriter, "%s\n", Success(text))
	}
}

// WarningPrintln prints warning message with newline if verbosity allows.
func WarningPrintln(text string) {
	if verbosity >= NormalLevel {
		fmt.Fprintf(outputWriter, "%s\n", Warning(text))
	}
}

// KeyValue prints an aligned "key: value" line if verbosity allows.
func KeyValue(key string, value interface{}) {
	if verbosity >= NormalLevel {
		fmt.Fprintf(outputWriter, "  %-18s %v\n", key+":", value)
	}
}

// Table prints rows under headers if verbosity allows.
func Table(headers []string, rows [][]string) {
	if verbosity < NormalLevel {
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	if enabled {
		t = t.StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return boldStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	} else {
		t = t.StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	}
	fmt.Fprintln(outputWriter, t.String())
}
