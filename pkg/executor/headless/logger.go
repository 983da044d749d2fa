package headless

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// LogLevel represents the logging verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only critical information (errors, warnings, final summary)
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows standard capture progress (default)
	LogLevelNormal
	// LogLevelVerbose shows every tile
	LogLevelVerbose
	// LogLevelDebug shows all internal details for debugging
	LogLevelDebug
)

const progressBarWidth = 30

// Logger provides structured, colored console output for headless captures
type Logger struct {
	level  LogLevel
	writer io.Writer

	// ANSI color codes
	colorReset     string
	colorGreen     string
	colorCyan      string
	colorSalmon    string
	colorYellow    string
	colorRed       string
	colorGray      string
	colorBoldGreen string
	colorBoldRed   string
	colorBoldWhite string

	stepCount int
}

// NewLogger creates a new logger with the specified level writing to stdout
func NewLogger(level LogLevel) *Logger {
	return NewWriterLogger(level, os.Stdout)
}

// NewWriterLogger creates a logger writing to w
func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	return &Logger{
		level:          level,
		writer:         w,
		colorReset:     "\033[0m",
		colorGreen:     "\033[32m",
		colorCyan:      "\033[36m",
		colorSalmon:    "\033[38;5;217m", // Salmon pink #FFB3BA
		colorYellow:    "\033[33m",
		colorRed:       "\033[31m",
		colorGray:      "\033[90m",
		colorBoldGreen: "\033[1;32m",
		colorBoldRed:   "\033[1;31m",
		colorBoldWhite: "\033[1;37m",
	}
}

// Level returns the configured verbosity
func (l *Logger) Level() LogLevel {
	return l.level
}

// Header prints a prominent header message
func (l *Logger) Header(message string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintf(l.writer, "\n%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
		fmt.Fprintf(l.writer, "%s  %s%s\n", l.colorBoldWhite, message, l.colorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
	}
}

// Section prints a section divider
func (l *Logger) Section(title string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
		fmt.Fprintf(l.writer, "%s▶ %s%s\n", l.colorCyan, title, l.colorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", l.colorGray, strings.Repeat("─", 50), l.colorReset)
	}
}

// Step prints a numbered step
func (l *Logger) Step(message string) {
	if l.level >= LogLevelNormal {
		l.stepCount++
		fmt.Fprintf(l.writer, "\n%s[%d] %s%s\n", l.colorCyan, l.stepCount, message, l.colorReset)
	}
}

// Successf prints a success message with checkmark
func (l *Logger) Successf(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s✓ %s%s\n", l.colorBoldGreen, msg, l.colorReset)
	}
}

// Infof prints an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s%s%s\n", l.colorSalmon, msg, l.colorReset)
	}
}

// Warningf prints a warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.writer, "%s⚠ Warning: %s%s\n", l.colorYellow, msg, l.colorReset)
}

// Errorf prints an error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.writer, "%s✗ Error: %s%s\n", l.colorBoldRed, msg, l.colorReset)
}

// Verbosef prints detailed information (only in verbose mode)
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.level >= LogLevelVerbose {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s→ %s%s\n", l.colorGray, msg, l.colorReset)
	}
}

// Debugf prints debug information (only in debug mode)
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s[DEBUG] %s%s\n", l.colorGray, msg, l.colorReset)
	}
}

// Progress prints a progress bar for fraction in [0, 1]
func (l *Logger) Progress(fraction float64) {
	if l.level < LogLevelNormal {
		return
	}
	fmt.Fprintf(l.writer, "%s  %s%s\n", l.colorGray, progressBar(fraction, progressBarWidth), l.colorReset)
}

// Summary prints the final capture summary
func (l *Logger) Summary(summary *CaptureSummary) {
	fmt.Fprintln(l.writer)
	fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
	fmt.Fprintf(l.writer, "%s  CAPTURE SUMMARY%s\n", l.colorBoldWhite, l.colorReset)
	fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)

	l.printStatus(summary.Status)
	fmt.Fprintf(l.writer, "  URL: %s\n", summary.URL)
	fmt.Fprintf(l.writer, "  Duration: %s\n", summary.Duration.Round(time.Millisecond))

	if summary.Tiles > 0 {
		fmt.Fprintf(l.writer, "\n  📊 Capture:\n")
		fmt.Fprintf(l.writer, "    Tiles: %d\n", summary.Tiles)
		fmt.Fprintf(l.writer, "    Size: %dx%d\n", summary.Width, summary.Height)
		if summary.Scale != 1 && l.level >= LogLevelVerbose {
			fmt.Fprintf(l.writer, "    Scale: %g\n", summary.Scale)
		}
	}

	if summary.File != "" {
		fmt.Fprintf(l.writer, "\n  📝 Output:\n")
		fmt.Fprintf(l.writer, "    File: %s\n", summary.File)
		fmt.Fprintf(l.writer, "    Bytes: %s\n", formatNumber(int(summary.Bytes)))
		if summary.MIMEType != "" && l.level >= LogLevelVerbose {
			fmt.Fprintf(l.writer, "    Type: %s\n", summary.MIMEType)
		}
	}

	if summary.Error != "" {
		fmt.Fprintln(l.writer)
		fmt.Fprintf(l.writer, "%s  Error Details:%s\n", l.colorBoldRed, l.colorReset)
		fmt.Fprintf(l.writer, "%s    %s%s\n", l.colorRed, summary.Error, l.colorReset)
	}

	fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
	fmt.Fprintln(l.writer)
}

func (l *Logger) printStatus(status string) {
	fmt.Fprint(l.writer, "  Status: ")
	switch status {
	case statusSuccess:
		fmt.Fprintf(l.writer, "%s✓ SUCCESS%s\n", l.colorBoldGreen, l.colorReset)
	case statusIneligible:
		fmt.Fprintf(l.writer, "%s⚠ NOT CAPTURABLE%s\n", l.colorYellow, l.colorReset)
	case statusFailed:
		fmt.Fprintf(l.writer, "%s✗ FAILED%s\n", l.colorBoldRed, l.colorReset)
	default:
		fmt.Fprintln(l.writer, status)
	}
}

// ParseLogLevel converts a string log level to LogLevel type
func ParseLogLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "normal":
		return LogLevelNormal
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}

func progressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("█", filled), strings.Repeat("░", width-filled), fraction*100)
}

// formatNumber formats large numbers with commas for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}
