// Package logger is a small colored logger used across this module's
// library packages and CLI tools.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/mattn/go-colorable"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[37m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

// Log levels
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSuccess
)

// Logger is a leveled, colored logger. The zero value is not usable;
// construct one with New, or use the package-level default functions.
type Logger struct {
	level      int
	timeFormat string
	showTime   bool
	out        io.Writer
}

// New returns a Logger writing colored output to colorable's wrapping of
// stdout, so ANSI codes degrade gracefully on consoles that don't support
// them (notably older Windows terminals).
func New() *Logger {
	return &Logger{
		level:      LevelInfo,
		timeFormat: "15:04:05",
		showTime:   true,
		out:        colorable.NewColorableStdout(),
	}
}

var defaultLogger = New()

// SetLevel sets the minimum log level of the default logger.
func SetLevel(level int) { defaultLogger.SetLevel(level) }

// SetTimeFormat sets the time format used by the default logger.
func SetTimeFormat(format string) { defaultLogger.SetTimeFormat(format) }

// ShowTime enables or disables timestamps on the default logger.
func ShowTime(show bool) { defaultLogger.ShowTime(show) }

func (l *Logger) SetLevel(level int)          { l.level = level }
func (l *Logger) SetTimeFormat(format string) { l.timeFormat = format }
func (l *Logger) ShowTime(show bool)          { l.showTime = show }

func (l *Logger) formatMessage(color, prefix, message string) string {
	timestamp := ""
	if l.showTime {
		timestamp = fmt.Sprintf("%s[%s]%s ", ColorGray, time.Now().Format(l.timeFormat), ColorReset)
	}
	return fmt.Sprintf("%s%s[%s]%s %s", timestamp, color, prefix, ColorReset, message)
}

func (l *Logger) emit(minLevel int, color, prefix, format string, args ...interface{}) {
	if l.level > minLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	log.New(l.out, "", 0).Println(l.formatMessage(color, prefix, msg))
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.emit(LevelDebug, ColorGray, "DEBUG", format, args...)
}
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit(LevelInfo, ColorWhite, "INFO", format, args...)
}
func (l *Logger) InfoCyan(format string, args ...interface{}) {
	l.emit(LevelInfo, ColorCyan, "INFO", format, args...)
}
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit(LevelWarn, ColorYellow, "WARN", format, args...)
}
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit(LevelError, ColorRed, "ERROR", format, args...)
}
func (l *Logger) Success(format string, args ...interface{}) {
	l.emit(LevelSuccess, ColorGreen, "SUCCESS", format, args...)
}

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.New(l.out, "", 0).Println(l.formatMessage(ColorRed, "FATAL", msg))
	os.Exit(1)
}

func Debug(format string, args ...interface{})    { defaultLogger.Debug(format, args...) }
func Info(format string, args ...interface{})     { defaultLogger.Info(format, args...) }
func InfoCyan(format string, args ...interface{}) { defaultLogger.InfoCyan(format, args...) }
func Warn(format string, args ...interface{})     { defaultLogger.Warn(format, args...) }
func Error(format string, args ...interface{})    { defaultLogger.Error(format, args...) }
func Success(format string, args ...interface{})  { defaultLogger.Success(format, args...) }
func Fatal(format string, args ...interface{})    { defaultLogger.Fatal(format, args...) }

// Section prints a section header to stdout.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	out := colorable.NewColorableStdout()
	fmt.Fprintf(out, "\n%s╔%s╗%s\n", ColorCyan, border, ColorReset)
	fmt.Fprintf(out, "%s║%s %-57s %s║%s\n", ColorCyan, ColorReset, title, ColorCyan, ColorReset)
	fmt.Fprintf(out, "%s╚%s╝%s\n\n", ColorCyan, border, ColorReset)
}

// Banner prints the application banner.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ██████╗ ███╗   ██╗███████╗████████╗      ██████╗  ██████╗ ║
║   ██╔══██╗████╗  ██║██╔════╝╚══██╔══╝     ██╔════╝ ██╔═══██╗║
║   ██║  ██║██╔██╗ ██║█████╗     ██║  █████╗██║  ███╗██║   ██║║
║   ██║  ██║██║╚██╗██║██╔══╝     ██║  ╚════╝██║   ██║██║   ██║║
║   ██████╔╝██║ ╚████║███████╗   ██║        ╚██████╔╝╚██████╔╝║
║   ╚═════╝ ╚═╝  ╚═══╝╚══════╝   ╚═╝         ╚═════╝  ╚═════╝ ║
║                                                           ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	out := colorable.NewColorableStdout()
	fmt.Fprintf(out, banner, ColorCyan, title, ColorReset, ColorGreen, version, ColorReset)
}
