// Package vixlog provides the engine's structured logger, a thin
// wrapper over charmbracelet/log styled the same way the teacher
// project's internal/util/logger.go is.
package vixlog

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

var (
	mu      sync.RWMutex
	logger  *log.Logger
	isDebug bool
)

func coloredPrefix() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#22A6B3")).
		Bold(true).
		Padding(0, 1).
		MarginRight(1)
	return style.Render("vixstream")
}

// Init sets up the package logger. debug enables caller reporting,
// timestamps and DEBUG-level output.
func Init(debug bool) {
	mu.Lock()
	defer mu.Unlock()

	isDebug = debug
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    debug,
		ReportTimestamp: debug,
		TimeFormat:      "15:04:05",
		Prefix:          coloredPrefix(),
	})

	if debug {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
	logger.SetColorProfile(termenv.TrueColor)
}

func current() *log.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		Init(false)
		mu.RLock()
		l = logger
		mu.RUnlock()
	}
	return l
}

// Debug logs a debug message; suppressed unless Init(true) ran.
func Debug(msg interface{}, keyvals ...interface{}) {
	current().Debug(fmt.Sprintf("%v", msg), keyvals...)
}

// Info logs an informational message.
func Info(msg interface{}, keyvals ...interface{}) {
	current().Info(fmt.Sprintf("%v", msg), keyvals...)
}

// Warn logs a warning.
func Warn(msg interface{}, keyvals ...interface{}) {
	current().Warn(fmt.Sprintf("%v", msg), keyvals...)
}

// Error logs an error.
func Error(msg interface{}, keyvals ...interface{}) {
	current().Error(fmt.Sprintf("%v", msg), keyvals...)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	current().Debug(fmt.Sprintf(format, args...))
}

// Infof logs a formatted informational message.
func Infof(format string, args ...interface{}) {
	current().Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted warning.
func Warnf(format string, args ...interface{}) {
	current().Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error.
func Errorf(format string, args ...interface{}) {
	current().Error(fmt.Sprintf(format, args...))
}
