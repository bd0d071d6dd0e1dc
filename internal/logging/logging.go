// Package logging provides the global L_* logging helpers used across danuu.
// Dot-import it to call L_info, L_error, etc. directly.
//
// Each helper accepts three call forms:
//
//	L_info("connected")
//	L_info("retry %d of %d", n, max)
//	L_info("job done", "id", id, "elapsed", d)
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Log levels, most severe first.
const (
	LevelFatal = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// Output formats
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
)

// traceLevel sits below charm's debug level.
const traceLevel = log.DebugLevel - 4

var (
	mu     sync.RWMutex
	logger *log.Logger

	shuttingDown atomic.Bool
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level      int
	Format     string // text (default), json or logfmt
	TimeFormat string
	ShowCaller bool
	Output     io.Writer // defaults to stderr
}

// ParseLevel maps a config/env level name to a Level constant.
// Unknown names fall back to info.
func ParseLevel(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// NewLogger builds a logger from cfg without touching the global one.
func NewLogger(cfg LogConfig) *log.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "15:04:05"
	}

	l := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		ReportCaller:    cfg.ShowCaller,
		CallerOffset:    2, // emit -> L_* -> caller
	})
	switch cfg.Format {
	case FormatJSON:
		l.SetFormatter(log.JSONFormatter)
	case FormatLogfmt:
		l.SetFormatter(log.LogfmtFormatter)
	}

	styles := log.DefaultStyles()
	styles.Levels[traceLevel] = lipgloss.NewStyle().
		SetString("TRAC").
		Bold(true).
		MaxWidth(4).
		Foreground(lipgloss.Color("241"))
	l.SetStyles(styles)

	l.SetLevel(charmLevel(cfg.Level))
	return l
}

// Init replaces the global logger.
func Init(cfg *LogConfig) {
	if cfg == nil {
		cfg = &LogConfig{Level: LevelInfo}
	}
	l := NewLogger(*cfg)
	mu.Lock()
	logger = l
	mu.Unlock()
}

func current() *log.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = NewLogger(LogConfig{Level: LevelInfo})
	}
	return logger
}

func charmLevel(level int) log.Level {
	switch level {
	case LevelTrace:
		return traceLevel
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	case LevelFatal:
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// hasFmtVerb reports whether s holds a printf verb (a lone %% is not one).
func hasFmtVerb(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if s[i+1] == '%' {
			i++
			continue
		}
		if strings.IndexByte("vsdtfgeopqxXbcUT+#", s[i+1]) >= 0 {
			return true
		}
	}
	return false
}

func emit(l *log.Logger, level log.Level, msg string, args ...interface{}) {
	if len(args) > 0 && hasFmtVerb(msg) {
		msg, args = fmt.Sprintf(msg, args...), nil
	}
	if level == log.FatalLevel {
		l.Fatal(msg, args...)
		return
	}
	l.Log(level, msg, args...)
}

// L_trace logs at trace level; shown only when the level is trace.
func L_trace(msg string, args ...interface{}) {
	emit(current(), traceLevel, msg, args...)
}

// L_debug logs at debug level
func L_debug(msg string, args ...interface{}) {
	emit(current(), log.DebugLevel, msg, args...)
}

// L_info logs at info level
func L_info(msg string, args ...interface{}) {
	emit(current(), log.InfoLevel, msg, args...)
}

// L_warn logs at warn level
func L_warn(msg string, args ...interface{}) {
	emit(current(), log.WarnLevel, msg, args...)
}

// L_error logs at error level
func L_error(msg string, args ...interface{}) {
	emit(current(), log.ErrorLevel, msg, args...)
}

// L_fatal logs and exits with status 1.
func L_fatal(msg string, args ...interface{}) {
	emit(current(), log.FatalLevel, msg, args...)
}

// SetLevel changes the level of the global logger at runtime.
func SetLevel(level int) {
	current().SetLevel(charmLevel(level))
}

// SetShuttingDown marks the process as stopping.
func SetShuttingDown() {
	if shuttingDown.CompareAndSwap(false, true) {
		L_info("shutting down")
	}
}

// IsShuttingDown reports whether SetShuttingDown was called.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}
