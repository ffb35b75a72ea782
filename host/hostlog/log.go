// Package hostlog is the structured logger shared by the host programs.
// Every record carries the subsystem that produced it as a "component"
// attribute.
package hostlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Component names a subsystem in log records.
type Component string

const (
	ComponentSerial Component = "serial" // host serial hardware
	ComponentTerm   Component = "term"   // serio-term
	ComponentDriver Component = "driver" // core debug lines from uart and spi
)

// Format selects the record encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

var (
	level  slog.LevelVar
	logger atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelWarn)
	Setup(os.Stderr, FormatText, slog.LevelWarn)
}

// Setup sends records at or above lvl to w.
func Setup(w io.Writer, format Format, lvl slog.Level) {
	level.Set(lvl)
	opts := &slog.HandlerOptions{Level: &level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	}
	logger.Store(slog.New(h))
}

// ParseLevel accepts debug, info, warn or error in any case.
func ParseLevel(s string) (slog.Level, bool) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelWarn, false
	}
	return l, true
}

func log(lvl slog.Level, c Component, msg string, args []any) {
	logger.Load().Log(context.Background(), lvl, msg, append([]any{"component", string(c)}, args...)...)
}

func Debug(c Component, msg string, args ...any) { log(slog.LevelDebug, c, msg, args) }
func Info(c Component, msg string, args ...any)  { log(slog.LevelInfo, c, msg, args) }
func Error(c Component, msg string, args ...any) { log(slog.LevelError, c, msg, args) }

// DebugWriter adapts the logger to core.SetDebugWriter.
func DebugWriter(c Component) func(string) {
	return func(s string) { Debug(c, s) }
}
