// Package logging wraps zerolog with the field set the adjuster's
// passes and collaborator callbacks need on every line: component name
// and, where relevant, process id. Logs through the global
// github.com/rs/zerolog/log logger with chained .Str()/.Int()/.Err()
// calls, matching this module's dominant logging idiom rather than a
// slog-based alternative.
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a thin, component-scoped wrapper over a zerolog.Logger.
type Logger struct {
	zl zerolog.Logger
}

// New returns a Logger tagging every line with the given component
// name (e.g. "update_driver", "connection_propagator", "freezer").
func New(component string) *Logger {
	return &Logger{zl: log.With().Str("component", component).Logger()}
}

// Init sets the global zerolog level and output writer. Call once at
// process startup; individual Logger values created afterward (via New)
// inherit it through the package-global logger.
func Init(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).With().Timestamp().Logger()
}

// With returns a derived Logger carrying an additional process id
// field, for the lifetime of one update pass or one mutation call.
func (l *Logger) With(pid int32) *Logger {
	return &Logger{zl: l.zl.With().Int32("pid", pid).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// AdjTransition logs a process's oom-adj/procstate/sched-group move in
// one line, the event every pass produces the most of.
func (l *Logger) AdjTransition(pid int32, reason string, oldAdj, newAdj int16, oldState, newState string) {
	l.zl.Debug().
		Int32("pid", pid).
		Str("reason", reason).
		Int16("old_adj", oldAdj).
		Int16("new_adj", newAdj).
		Str("old_proc_state", oldState).
		Str("new_proc_state", newState).
		Msg("adj transition")
}

// CycleRetryExhausted logs a dependency cycle that failed to converge
// within the configured retry bound.
func (l *Logger) CycleRetryExhausted(pids []int32, attempts int) {
	l.zl.Warn().
		Ints32("pids", pids).
		Int("attempts", attempts).
		Msg("cycle did not converge within retry bound")
}

// InvariantViolation logs an internal consistency check failure.
func (l *Logger) InvariantViolation(op string, pid int32, err error) {
	l.zl.Error().
		Str("op", op).
		Int32("pid", pid).
		Err(err).
		Msg("invariant violation")
}
