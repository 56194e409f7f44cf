// Package log provides structured logging with verbosity levels for
// charmsmith. It wraps log/slog and follows kubectl/klog verbosity
// conventions.
package log

import "log/slog"

// LevelTrace is a custom trace level (more verbose than debug).
// slog has no trace level, so we use a custom level below Debug (-4).
const LevelTrace = slog.Level(-8)

// Verbosity level constants for documentation and reference.
const (
	VerbosityError = 0 // Errors only (quiet)
	VerbosityWarn  = 1 // + Warnings
	VerbosityInfo  = 2 // + Info (config loaded, target resolved, summaries)
	VerbosityDebug = 3 // + Debug (source stats, command argv, timing)
	VerbosityTrace = 4 // + Trace (function entry/exit, full data dumps)
)

// VerbosityToLevel maps -v=N to the slog level.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError
	case v == 1:
		return slog.LevelWarn
	case v == 2:
		return slog.LevelInfo
	case v == 3:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// LevelToVerbosity maps a slog level to -v=N (for display).
func LevelToVerbosity(l slog.Level) int {
	switch {
	case l >= slog.LevelError:
		return VerbosityError
	case l >= slog.LevelWarn:
		return VerbosityWarn
	case l >= slog.LevelInfo:
		return VerbosityInfo
	case l >= slog.LevelDebug:
		return VerbosityDebug
	default:
		return VerbosityTrace
	}
}

// LevelName returns the display name for a level, including custom levels.
func LevelName(l slog.Level) string {
	if l == LevelTrace {
		return "TRACE"
	}
	return l.String()
}
