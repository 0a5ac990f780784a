// Package log provides the structured logging facade used across tickq.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by the standard
// library slog via a bridge handler that routes records through a
// formatter/output pipeline, so callers keep one consistent output format
// while remaining compatible with the slog ecosystem.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("engine"), log.Str("queue", "default"))
//	l.Info("tick complete", log.Bool("changed", true))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (level and format),
// which is how the server runner constructs the process-wide logger from
// environment variables.
//
// # Interop
//
// RedirectStdLog points the standard library logger (used by Pebble, among
// others) at a Logger so all process output flows through one pipeline.
package log
