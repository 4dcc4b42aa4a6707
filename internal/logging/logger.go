// Package logging is the logging seam of the note engine, its storage
// backends and the hub. Components take a Logger; the binaries build one
// with New, tests pass Nop.
package logging

import "context"

// Logger writes leveled records with alternating key and value arguments:
//
//	log.Warn(ctx, "push failed", "note", id, "err", err)
//
// Backend connections attach their provider with With, so every record
// they write names it.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	// Error is for failures a user may need to act on, such as a sync pass
	// that ended with failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a logger that adds args to every record.
	With(args ...any) Logger
}
