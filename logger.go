package kmedoids

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with kmedoids-specific context, matching the
// teacher's pattern of a thin wrapper type carrying structured-logging
// helper methods named after the operations they instrument.
type Logger struct {
	*slog.Logger
}

// NewLogger wraps handler in a Logger. If handler is nil, uses a text
// handler to stderr at Info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger discards all log output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1000)}))}
}

// LogBuildStep logs completion of one BUILD medoid slot.
func (l *Logger) LogBuildStep(ctx context.Context, slot, medoid int, candidatesRemaining int) {
	l.DebugContext(ctx, "build step completed",
		"slot", slot,
		"medoid", medoid,
		"candidates_remaining", candidatesRemaining,
	)
}

// LogSwapIteration logs the outcome of one SWAP outer iteration.
func (l *Logger) LogSwapIteration(ctx context.Context, iter int, swapped bool, medoidSlot, candidate int) {
	if swapped {
		l.InfoContext(ctx, "swap accepted",
			"iteration", iter,
			"medoid_slot", medoidSlot,
			"candidate", candidate,
		)
	} else {
		l.InfoContext(ctx, "swap terminated: no-op proposal",
			"iteration", iter,
		)
	}
}

// LogNumericUnderflow logs a degenerate all-zero sigma slice. Per spec this
// is not a fatal error: the loop still terminates and the fit continues.
func (l *Logger) LogNumericUnderflow(ctx context.Context, phase string, arm int) {
	l.WarnContext(ctx, "sigma collapsed to zero, confidence radius degenerated",
		"phase", phase,
		"arm", arm,
	)
}

// LogFitComplete logs the terminal summary of a Fit call.
func (l *Logger) LogFitComplete(ctx context.Context, k, n, steps int, finalLoss float64) {
	l.InfoContext(ctx, "fit completed",
		"k", k,
		"n", n,
		"swap_steps", steps,
		"final_loss", finalLoss,
	)
}
