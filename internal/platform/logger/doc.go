// Package logger builds the process slog.Logger from configuration and
// carries request-scoped loggers in a context.Context.
package logger
