// Package logger provides structured logging functionality for the application.
//
// It uses the standard library log/slog package with a JSON handler, and
// carries request-scoped loggers (with trace IDs attached) through
// context.Context so stores and services log with the caller's attributes.
package logger
