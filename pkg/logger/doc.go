// Package logger builds the structured slog logger used across the server:
// JSON output in production, text output elsewhere, with the configured level.
package logger
