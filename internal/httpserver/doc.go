// Package httpserver wraps net/http's server with address validation,
// bounded timeouts and a time-limited graceful shutdown.
package httpserver
