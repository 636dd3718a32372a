// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the server address and environment,
// the log level, the values exposed to the browser-side viewer, and the
// switches for the optional metrics and health endpoints.
package config
