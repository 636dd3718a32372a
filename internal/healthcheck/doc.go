// Package healthcheck implements the readiness check. A Checker periodically
// renders every page to io.Discard and serves the last result on /health.
package healthcheck
