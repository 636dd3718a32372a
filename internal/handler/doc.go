// Package handler implements the site's HTTP routing. It maps the fixed page
// table to template renders, answers everything else with the 404 page, and
// wraps requests with logging and metrics.
package handler
