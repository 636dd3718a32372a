package pages

import "embed"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed content/instructions.md content/models.yaml
var contentFS embed.FS

// Served at /static/. Only the listed asset kinds are embedded.
//
//go:embed static/css/*.css static/js/*.js static/data/*.json
var staticFS embed.FS
