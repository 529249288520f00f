package web

import "embed"

// FS holds the landing page and its static assets.
//
//go:embed templates static
var FS embed.FS
