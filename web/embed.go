// Package web holds the server-rendered templates and browser assets.
package web

import "embed"

// Templates embeds the layouts, partials and pages parsed by view.NewEngine.
//
//go:embed templates/layouts/*.html templates/partials/*.html templates/pages/*.html
var Templates embed.FS

// Static embeds the stylesheet and the form script served under /static/.
//
//go:embed static/css/*.css static/js/*.js
var Static embed.FS
