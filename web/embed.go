// Package web holds the embedded screens and stylesheet.
package web

import "embed"

// TemplatesFS holds the layout, the shared partials and one file per screen.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS
