package web

import "embed"

// TemplatesFS holds the page templates. Every page defines "content" and
// is rendered through base.html.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
