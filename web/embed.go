// Package web embeds the frontend templates and static assets.
package web

import "embed"

// TemplatesFS holds layout.html and one template per page.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets (css).
//
//go:embed static/*
var StaticFS embed.FS
