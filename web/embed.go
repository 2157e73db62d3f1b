// Package web carries the wedding planner's UI into the binary.
package web

import "embed"

// TemplatesFS holds the page and HTMX partial templates: weddings, dashboard,
// guests, seating board, budget with payments, vendors and tasks.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds app.css and app.js, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
