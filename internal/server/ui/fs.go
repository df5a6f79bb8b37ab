// Package ui embeds the browser viewer for training runs.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var content embed.FS

// GetHandler serves the viewer with the "static" prefix stripped, so
// index.html is at the handler root.
func GetHandler() http.Handler {
	fsys, err := fs.Sub(content, "static")
	if err != nil {
		panic(err) // static/ is embedded at build time
	}
	return http.FileServer(http.FS(fsys))
}
