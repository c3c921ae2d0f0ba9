// Package web embeds the HTML templates served by the application.
package web

import "embed"

// Templates holds the HTML template tree.
//
//go:embed templates
var Templates embed.FS
