// Package web embeds the review UI shell served at /.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// Assets returns the viewer assets rooted at static/.
func Assets() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
