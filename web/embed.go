// Package web holds the embedded chat page and widget scripts.
package web

import (
	"embed"
	"io/fs"
)

//go:embed index.html static
var files embed.FS

// IndexFile is the SPA entry point inside FS.
const IndexFile = "index.html"

// FS returns the embedded web root.
func FS() fs.FS { return files }

// Static returns the static/ subtree.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
