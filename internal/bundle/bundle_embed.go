//go:build embed_native

package bundle

import (
	"embed"
	"io/fs"
)

//go:embed all:lib
var libFS embed.FS

var embedded = mustSub(libFS, "lib")

func mustSub(f fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(f, dir)
	if err != nil {
		panic("bundle: " + err.Error())
	}
	return sub
}
