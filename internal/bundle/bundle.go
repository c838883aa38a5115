// Package bundle provides the tree of native library resources shipped
// with the binary. Build with -tags embed_native after placing the
// libraries under internal/bundle/lib to embed them; otherwise the bundle
// is empty and resources must come from a directory.
package bundle

import (
	"io/fs"
	"os"
)

// FS returns the embedded resource tree.
func FS() fs.FS {
	return embedded
}

// Dir returns the resource tree rooted at a directory on disk, laid out
// like the embedded one.
func Dir(path string) fs.FS {
	return os.DirFS(path)
}

// Empty reports whether no resources were embedded.
func Empty() bool {
	entries, err := fs.ReadDir(embedded, ".")
	return err != nil || len(entries) == 0
}
