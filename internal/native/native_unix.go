//go:build !windows

package native

import (
	"fmt"

	"github.com/ebitengine/purego"
)

func openLibrary(path string) (uintptr, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, err
	}
	if h == 0 {
		return 0, fmt.Errorf("shared library handle is nil after loading: %s", path)
	}
	return h, nil
}

func librarySymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

// globalSymbol searches every library loaded into the process; module is
// only needed on Windows.
func globalSymbol(_ string, name string) (uintptr, error) {
	return purego.Dlsym(purego.RTLD_DEFAULT, name)
}
