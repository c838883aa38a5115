//go:build windows

package native

import (
	"errors"

	"golang.org/x/sys/windows"
)

func openLibrary(path string) (uintptr, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

func librarySymbol(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

// Windows has no process-wide symbol namespace, so only an already
// resident binding module is searched.
func globalSymbol(module, name string) (uintptr, error) {
	if module == "" {
		return 0, errors.New("no binding module configured")
	}
	m, err := windows.UTF16PtrFromString(module)
	if err != nil {
		return 0, err
	}
	var h windows.Handle
	if err := windows.GetModuleHandleEx(windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT, m, &h); err != nil {
		return 0, err
	}
	return windows.GetProcAddress(h, name)
}
