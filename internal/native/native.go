// Package native binds the C entry points exported by the tfbind binding
// library. Libraries are opened with dlopen (LoadLibrary on Windows) and
// their symbols bound with purego, so no cgo toolchain is needed.
package native

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	// ErrNotLoaded is returned when the binding library's symbols cannot be
	// resolved in the process.
	ErrNotLoaded = errors.New("native: binding library not loaded")

	// ErrSymbolNotFound is returned by Lookup for unknown symbols.
	ErrSymbolNotFound = errors.New("native: symbol not found")
)

// Symbols names the C entry points of the binding library.
type Symbols struct {
	Version       string // const char* (void)
	LastError     string // const char* (void)
	DataTypeSize  string // size_t (int32_t dtype)
	LoadOpLibrary string // int32_t (const char* path, void** data, size_t* len)
	Free          string // void (void*)
	EnableXLA     string // void (void)
	// Module is the file name of the binding library. Windows has no
	// process-wide symbol namespace, so before anything is loaded through
	// the Runtime only this module is searched there.
	Module string
}

// DefaultSymbols are the entry points exported by libbindings.
var DefaultSymbols = Symbols{
	Version:       "tfbind_version",
	LastError:     "tfbind_last_error",
	DataTypeSize:  "tfbind_data_type_size",
	LoadOpLibrary: "tfbind_load_op_library",
	Free:          "tfbind_free",
	EnableXLA:     "tfbind_enable_xla",
	Module:        "bindings.dll",
}

// Runtime is the native call boundary backed by the dynamic loader.
type Runtime struct {
	syms Symbols

	mu      sync.Mutex
	handles []uintptr
	paths   []string
}

// New returns a Runtime resolving syms. Symbols are looked up in the
// libraries loaded through the Runtime, then in the process globally.
func New(syms Symbols) *Runtime {
	return &Runtime{syms: syms}
}

// LoadLibrary opens the shared library at path with global symbol
// visibility, so later libraries can resolve against it.
func (r *Runtime) LoadLibrary(path string) error {
	h, err := openLibrary(path)
	if err != nil {
		return fmt.Errorf("native: cannot load %s: %w", path, err)
	}
	r.mu.Lock()
	r.handles = append(r.handles, h)
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	return nil
}

// Symbols returns the entry point names r resolves.
func (r *Runtime) Symbols() Symbols {
	return r.syms
}

// Loaded returns the paths loaded through r, in load order.
func (r *Runtime) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// Lookup returns the address of a symbol, searching the most recently
// loaded library first.
func (r *Runtime) Lookup(name string) (uintptr, error) {
	r.mu.Lock()
	handles := append([]uintptr(nil), r.handles...)
	r.mu.Unlock()

	for i := len(handles) - 1; i >= 0; i-- {
		if sym, err := librarySymbol(handles[i], name); err == nil && sym != 0 {
			return sym, nil
		}
	}
	if sym, err := globalSymbol(r.syms.Module, name); err == nil && sym != 0 {
		return sym, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
}

func (r *Runtime) bind(fptr any, name string) error {
	sym, err := r.Lookup(name)
	if err != nil {
		return err
	}
	purego.RegisterFunc(fptr, sym)
	return nil
}

// ProbeVersion calls the binding library's version entry point. It fails
// with ErrNotLoaded until the binding library is resident.
func (r *Runtime) ProbeVersion() (string, error) {
	var version func() string
	if err := r.bind(&version, r.syms.Version); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotLoaded, err)
	}
	v := version()
	if v == "" {
		return "", fmt.Errorf("%w: empty version", ErrNotLoaded)
	}
	return v, nil
}

// DataTypeSize returns the size in bytes of one element of dtype, or 0 for
// variable-length types.
func (r *Runtime) DataTypeSize(dtype int32) (int, error) {
	var size func(int32) uintptr
	if err := r.bind(&size, r.syms.DataTypeSize); err != nil {
		return 0, err
	}
	return int(size(dtype)), nil
}

// EnableXLA turns on accelerated linear algebra compilation in the native
// engine.
func (r *Runtime) EnableXLA() error {
	var enable func()
	if err := r.bind(&enable, r.syms.EnableXLA); err != nil {
		return err
	}
	enable()
	return nil
}

// LoadOpLibrary registers the op library at path with the native engine
// and returns the serialized list of ops it defines.
func (r *Runtime) LoadOpLibrary(path string) ([]byte, error) {
	var (
		load func(path string, data *unsafe.Pointer, n *uintptr) int32
		free func(unsafe.Pointer)
	)
	if err := r.bind(&load, r.syms.LoadOpLibrary); err != nil {
		return nil, err
	}
	if err := r.bind(&free, r.syms.Free); err != nil {
		return nil, err
	}

	var (
		data unsafe.Pointer
		n    uintptr
	)
	if code := load(path, &data, &n); code != 0 {
		return nil, fmt.Errorf("native: cannot load op library %s: %s (code %d)", path, r.lastError(), code)
	}
	if data == nil {
		return nil, nil
	}
	defer free(data)
	return append([]byte(nil), unsafe.Slice((*byte)(data), n)...), nil
}

func (r *Runtime) lastError() string {
	var lastError func() string
	if err := r.bind(&lastError, r.syms.LastError); err != nil {
		return "unknown error"
	}
	if msg := lastError(); msg != "" {
		return msg
	}
	return "unknown error"
}
