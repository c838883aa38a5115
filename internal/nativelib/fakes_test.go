package nativelib

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

var errNotLoaded = errors.New("symbols not resolved")

// fakeRuntime simulates the native boundary. The probe succeeds once a
// binding library has been loaded.
type fakeRuntime struct {
	mu       sync.Mutex
	ready    bool
	loaded   []string
	bindings []string
	ops      []string

	bindingsErr error
	opsErr      error
	// noProbe keeps the probe failing even after the bindings load.
	noProbe bool
}

func (r *fakeRuntime) ProbeVersion() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return "", errNotLoaded
	}
	return "2.4.0", nil
}

func (r *fakeRuntime) LoadLibrary(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = append(r.loaded, filepath.Base(path))
	return nil
}

func (r *fakeRuntime) LoadBindings(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bindingsErr != nil {
		return r.bindingsErr
	}
	r.bindings = append(r.bindings, filepath.Base(path))
	r.ready = !r.noProbe
	return nil
}

func (r *fakeRuntime) LoadOpLibrary(path string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opsErr != nil {
		return nil, r.opsErr
	}
	r.ops = append(r.ops, filepath.Base(path))
	return []byte("oplist:" + filepath.Base(path)), nil
}

// plainRuntime loads the bindings through LoadLibrary only.
type plainRuntime struct {
	loaded []string
}

func (r *plainRuntime) ProbeVersion() (string, error) {
	for _, name := range r.loaded {
		if strings.HasPrefix(name, "libbindings") {
			return "2.4.0", nil
		}
	}
	return "", errNotLoaded
}

func (r *plainRuntime) LoadLibrary(path string) error {
	r.loaded = append(r.loaded, filepath.Base(path))
	return nil
}

func (r *plainRuntime) LoadOpLibrary(string) ([]byte, error) {
	return nil, nil
}

// countingFS counts every resource opened from the bundle.
type countingFS struct {
	fs.FS
	opens atomic.Int32
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.opens.Add(1)
	return c.FS.Open(name)
}

type memMetadata struct {
	mu       sync.Mutex
	dir      string
	writes   int
	writeErr error
}

func (m *memMetadata) ReadDir() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir, nil
}

func (m *memMetadata) WriteDir(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.dir = dir
	return nil
}
