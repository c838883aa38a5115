// Package ortengine runs the native library loader against ONNX Runtime:
// the bundled binding library is the ONNX Runtime shared library, and the
// probe is the runtime's own version query.
package ortengine

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/bagtoad/tfbind/internal/nativelib"
)

// LibraryName is the logical name of the ONNX Runtime library.
const LibraryName = "onnxruntime"

// Libraries is the load set for this engine: ONNX Runtime has no shared
// framework dependency and no op-extension libraries.
var Libraries = []nativelib.Library{
	{Name: LibraryName, Kind: nativelib.KindBindings},
}

var (
	// ErrNotInitialized is returned by the probe before the environment
	// is up.
	ErrNotInitialized = errors.New("ortengine: onnxruntime environment not initialized")

	// ErrOpLibrariesUnsupported is returned for op-extension libraries,
	// which ONNX Runtime registers per session.
	ErrOpLibrariesUnsupported = errors.New("ortengine: op libraries are not supported")
)

// Preloader loads dependency libraries ahead of ONNX Runtime.
type Preloader interface {
	LoadLibrary(path string) error
}

// Engine adapts onnxruntime_go to the loader's runtime interface.
type Engine struct {
	preload Preloader

	mu   sync.Mutex
	path string
}

// New returns an Engine. preload may be nil when no dependencies need
// loading.
func New(preload Preloader) *Engine {
	return &Engine{preload: preload}
}

// ProbeVersion reports the ONNX Runtime version once the environment is
// initialized.
func (e *Engine) ProbeVersion() (string, error) {
	if !ort.IsInitialized() {
		return "", ErrNotInitialized
	}
	return ort.GetVersion(), nil
}

// LoadLibrary loads a dependency of ONNX Runtime.
func (e *Engine) LoadLibrary(path string) error {
	if e.preload == nil {
		return fmt.Errorf("ortengine: no preloader for %s", path)
	}
	return e.preload.LoadLibrary(path)
}

// LoadBindings points onnxruntime_go at the extracted library and
// initializes the environment.
func (e *Engine) LoadBindings(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	ort.SetSharedLibraryPath(path)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("cannot initialize ONNX Runtime: %w", err)
	}
	e.path = path
	return nil
}

func (e *Engine) LoadOpLibrary(path string) ([]byte, error) {
	return nil, fmt.Errorf("%w: %s", ErrOpLibrariesUnsupported, path)
}

// LibraryPath returns the library the environment was initialized from.
func (e *Engine) LibraryPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

// Close tears down the ONNX Runtime environment if this engine created it.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.path == "" || !ort.IsInitialized() {
		return nil
	}
	e.path = ""
	return ort.DestroyEnvironment()
}
