package tfbind

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bagtoad/tfbind/internal/bundle"
	"github.com/bagtoad/tfbind/internal/config"
	"github.com/bagtoad/tfbind/internal/logging"
	"github.com/bagtoad/tfbind/internal/native"
	"github.com/bagtoad/tfbind/internal/nativelib"
	"github.com/bagtoad/tfbind/internal/ortengine"
	"github.com/bagtoad/tfbind/internal/platform"
	"github.com/bagtoad/tfbind/internal/tensorbytes"
)

// Tensor is an encoded tensor value.
type Tensor = tensorbytes.Tensor

// DataType is the native element type code.
type DataType = tensorbytes.DataType

// LoadResult describes where a successful Load found the libraries.
type LoadResult = nativelib.Result

// Engines accepted by Options.Engine.
const (
	EngineNative      = config.EngineNative
	EngineOnnxRuntime = config.EngineOnnxRuntime
)

var (
	// ErrNotLoaded is returned by the native entry points before Load has
	// succeeded.
	ErrNotLoaded = errors.New("tfbind: native library not loaded")

	// ErrConfigured is returned by Configure once Load has been called.
	ErrConfigured = errors.New("tfbind: loader already configured")
)

// Options select where Load finds and extracts the native libraries.
// Zero values fall back to the defaults used by the tfbind command.
type Options struct {
	// ResourcesDir replaces the embedded bundle with a directory.
	ResourcesDir string
	// AppDir holds the metadata file; empty selects ~/.tfbind.
	AppDir string
	// TempDir is the parent of fresh extraction directories.
	TempDir string
	// Version of the foundation libraries; empty selects the bundled one.
	Version string
	// OpLibraries names the op-extension libraries; nil keeps the default.
	OpLibraries []string
	// Engine is EngineNative or EngineOnnxRuntime; empty selects native.
	Engine string
	Logger logrus.FieldLogger
}

var (
	mu      sync.Mutex
	logger  logrus.FieldLogger
	opts    *Options
	loader  *nativelib.Loader
	bound   nativelib.Runtime
	natives *native.Runtime
	engine  *ortengine.Engine
)

// SetLogger sets the logger used by Load. It has no effect once Load has
// been called.
func SetLogger(l logrus.FieldLogger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Configure sets the options used by the first Load. Without it, Load
// reads them from ~/.tfbind/config.* and TFBIND_* environment variables.
func Configure(o Options) error {
	mu.Lock()
	defer mu.Unlock()
	if loader != nil {
		return ErrConfigured
	}
	opts = &o
	return nil
}

func optionsFromConfig(cfg *config.Config) (Options, error) {
	o := Options{
		ResourcesDir: cfg.ResourcesDir,
		AppDir:       cfg.Home,
		TempDir:      cfg.TempDir,
		Version:      cfg.Version,
		OpLibraries:  cfg.OpLibraries,
		Engine:       cfg.Engine,
		Logger:       logger,
	}
	if o.Logger == nil {
		log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return o, err
		}
		o.Logger = log
	}
	return o, nil
}

func libraries(o Options) []nativelib.Library {
	switch {
	case o.Engine == EngineOnnxRuntime:
		return ortengine.Libraries
	case o.OpLibraries == nil:
		return nativelib.DefaultLibraries
	}
	return nativelib.LibrariesWithOps(o.OpLibraries)
}

func resources(o Options) fs.FS {
	if o.ResourcesDir != "" {
		return bundle.Dir(o.ResourcesDir)
	}
	return bundle.FS()
}

// nativeSymbols returns the entry points resolved from the binding library
// in libs on p.
func nativeSymbols(libs []nativelib.Library, p platform.Platform, version string) native.Symbols {
	syms := native.DefaultSymbols
	if name := nativelib.BindingsFileName(libs, p, version); name != "" {
		syms.Module = name
	}
	return syms
}

func processLoader() (*nativelib.Loader, error) {
	mu.Lock()
	defer mu.Unlock()

	if loader != nil {
		return loader, nil
	}
	var o Options
	if opts != nil {
		o = *opts
		if o.Logger == nil {
			o.Logger = logger
		}
	} else {
		cfg, err := config.Load("", nil)
		if err != nil {
			return nil, err
		}
		if o, err = optionsFromConfig(cfg); err != nil {
			return nil, err
		}
	}
	switch o.Engine {
	case "", EngineNative, EngineOnnxRuntime:
	default:
		return nil, fmt.Errorf("tfbind: unknown engine %q", o.Engine)
	}

	meta, err := nativelib.NewFileMetadata(o.AppDir)
	if err != nil {
		return nil, err
	}
	if o.ResourcesDir == "" && bundle.Empty() && o.Logger != nil {
		o.Logger.Warn("no native libraries embedded in this binary; set resources.dir")
	}

	p := platform.Current()
	libs := libraries(o)
	natives = native.New(nativeSymbols(libs, p, o.Version))
	bound = natives
	if o.Engine == EngineOnnxRuntime {
		engine = ortengine.New(natives)
		bound = engine
	}
	loader = nativelib.New(nativelib.Options{
		Platform:  p,
		Version:   o.Version,
		Libraries: libs,
		Resources: resources(o),
		Runtime:   bound,
		Metadata:  meta,
		TempDir:   o.TempDir,
		Logger:    o.Logger,
	})
	return loader, nil
}

// Load makes the bundled native libraries usable in this process. Only
// the first call does any work; later calls return its outcome.
func Load() error {
	l, err := processLoader()
	if err != nil {
		return err
	}
	return l.Load()
}

// Result returns the outcome of a successful Load, or nil.
func Result() *LoadResult {
	mu.Lock()
	l := loader
	mu.Unlock()
	if l == nil {
		return nil
	}
	return l.Result()
}

// Close removes this process's extraction directory unless it was
// recorded for reuse.
func Close() error {
	mu.Lock()
	l, e := loader, engine
	mu.Unlock()
	if l == nil {
		return nil
	}
	var err error
	if e != nil {
		err = e.Close()
	}
	if lerr := l.Close(); err == nil {
		err = lerr
	}
	return err
}

// loadedRuntimes returns the runtimes bound by a successful Load.
func loadedRuntimes() (nativelib.Runtime, *native.Runtime, error) {
	mu.Lock()
	l, rt, n := loader, bound, natives
	mu.Unlock()
	if l == nil || l.State() != nativelib.Loaded {
		return nil, nil, ErrNotLoaded
	}
	return rt, n, nil
}

// Version returns the native library version.
func Version() (string, error) {
	rt, _, err := loadedRuntimes()
	if err != nil {
		return "", err
	}
	return rt.ProbeVersion()
}

// DataTypeSize returns the native element size of dt in bytes, or 0 for
// variable-length types.
func DataTypeSize(dt DataType) (int, error) {
	_, n, err := loadedRuntimes()
	if err != nil {
		return 0, err
	}
	return n.DataTypeSize(int32(dt))
}

// LoadOpLibrary registers an op library with the native engine and
// returns its serialized op list.
func LoadOpLibrary(path string) ([]byte, error) {
	rt, _, err := loadedRuntimes()
	if err != nil {
		return nil, err
	}
	return rt.LoadOpLibrary(path)
}

// EnableXLA turns on accelerated linear algebra compilation.
func EnableXLA() error {
	_, n, err := loadedRuntimes()
	if err != nil {
		return err
	}
	return n.EnableXLA()
}

// EncodeTensor flattens a scalar or nested slice into native tensor bytes.
func EncodeTensor(v any) (*Tensor, error) {
	return tensorbytes.Encode(v)
}
