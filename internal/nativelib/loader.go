// Package nativelib resolves, extracts and loads the bundled native
// libraries for the current platform.
//
// Loading tries, in order: libraries already resident in the process, a
// directory recorded by an earlier run, and finally a fresh extraction of
// the bundle into a private temporary directory whose path is recorded for
// the next run.
package nativelib

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bagtoad/tfbind/internal/platform"
)

// Runtime is the native call boundary the loader depends on.
type Runtime interface {
	// ProbeVersion succeeds once the native entry points are callable.
	ProbeVersion() (string, error)
	// LoadLibrary dynamically loads the shared library at path.
	LoadLibrary(path string) error
	// LoadOpLibrary registers an op-extension library and returns its
	// serialized op list.
	LoadOpLibrary(path string) ([]byte, error)
}

// BindingsLoader is implemented by runtimes that load the binding library
// differently from other shared libraries.
type BindingsLoader interface {
	LoadBindings(path string) error
}

// State is the loader's progress through Load.
type State int

const (
	NotAttempted State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case NotAttempted:
		return "not attempted"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Source tells where the loaded libraries came from.
type Source int

const (
	// AlreadyLoaded means the probe succeeded before anything was loaded.
	AlreadyLoaded Source = iota
	// Reused means the libraries were loaded from the recorded directory.
	Reused
	// Extracted means the bundle was extracted into a fresh directory.
	Extracted
)

func (s Source) String() string {
	switch s {
	case AlreadyLoaded:
		return "already loaded"
	case Reused:
		return "reused"
	case Extracted:
		return "extracted"
	}
	return "unknown"
}

// Result describes a successful Load.
type Result struct {
	Source  Source
	Dir     string
	Version string
	// Files lists the library files located or extracted, per logical
	// library, in load order.
	Files []LibraryFiles
	// OpLists holds the serialized op list returned for each op library.
	OpLists map[string][]byte
	// Persisted reports whether Dir was recorded for later runs.
	Persisted bool
}

// LibraryFiles are the on-disk files of one logical library.
type LibraryFiles struct {
	Library Library
	Paths   []string
}

// Options configure a Loader.
type Options struct {
	Platform  platform.Platform
	Version   string
	Libraries []Library
	// Resources is the bundle. Paths follow the layout documented on
	// Candidates.
	Resources fs.FS
	Runtime   Runtime
	Metadata  MetadataStore
	// TempDir is the parent of fresh extraction directories; empty selects
	// os.TempDir().
	TempDir string
	Logger  logrus.FieldLogger
}

// Loader loads the native libraries once. It is safe for concurrent use;
// concurrent Load calls are serialized.
type Loader struct {
	platform  platform.Platform
	version   string
	libraries []Library
	resources fs.FS
	runtime   Runtime
	meta      MetadataStore
	tempDir   string
	log       logrus.FieldLogger

	mu     sync.Mutex
	state  State
	err    error
	result *Result
	// freshDir is the extraction directory created by this process.
	freshDir string
}

// New returns a Loader. Runtime, Resources and Metadata are required; the
// other options have defaults.
func New(opts Options) *Loader {
	l := &Loader{
		platform:  opts.Platform,
		version:   opts.Version,
		libraries: opts.Libraries,
		resources: opts.Resources,
		runtime:   opts.Runtime,
		meta:      opts.Metadata,
		tempDir:   opts.TempDir,
		log:       opts.Logger,
	}
	if l.platform == "" {
		l.platform = platform.Current()
	}
	if l.version == "" {
		l.version = DefaultVersion
	}
	if l.libraries == nil {
		l.libraries = DefaultLibraries
	}
	if l.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		l.log = discard
	}
	l.log = l.log.WithField("platform", l.platform.String())
	return l
}

// Load makes the native libraries usable. Once it has succeeded, later
// calls return nil without doing any work; once it has failed, later calls
// return the same error.
func (l *Loader) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case Loaded:
		return nil
	case Failed:
		return l.err
	}

	res, err := l.load()
	if err != nil {
		l.state, l.err = Failed, err
		return err
	}
	l.state, l.result = Loaded, res
	return nil
}

// State returns the loader's current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Result returns the outcome of a successful Load, or nil.
func (l *Loader) Result() *Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result
}

// Close removes the extraction directory created by this process unless it
// was recorded for reuse by later runs.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.freshDir == "" || (l.result != nil && l.result.Persisted && l.result.Dir == l.freshDir) {
		return nil
	}
	dir := l.freshDir
	l.freshDir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("cannot remove extraction directory: %w", err)
	}
	return nil
}

func (l *Loader) load() (*Result, error) {
	if v, err := l.runtime.ProbeVersion(); err == nil {
		l.log.WithField("version", v).Info("native library already loaded")
		return &Result{Source: AlreadyLoaded, Version: v}, nil
	}

	if res, ok := l.reuse(); ok {
		return res, nil
	}

	dir, err := os.MkdirTemp(l.tempDir, "tfbind-native-*")
	if err != nil {
		return nil, &LinkError{Platform: l.platform, Err: fmt.Errorf("cannot create extraction directory: %w", err)}
	}
	l.freshDir = dir

	res, err := l.loadFrom(dir, l.extract)
	if err != nil {
		return nil, err
	}
	v, err := l.runtime.ProbeVersion()
	if err != nil {
		return nil, &LinkError{Platform: l.platform, Library: l.bindingsName(), Err: fmt.Errorf("native entry points unavailable after loading: %w", err)}
	}
	res.Source, res.Version = Extracted, v

	if err := l.meta.WriteDir(dir); err != nil {
		l.log.WithError(err).Warn("cannot record extraction directory")
	} else {
		res.Persisted = true
	}
	l.log.WithField("dir", dir).WithField("version", v).Info("native libraries extracted")
	return res, nil
}

// reuse loads from the directory recorded by an earlier run. Any failure
// falls through to a fresh extraction.
func (l *Loader) reuse() (*Result, bool) {
	dir, err := l.meta.ReadDir()
	if err != nil {
		l.log.WithError(err).Debug("cannot read extraction metadata")
		return nil, false
	}
	if dir == "" {
		return nil, false
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		l.log.WithField("dir", dir).Debug("recorded extraction directory is gone")
		return nil, false
	}

	log := l.log.WithField("dir", dir)
	res, err := l.loadFrom(dir, locate)
	if err != nil {
		log.WithError(err).Debug("cannot load from recorded directory")
		return nil, false
	}
	v, err := l.runtime.ProbeVersion()
	if err != nil {
		log.WithError(err).Debug("probe failed after loading recorded directory")
		return nil, false
	}
	res.Source, res.Version, res.Persisted = Reused, v, true
	log.WithField("version", v).Info("native libraries reused")
	return res, true
}

// loadFrom materializes every candidate into dir, then loads preloads,
// the bindings and op libraries in that order.
func (l *Loader) loadFrom(dir string, materialize materializer) (*Result, error) {
	res := &Result{Dir: dir, OpLists: make(map[string][]byte)}

	type found struct {
		path    string
		preload bool
	}
	files := make([][]found, len(l.libraries))
	for i, lib := range l.libraries {
		for _, c := range Candidates(lib, l.platform, l.version) {
			p, ok, err := materialize(c, dir)
			if err != nil {
				return nil, &LinkError{Platform: l.platform, Library: lib.Name, Resource: c.Resource, Err: err}
			}
			if ok {
				files[i] = append(files[i], found{path: p, preload: c.Preload})
			}
		}
		paths := make([]string, 0, len(files[i]))
		for _, f := range files[i] {
			paths = append(paths, f.path)
		}
		res.Files = append(res.Files, LibraryFiles{Library: lib, Paths: paths})
	}

	for i, lib := range l.libraries {
		if lib.Kind != KindFoundation {
			continue
		}
		for _, f := range files[i] {
			if !f.preload {
				continue
			}
			if err := l.runtime.LoadLibrary(f.path); err != nil {
				return nil, &LinkError{Platform: l.platform, Library: lib.Name, Resource: f.path, Err: err}
			}
			l.log.WithField("file", f.path).Debug("preloaded")
		}
	}

	for i, lib := range l.libraries {
		if lib.Kind != KindBindings {
			continue
		}
		if len(files[i]) == 0 {
			return nil, &LinkError{Platform: l.platform, Library: lib.Name, Err: ErrNoBindingLibrary}
		}
		for _, f := range files[i] {
			if err := l.loadBindings(f.path); err != nil {
				return nil, &LinkError{Platform: l.platform, Library: lib.Name, Resource: f.path, Err: err}
			}
			l.log.WithField("file", f.path).Debug("loaded bindings")
		}
	}

	for i, lib := range l.libraries {
		if lib.Kind != KindOps {
			continue
		}
		for _, f := range files[i] {
			ops, err := l.runtime.LoadOpLibrary(f.path)
			if err != nil {
				return nil, &LinkError{Platform: l.platform, Library: lib.Name, Resource: f.path, Err: err}
			}
			res.OpLists[f.path] = ops
			l.log.WithField("file", f.path).Debug("loaded op library")
		}
	}
	return res, nil
}

func (l *Loader) loadBindings(path string) error {
	if bl, ok := l.runtime.(BindingsLoader); ok {
		return bl.LoadBindings(path)
	}
	return l.runtime.LoadLibrary(path)
}

func (l *Loader) bindingsName() string {
	for _, lib := range l.libraries {
		if lib.Kind == KindBindings {
			return lib.Name
		}
	}
	return ""
}
