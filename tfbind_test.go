package tfbind

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagtoad/tfbind/internal/nativelib"
	"github.com/bagtoad/tfbind/internal/ortengine"
	"github.com/bagtoad/tfbind/internal/platform"
	"github.com/bagtoad/tfbind/internal/tensorbytes"
)

// resetLoader drops the process loader so each test configures its own.
func resetLoader(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	reset := func() {
		mu.Lock()
		l := loader
		logger, opts, loader, bound, natives, engine = nil, nil, nil, nil, nil, nil
		mu.Unlock()
		if l != nil {
			l.Close()
		}
	}
	reset()
	t.Cleanup(reset)
}

// bindingsDir returns a resources directory whose only entry is this
// platform's binding library, holding bytes no dynamic loader accepts.
func bindingsDir(t *testing.T) (dir string, c nativelib.Candidate) {
	t.Helper()
	lib := nativelib.Library{Name: "bindings", Kind: nativelib.KindBindings}
	c = nativelib.Candidates(lib, platform.Current(), nativelib.DefaultVersion)[0]

	dir = t.TempDir()
	dest := filepath.Join(dir, filepath.FromSlash(c.Resource))
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))
	require.NoError(t, os.WriteFile(dest, []byte("not a shared library"), 0644))
	return dir, c
}

func requireBindingsLoadError(t *testing.T, err error, c nativelib.Candidate) {
	t.Helper()
	require.Error(t, err)
	assert.NotErrorIs(t, err, nativelib.ErrNoBindingLibrary, "the bindings in the resources directory were not found")

	var linkErr *nativelib.LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Equal(t, "bindings", linkErr.Library)
	assert.Contains(t, linkErr.Resource, c.FileName())
}

func TestEntryPointsRequireLoad(t *testing.T) {
	resetLoader(t)

	_, err := Version()
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = DataTypeSize(tensorbytes.Float)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = LoadOpLibrary("/x/libops.so")
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, EnableXLA(), ErrNotLoaded)
	assert.Nil(t, Result())
	assert.NoError(t, Close())
}

func TestConfigureResourcesDir(t *testing.T) {
	resetLoader(t)
	dir, c := bindingsDir(t)
	appDir := t.TempDir()

	require.NoError(t, Configure(Options{
		ResourcesDir: dir,
		AppDir:       appDir,
		TempDir:      t.TempDir(),
	}))

	err := Load()
	requireBindingsLoadError(t, err, c)
	assert.Equal(t, err, Load(), "a failed load is not retried")
	assert.Nil(t, Result())

	_, statErr := os.Stat(filepath.Join(appDir, "native-dir"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadReadsResourcesDirFromEnvironment(t *testing.T) {
	resetLoader(t)
	dir, c := bindingsDir(t)
	t.Setenv("TFBIND_RESOURCES_DIR", dir)
	t.Setenv("TFBIND_TEMP_DIR", t.TempDir())

	requireBindingsLoadError(t, Load(), c)
}

func TestConfigureAfterLoad(t *testing.T) {
	resetLoader(t)
	require.NoError(t, Configure(Options{ResourcesDir: t.TempDir(), AppDir: t.TempDir(), TempDir: t.TempDir()}))

	first, err := processLoader()
	require.NoError(t, err)
	assert.ErrorIs(t, Load(), nativelib.ErrNoBindingLibrary)

	assert.ErrorIs(t, Configure(Options{}), ErrConfigured)
	second, err := processLoader()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestConfigureUnknownEngine(t *testing.T) {
	resetLoader(t)
	require.NoError(t, Configure(Options{Engine: "tpu"}))
	assert.ErrorContains(t, Load(), `unknown engine "tpu"`)
}

func TestNativeModuleFollowsBindings(t *testing.T) {
	syms := nativeSymbols(nativelib.DefaultLibraries, platform.Windows, nativelib.DefaultVersion)
	assert.Equal(t, "bindings.dll", syms.Module)

	syms = nativeSymbols(ortengine.Libraries, platform.Windows, nativelib.DefaultVersion)
	assert.Equal(t, "onnxruntime.dll", syms.Module)
	assert.Equal(t, "tfbind_version", syms.Version)

	resetLoader(t)
	require.NoError(t, Configure(Options{Engine: EngineOnnxRuntime, AppDir: t.TempDir()}))
	_, err := processLoader()
	require.NoError(t, err)
	want := nativelib.BindingsFileName(ortengine.Libraries, platform.Current(), "")
	assert.Equal(t, want, natives.Symbols().Module)
	assert.NotNil(t, engine)
}

func TestEncodeTensor(t *testing.T) {
	tensor, err := EncodeTensor([][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, tensorbytes.Float, tensor.DataType)
	assert.Equal(t, []int64{2, 2}, tensor.Shape)
	assert.Len(t, tensor.Data, 16)
}
