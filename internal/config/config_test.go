package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagtoad/tfbind/internal/nativelib"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".tfbind"), cfg.Home)
	assert.Equal(t, EngineNative, cfg.Engine)
	assert.Equal(t, nativelib.DefaultVersion, cfg.Version)
	assert.Equal(t, []string{"ops"}, cfg.OpLibraries)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.ResourcesDir)
	assert.Equal(t, nativelib.DefaultLibraries, cfg.Libraries())
}

func TestLoadFromHomeConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	appDir := filepath.Join(home, ".tfbind")
	require.NoError(t, os.MkdirAll(appDir, 0755))

	content := "engine: onnxruntime\nresources:\n  dir: /opt/tfbind/native\nlibraries:\n  ops: [\"ops\", \"sparse_ops\"]\nlog:\n  level: debug\n  format: json\n"
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "config.yaml"), []byte(content), 0644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, EngineOnnxRuntime, cfg.Engine)
	assert.Equal(t, "/opt/tfbind/native", cfg.ResourcesDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	libs := cfg.Libraries()
	require.Len(t, libs, 5)
	assert.Equal(t, nativelib.Library{Name: "sparse_ops", Kind: nativelib.KindOps}, libs[4])
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TFBIND_LOG_LEVEL", "info")
	t.Setenv("TFBIND_VERSION", "2.5.1")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "2.5.1", cfg.Version)
}

func TestLoadFlagsOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TFBIND_ENGINE", EngineOnnxRuntime)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("engine", EngineNative, "")
	flags.String("resources", "", "")
	require.NoError(t, flags.Parse([]string{"--engine", "native", "--resources", "/srv/native"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, EngineNative, cfg.Engine)
	assert.Equal(t, "/srv/native", cfg.ResourcesDir)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadUnknownEngine(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TFBIND_ENGINE", "tpu")

	_, err := Load("", nil)
	assert.ErrorContains(t, err, "unknown engine")
}
