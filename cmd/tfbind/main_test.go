package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagtoad/tfbind/internal/nativelib"
	"github.com/bagtoad/tfbind/internal/platform"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestVersionCommand(t *testing.T) {
	setHome(t)
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tfbind "+version)
}

func TestPlatformCommand(t *testing.T) {
	setHome(t)
	out, err := run(t, "platform")
	require.NoError(t, err)
	assert.Contains(t, out, "Platform: "+platform.Current().String())
	assert.Contains(t, out, "bindings (bindings)")
}

func TestPlatformCommandOnnxRuntime(t *testing.T) {
	setHome(t)
	out, err := run(t, "platform", "--engine", "onnxruntime")
	require.NoError(t, err)
	assert.Contains(t, out, "onnxruntime (bindings)")
	assert.NotContains(t, out, "framework")
}

func TestLoadCommandMissingBindings(t *testing.T) {
	home := setHome(t)
	resources := t.TempDir()

	_, err := run(t, "load", "--resources", resources, "--temp-dir", t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, nativelib.ErrNoBindingLibrary)
	assert.Contains(t, err.Error(), platform.Current().String())

	_, statErr := os.Stat(filepath.Join(home, ".tfbind", "native-dir"))
	assert.True(t, os.IsNotExist(statErr), "failed load must not record a directory")
}

func TestInspectCommandNothingRecorded(t *testing.T) {
	setHome(t)
	out, err := run(t, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded directory:  none")
}

func TestInspectAndCleanCommands(t *testing.T) {
	home := setHome(t)
	extracted := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(extracted, "libbindings.so"), []byte("so"), 0755))

	meta, err := nativelib.NewFileMetadata(filepath.Join(home, ".tfbind"))
	require.NoError(t, err)
	require.NoError(t, meta.WriteDir(extracted))

	out, err := run(t, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded directory:  "+extracted)
	assert.Contains(t, out, "libbindings.so")

	out, err = run(t, "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed "+extracted)

	_, err = os.Stat(extracted)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(meta.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestInspectCommandRecordedDirectoryGone(t *testing.T) {
	home := setHome(t)
	gone := filepath.Join(t.TempDir(), "tfbind-native-1")

	meta, err := nativelib.NewFileMetadata(filepath.Join(home, ".tfbind"))
	require.NoError(t, err)
	require.NoError(t, meta.WriteDir(gone))

	out, err := run(t, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded directory:  "+gone)
	assert.Contains(t, out, "Scan failed: cannot access directory")
	assert.NotContains(t, out, "No native libraries found")
}

func TestUnknownEngine(t *testing.T) {
	setHome(t)
	_, err := run(t, "platform", "--engine", "tpu")
	assert.ErrorContains(t, err, "unknown engine")
}
