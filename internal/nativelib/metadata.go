package nativelib

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AppDirName is the per-user application directory under the home
// directory.
const AppDirName = ".tfbind"

// metadataFileName records the last successful extraction directory.
const metadataFileName = "native-dir"

// MetadataStore persists the last successful extraction directory.
type MetadataStore interface {
	// ReadDir returns the recorded directory, or "" when none is recorded.
	ReadDir() (string, error)
	// WriteDir records dir.
	WriteDir(dir string) error
}

// AppDir returns the per-user application directory (~/.tfbind).
func AppDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, AppDirName), nil
}

// FileMetadata stores the extraction directory as the sole content of a
// single file.
type FileMetadata struct {
	Path string
}

// NewFileMetadata returns a store at <appDir>/native-dir. An empty appDir
// selects AppDir().
func NewFileMetadata(appDir string) (*FileMetadata, error) {
	if appDir == "" {
		dir, err := AppDir()
		if err != nil {
			return nil, err
		}
		appDir = dir
	}
	return &FileMetadata{Path: filepath.Join(appDir, metadataFileName)}, nil
}

func (m *FileMetadata) ReadDir() (string, error) {
	b, err := os.ReadFile(m.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cannot read metadata file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (m *FileMetadata) WriteDir(dir string) error {
	if err := os.MkdirAll(filepath.Dir(m.Path), 0755); err != nil {
		return fmt.Errorf("cannot create metadata directory: %w", err)
	}
	if err := writeFile(m.Path, strings.NewReader(dir), 0644); err != nil {
		return fmt.Errorf("cannot write metadata file: %w", err)
	}
	return nil
}

// Remove deletes the metadata file. A missing file is not an error.
func (m *FileMetadata) Remove() error {
	if err := os.Remove(m.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot remove metadata file: %w", err)
	}
	return nil
}
