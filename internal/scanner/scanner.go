// Package scanner lists the native library files in an extraction
// directory.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// SupportedExtensions contains the shared library extensions we recognize.
var SupportedExtensions = map[string]bool{
	".so":    true,
	".dylib": true,
	".dll":   true,
}

// versionedSO matches ELF version aliases such as libcore.so.2.4.0.
var versionedSO = regexp.MustCompile(`\.so(\.\d+)+$`)

// File is one native library found by Scan.
type File struct {
	Path string
	Size int64
}

// Result holds the output of scanning a directory.
type Result struct {
	Libraries    []File
	SkippedCount int
}

// IsNativeLibrary reports whether name looks like a shared library,
// including versioned .so aliases.
func IsNativeLibrary(name string) bool {
	if SupportedExtensions[strings.ToLower(filepath.Ext(name))] {
		return true
	}
	return versionedSO.MatchString(name)
}

// Scan walks the given directory (non-recursive) and returns the native
// libraries in it and a count of skipped files.
func Scan(dir string) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}

	result := &Result{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !IsNativeLibrary(entry.Name()) {
			result.SkippedCount++
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("cannot stat %s: %w", entry.Name(), err)
		}
		result.Libraries = append(result.Libraries, File{
			Path: filepath.Join(dir, entry.Name()),
			Size: fi.Size(),
		})
	}

	if len(result.Libraries) == 0 {
		return nil, fmt.Errorf("no native libraries found in %s", dir)
	}

	return result, nil
}
