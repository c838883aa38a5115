package nativelib

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// materializer makes a candidate available in dir, returning its on-disk
// path. ok is false when the candidate is not available.
type materializer func(c Candidate, dir string) (filePath string, ok bool, err error)

// locate finds a candidate previously extracted into dir without touching
// the bundle.
func locate(c Candidate, dir string) (string, bool, error) {
	p := filepath.Join(dir, c.FileName())
	if info, err := os.Stat(p); err != nil || info.IsDir() {
		return "", false, nil
	}
	return p, true, nil
}

// extract copies the candidate's resource into dir. A file already present
// under the target name is kept as is and the bundle is not read. A missing
// resource is not an error.
func (l *Loader) extract(c Candidate, dir string) (string, bool, error) {
	dest := filepath.Join(dir, c.FileName())
	if info, err := os.Stat(dest); err == nil && !info.IsDir() {
		l.log.WithField("file", dest).Debug("already extracted")
		return dest, true, nil
	}

	src, err := l.resources.Open(c.Resource)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cannot open resource: %w", err)
	}
	defer src.Close()

	if c.IsLink() {
		target, err := readLink(src, c.Resource)
		if err != nil {
			return "", false, err
		}
		linked, err := l.resources.Open(target)
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("%w: %s -> %s", ErrLinkTargetMissing, c.Resource, target)
		}
		if err != nil {
			return "", false, fmt.Errorf("cannot open link target %s: %w", target, err)
		}
		defer linked.Close()
		src = linked
	}

	if err := writeFile(dest, src, 0755); err != nil {
		return "", false, err
	}
	l.log.WithField("resource", c.Resource).WithField("file", dest).Debug("extracted")
	return dest, true, nil
}

// readLink returns the bundle path named by a link file. Relative targets
// resolve against the directory holding the link; whitespace is dropped.
func readLink(r io.Reader, linkPath string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("cannot read link file: %w", err)
	}
	target := strings.Join(strings.Fields(string(b)), "")
	if target == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrLinkTargetMissing, linkPath)
	}
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/"), nil
	}
	return path.Join(path.Dir(linkPath), target), nil
}

// writeFile copies r to dest through a temporary file so a partial copy is
// never visible under the final name.
func writeFile(dest string, r io.Reader, perm os.FileMode) error {
	tmpPath := dest + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("cannot create file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up if not renamed
	}()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("cannot finalize %s: %w", filepath.Base(dest), err)
	}
	return nil
}
