package nativelib

import (
	"errors"
	"fmt"

	"github.com/bagtoad/tfbind/internal/platform"
)

var (
	// ErrNoBindingLibrary is returned when no binding library is bundled
	// for the current platform.
	ErrNoBindingLibrary = errors.New("no binding library bundled for this platform")

	// ErrLinkTargetMissing is returned when a link file names a resource
	// that is not in the bundle.
	ErrLinkTargetMissing = errors.New("link target missing from bundle")
)

const remediation = "build the native libraries from source for this platform " +
	"(see \"Building from source\" in the README) and point resources.dir at the result"

// LinkError reports a native library that could not be made usable.
// It is fatal for the process.
type LinkError struct {
	Platform platform.Platform
	Library  string
	Resource string
	Err      error
}

func (e *LinkError) Error() string {
	msg := fmt.Sprintf("cannot link native library %q on platform %q", e.Library, e.Platform)
	if e.Resource != "" {
		msg += fmt.Sprintf(" (resource %s)", e.Resource)
	}
	return fmt.Sprintf("%s: %v; %s", msg, e.Err, remediation)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}
