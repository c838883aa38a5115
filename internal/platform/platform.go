// Package platform maps the host operating system onto the platform
// identifiers used to lay out bundled native libraries.
package platform

import (
	"runtime"
	"strings"
	"unicode"
)

// Platform identifies the operating system family native libraries are
// built for. It names the per-platform resource subdirectory.
type Platform string

const (
	Linux   Platform = "linux"
	Darwin  Platform = "darwin"
	Windows Platform = "windows"
)

var current = Detect(runtime.GOOS)

// Current returns the platform detected at process start.
func Current() Platform {
	return current
}

// Detect maps an operating system name such as "Linux", "Mac OS X" or
// "Windows 10" to a Platform. Unknown names are lowercased with all
// whitespace removed.
func Detect(osName string) Platform {
	lower := strings.ToLower(osName)
	switch {
	case strings.HasPrefix(lower, "linux"):
		return Linux
	case strings.HasPrefix(lower, "mac os x"):
		return Darwin
	case strings.HasPrefix(lower, "windows"):
		return Windows
	}
	return Platform(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, lower))
}

// IsWindows reports whether p is the Windows build. Only CPU builds are
// packaged for Windows, so this also selects the .dll naming scheme.
func (p Platform) IsWindows() bool {
	return p == Windows
}

// SharedLibExt returns the extension native libraries carry on p.
func (p Platform) SharedLibExt() string {
	switch p {
	case Darwin:
		return ".dylib"
	case Windows:
		return ".dll"
	default:
		return ".so"
	}
}

func (p Platform) String() string {
	return string(p)
}
