package nativelib

import (
	"path"
	"strings"

	"github.com/bagtoad/tfbind/internal/platform"
)

// LinkSuffix marks a resource whose content is the path of another
// resource holding the real library bytes.
const LinkSuffix = ".link"

// Kind classifies a logical library by the role it plays in load order.
type Kind int

const (
	// KindFoundation libraries are shared dependencies that must be
	// resident before the binding library loads. They live at the
	// resource root and are published under several version aliases.
	KindFoundation Kind = iota
	// KindBindings is the binding-layer library exposing the native entry
	// points. A platform without one cannot be supported.
	KindBindings
	// KindOps libraries register optional op extensions.
	KindOps
)

func (k Kind) String() string {
	switch k {
	case KindFoundation:
		return "foundation"
	case KindBindings:
		return "bindings"
	case KindOps:
		return "ops"
	}
	return "unknown"
}

// Library is a logical native library.
type Library struct {
	Name string
	Kind Kind
}

// DefaultLibraries is the dependency-ordered set loaded by the binding
// layer: the framework shared dependency, the core library that needs it,
// the bindings, then op extensions.
var DefaultLibraries = []Library{
	{Name: "framework", Kind: KindFoundation},
	{Name: "core", Kind: KindFoundation},
	{Name: "bindings", Kind: KindBindings},
	{Name: "ops", Kind: KindOps},
}

// LibrariesWithOps returns the default foundation and binding libraries
// followed by the named op-extension libraries.
func LibrariesWithOps(ops []string) []Library {
	libs := []Library{
		{Name: "framework", Kind: KindFoundation},
		{Name: "core", Kind: KindFoundation},
		{Name: "bindings", Kind: KindBindings},
	}
	for _, name := range ops {
		if name = strings.TrimSpace(name); name != "" {
			libs = append(libs, Library{Name: name, Kind: KindOps})
		}
	}
	return libs
}

// BindingsFileName returns the on-disk name of the binding library in libs
// on p, or "" when libs has none.
func BindingsFileName(libs []Library, p platform.Platform, version string) string {
	for _, lib := range libs {
		if lib.Kind != KindBindings {
			continue
		}
		if cs := Candidates(lib, p, version); len(cs) > 0 {
			return cs[0].FileName()
		}
	}
	return ""
}

// DefaultVersion is the version of the bundled native libraries.
const DefaultVersion = "2.4.0"

// Candidate is one concrete guess at how a logical library is packaged.
type Candidate struct {
	// Name is the resource file name; it ends in LinkSuffix for link files.
	Name string
	// Resource is the path of the resource within the bundle.
	Resource string
	// Preload marks libraries loaded eagerly before the bindings.
	Preload bool
}

// IsLink reports whether the candidate resource is a link file.
func (c Candidate) IsLink() bool {
	return strings.HasSuffix(c.Name, LinkSuffix)
}

// FileName is the name the candidate is materialized under on disk.
func (c Candidate) FileName() string {
	return strings.TrimSuffix(c.Name, LinkSuffix)
}

// ResourceDir returns the bundle directory holding platform-specific
// libraries for p.
func ResourceDir(p platform.Platform) string {
	return path.Join("native", p.String())
}

// Candidates returns the ordered candidates for lib on platform p. version
// is the full library version, e.g. "2.4.0"; its first component is used for
// the major-version aliases.
func Candidates(lib Library, p platform.Platform, version string) []Candidate {
	dir := ""
	if lib.Kind != KindFoundation {
		dir = ResourceDir(p)
	}
	at := func(name string, preload bool) Candidate {
		return Candidate{Name: name, Resource: path.Join(dir, name), Preload: preload}
	}

	if p.IsWindows() {
		return []Candidate{at(lib.Name+".dll", true)}
	}
	if lib.Kind != KindFoundation {
		return []Candidate{at("lib"+lib.Name+".so", false)}
	}

	major, _, _ := strings.Cut(version, ".")
	base := "lib" + lib.Name
	return []Candidate{
		at(base+".so"+LinkSuffix, false),
		at(base+".so."+major+LinkSuffix, false),
		at(base+".so."+version, false),
		at(base+".dylib"+LinkSuffix, false),
		at(base+"."+major+".dylib"+LinkSuffix, false),
		at(base+"."+version+".dylib", false),
	}
}
