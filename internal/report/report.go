// Package report generates summary reports of native library loading.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/bagtoad/tfbind/internal/nativelib"
	"github.com/bagtoad/tfbind/internal/platform"
	"github.com/bagtoad/tfbind/internal/scanner"
)

// Print writes a load summary to the given writer.
func Print(w io.Writer, p platform.Platform, res *nativelib.Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "Platform:            %s\n", p)
	fmt.Fprintf(w, "Native version:      %s\n", res.Version)
	fmt.Fprintf(w, "Source:              %s\n", res.Source)

	if res.Source == nativelib.AlreadyLoaded {
		fmt.Fprintln(w, "\nNothing extracted.")
		return
	}

	fmt.Fprintf(w, "Directory:           %s\n", res.Dir)
	if res.Persisted {
		fmt.Fprintln(w, "Recorded for reuse:  yes")
	} else {
		fmt.Fprintln(w, "Recorded for reuse:  no")
	}
	fmt.Fprintln(w)

	for _, lf := range res.Files {
		if len(lf.Paths) == 0 {
			fmt.Fprintf(w, "  %s (%s): not bundled\n", lf.Library.Name, lf.Library.Kind)
			continue
		}
		fmt.Fprintf(w, "  %s (%s, %d files)\n", lf.Library.Name, lf.Library.Kind, len(lf.Paths))
		for _, f := range lf.Paths {
			fmt.Fprintf(w, "    %s\n", filepath.Base(f))
		}
	}

	if len(res.OpLists) > 0 {
		paths := make([]string, 0, len(res.OpLists))
		for f := range res.OpLists {
			paths = append(paths, f)
		}
		sort.Strings(paths)

		fmt.Fprintln(w)
		for _, f := range paths {
			fmt.Fprintf(w, "  op list %s: %d bytes\n", filepath.Base(f), len(res.OpLists[f]))
		}
	}
	fmt.Fprintln(w)
}

// PrintCandidates writes the candidate table for each library on p.
func PrintCandidates(w io.Writer, p platform.Platform, version string, libs []nativelib.Library) {
	fmt.Fprintf(w, "Platform: %s\n", p)
	fmt.Fprintf(w, "Version:  %s\n\n", version)
	for _, lib := range libs {
		fmt.Fprintf(w, "  %s (%s)\n", lib.Name, lib.Kind)
		for _, c := range nativelib.Candidates(lib, p, version) {
			preload := ""
			if c.Preload {
				preload = " [preload]"
			}
			if c.IsLink() {
				fmt.Fprintf(w, "    %s -> %s (link)%s\n", c.Resource, c.FileName(), preload)
			} else {
				fmt.Fprintf(w, "    %s%s\n", c.Resource, preload)
			}
		}
	}
}

// PrintDirectory writes the recorded extraction directory and its contents.
// scanErr is the error from scanning dir, if any.
func PrintDirectory(w io.Writer, metadataPath, dir string, scan *scanner.Result, scanErr error) {
	fmt.Fprintf(w, "Metadata file:       %s\n", metadataPath)
	if dir == "" {
		fmt.Fprintln(w, "Recorded directory:  none")
		return
	}
	fmt.Fprintf(w, "Recorded directory:  %s\n", dir)
	if scanErr != nil {
		fmt.Fprintf(w, "\nScan failed: %v\n", scanErr)
		return
	}
	if scan == nil {
		fmt.Fprintln(w, "\nNo native libraries found.")
		return
	}

	fmt.Fprintf(w, "Libraries:           %d\n", len(scan.Libraries))
	if scan.SkippedCount > 0 {
		fmt.Fprintf(w, "Other files:         %d\n", scan.SkippedCount)
	}
	fmt.Fprintln(w)
	for _, f := range scan.Libraries {
		fmt.Fprintf(w, "  %-32s %10d bytes\n", filepath.Base(f.Path), f.Size)
	}
}
