// Package tfbind is a Go binding layer over a pre-built machine-learning
// native library.
//
// The native libraries ship inside the binary (or in a directory next to
// it). Load locates the libraries for the current platform, extracts them
// once into a private directory, loads them in dependency order and
// records the directory so later processes can reuse it:
//
//	if err := tfbind.Load(); err != nil {
//		log.Fatal(err)
//	}
//	v, _ := tfbind.Version()
//
// Load is idempotent and safe to call from several goroutines. Failures
// are fatal for the process: a platform without a bundled binding library
// cannot be used, and the returned *nativelib.LinkError explains how to
// build the libraries from source.
package tfbind
