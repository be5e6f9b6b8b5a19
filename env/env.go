// Package env holds the process-level configuration §6.5 describes as
// two global flags. Per §9's redesign note ("Global mutable state...
// becomes an explicit Environment passed into constructors"), they are
// carried here as an explicit struct rather than package-level mutable
// globals, and threaded into the packages that need them (docsource's
// sidecar cache, searchfile's mmap-vs-full-read choice).
package env

import "github.com/bingmann/cobs-sub000/searchfile"

// Environment holds process-wide I/O behavior flags.
type Environment struct {
	// LoadCompleteIndex forces search backends to read the whole index
	// file into a heap buffer up front instead of mmap'ing it lazily.
	LoadCompleteIndex bool

	// DisableCache suppresses the FASTA/FASTQ sidecar cache docsource
	// would otherwise write next to each input file.
	DisableCache bool
}

// Default returns the zero-value Environment: lazy mmap, cache enabled.
func Default() Environment {
	return Environment{}
}

// OpenClassic opens path as a classic search file using the mode this
// Environment specifies.
func (e Environment) OpenClassic(path string) (searchfile.Backend, error) {
	if e.LoadCompleteIndex {
		return searchfile.LoadCompleteClassicIndex(path)
	}
	return searchfile.OpenClassicMMAP(path)
}

// OpenCompact opens path as a compact search file using the mode this
// Environment specifies.
func (e Environment) OpenCompact(path string) (searchfile.Backend, error) {
	if e.LoadCompleteIndex {
		return searchfile.LoadCompleteCompactIndex(path)
	}
	return searchfile.OpenCompactMMAP(path)
}
