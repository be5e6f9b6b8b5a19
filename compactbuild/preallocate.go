package compactbuild

import "os"

// preallocate reserves size bytes starting at offset in f, preferring
// the platform fallocate syscall and falling back to a write-zeros fake
// when the filesystem doesn't support it, the same fallback
// compactindexsized.Builder.build uses around its bucket table
// allocation.
func preallocate(f *os.File, offset, size int64) error {
	if err := fallocate(f, offset, size); err != nil {
		return fakeFallocate(f, offset, size)
	}
	return nil
}
