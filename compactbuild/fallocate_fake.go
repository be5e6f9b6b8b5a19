package compactbuild

import "os"

// fakeFallocate is the portable fallback when the platform-specific
// fallocate syscall is unavailable or returns EOPNOTSUPP (e.g. some
// network filesystems), the same generic fallback
// deprecated/compactindex36/fallocate_fake.go implements: it writes real
// zero bytes across the requested range in fixed-size blocks via
// WriteAt, so the filesystem actually allocates those blocks up front
// instead of leaving a sparse hole a later WriteAt could fail to grow on
// a full disk.
func fakeFallocate(f *os.File, offset int64, size int64) error {
	const blockSize = 4096
	var zero [blockSize]byte

	for size > 0 {
		step := size
		if step > blockSize {
			step = blockSize
		}
		if _, err := f.WriteAt(zero[:step], offset); err != nil {
			return err
		}
		offset += step
		size -= step
	}
	return nil
}
