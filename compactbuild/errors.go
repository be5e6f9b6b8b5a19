package compactbuild

import "fmt"

// UsageError reports a caller mistake detected before any expensive work
// happens, mirroring classicbuild.UsageError (§7).
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return fmt.Sprintf("compactbuild: usage error: %v", e.Err) }
func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ResourceError reports an I/O or memory-budget failure during build,
// mirroring classicbuild.ResourceError (§7).
type ResourceError struct {
	Err error
}

func (e *ResourceError) Error() string { return fmt.Sprintf("compactbuild: resource error: %v", e.Err) }
func (e *ResourceError) Unwrap() error { return e.Err }

func resourceErrorf(format string, args ...any) error {
	return &ResourceError{Err: fmt.Errorf(format, args...)}
}
