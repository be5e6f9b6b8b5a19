package docsource

import (
	"bufio"
	"context"
	"os"
)

// textSource slides a window of length k over the raw bytes of a file,
// resetting at line breaks so a term never spans two lines (§4.3, "Raw
// text").
type textSource struct {
	entry DocumentEntry
}

func (s *textSource) NumTerms(ctx context.Context, k int) (uint64, error) {
	var n uint64
	err := s.ProcessTerms(ctx, k, func([]byte) error {
		n++
		return nil
	})
	return n, err
}

func (s *textSource) ProcessTerms(ctx context.Context, k int, fn func(term []byte) error) error {
	f, err := os.Open(s.entry.Path)
	if err != nil {
		return &InputError{Path: s.entry.Path, Err: err}
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	window := make([]byte, 0, k)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := r.ReadByte()
		if err != nil {
			return nil
		}
		if b == '\n' || b == '\r' {
			window = window[:0]
			continue
		}
		if len(window) < k {
			window = append(window, b)
		} else {
			copy(window, window[1:])
			window[k-1] = b
		}
		if len(window) == k {
			term := make([]byte, k)
			copy(term, window)
			if err := fn(term); err != nil {
				return err
			}
		}
	}
}
