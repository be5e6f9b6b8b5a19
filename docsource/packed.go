package docsource

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bingmann/cobs-sub000/kmer"
)

// packedSource reads a "packed k-mer dump": a flat sequence of
// kmer.PackedLen(k)-byte records with no header, written by the builder
// itself (§4.3). The term size is fixed at build time and carried in the
// DocumentEntry rather than the file.
type packedSource struct {
	entry DocumentEntry
}

func (s *packedSource) checkK(k int) error {
	if s.entry.TermSize != 0 && k != s.entry.TermSize {
		return &InputError{Path: s.entry.Path, Err: fmt.Errorf("packed dump term size is %d, requested %d", s.entry.TermSize, k)}
	}
	return nil
}

func (s *packedSource) NumTerms(ctx context.Context, k int) (uint64, error) {
	if err := s.checkK(k); err != nil {
		return 0, err
	}
	fi, err := os.Stat(s.entry.Path)
	if err != nil {
		return 0, &InputError{Path: s.entry.Path, Err: err}
	}
	recLen := int64(kmer.PackedLen(k))
	if recLen == 0 {
		return 0, nil
	}
	return uint64(fi.Size() / recLen), nil
}

func (s *packedSource) ProcessTerms(ctx context.Context, k int, fn func(term []byte) error) error {
	if err := s.checkK(k); err != nil {
		return err
	}
	f, err := os.Open(s.entry.Path)
	if err != nil {
		return &InputError{Path: s.entry.Path, Err: err}
	}
	defer f.Close()

	recLen := kmer.PackedLen(k)
	buf := make([]byte, recLen)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			if err == io.EOF {
				return nil
			}
			return &InputError{Path: s.entry.Path, Err: err}
		}
		if err := fn(kmer.Unpack(buf, k)); err != nil {
			return err
		}
	}
}

// WritePackedTerm appends one packed k-mer record to w, for writers that
// want to materialize a packed dump (e.g. spilling deduplicated terms to
// disk during an external-memory build step).
func WritePackedTerm(w io.Writer, packed []byte) error {
	_, err := w.Write(packed)
	return err
}
