package docsource

import (
	"context"
	"fmt"
	"io"

	"github.com/shenwei356/bio/seqio/fastx"
)

func errSubdocOutOfRange(idx, n int) error {
	return fmt.Errorf("subdoc index %d out of range (%d records)", idx, n)
}

// fastxSource backs the FASTA, FASTA-multi, and FASTQ variants (§4.3).
// github.com/shenwei356/bio/seqio/fastx auto-detects FASTA vs. FASTQ
// framing and hands back one concatenated record at a time, so the only
// thing this type adds on top is COBS's document-boundary and
// sub-document-selection semantics and the sidecar length cache.
//
// subdocIndex < 0 means "FASTA single" / "FASTQ": every record in the
// file contributes to the one document, with the k-mer window reset at
// each record boundary. subdocIndex >= 0 means "FASTA multi": only that
// record (0-based, in file order) is the document.
type fastxSource struct {
	entry       DocumentEntry
	opts        Options
	subdocIndex int
}

func (s *fastxSource) recordLengths(ctx context.Context) ([]int, error) {
	if c := readValidSidecar(s.entry.Path, s.opts.DisableCache); c != nil {
		return c.RecordLengths, nil
	}

	r, err := fastx.NewDefaultReader(s.entry.Path)
	if err != nil {
		return nil, &InputError{Path: s.entry.Path, Err: err}
	}
	defer r.Close()

	var lengths []int
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &InputError{Path: s.entry.Path, Err: err}
		}
		lengths = append(lengths, len(rec.Seq.Seq))
	}

	if !s.opts.DisableCache {
		if sc, err := buildSidecar(s.entry.Path, lengths); err == nil {
			_ = writeSidecar(s.entry.Path, sc)
		}
	}
	return lengths, nil
}

func (s *fastxSource) NumTerms(ctx context.Context, k int) (uint64, error) {
	lengths, err := s.recordLengths(ctx)
	if err != nil {
		return 0, err
	}
	if s.subdocIndex >= 0 {
		if s.subdocIndex >= len(lengths) {
			return 0, &InputError{Path: s.entry.Path, Err: errSubdocOutOfRange(s.subdocIndex, len(lengths))}
		}
		return termsInLength(lengths[s.subdocIndex], k), nil
	}
	var total uint64
	for _, l := range lengths {
		total += termsInLength(l, k)
	}
	return total, nil
}

func termsInLength(recordLen, k int) uint64 {
	if recordLen < k {
		return 0
	}
	return uint64(recordLen - k + 1)
}

func (s *fastxSource) ProcessTerms(ctx context.Context, k int, fn func(term []byte) error) error {
	r, err := fastx.NewDefaultReader(s.entry.Path)
	if err != nil {
		return &InputError{Path: s.entry.Path, Err: err}
	}
	defer r.Close()

	idx := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &InputError{Path: s.entry.Path, Err: err}
		}
		if s.subdocIndex >= 0 && idx != s.subdocIndex {
			idx++
			continue
		}
		if err := slideRecord(rec.Seq.Seq, k, fn); err != nil {
			return err
		}
		idx++
		if s.subdocIndex >= 0 {
			return nil
		}
	}
	return nil
}

func slideRecord(seq []byte, k int, fn func(term []byte) error) error {
	if len(seq) < k {
		return nil
	}
	for i := 0; i+k <= len(seq); i++ {
		term := make([]byte, k)
		copy(term, seq[i:i+k])
		if err := fn(term); err != nil {
			return err
		}
	}
	return nil
}
