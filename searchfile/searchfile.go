// Package searchfile exposes classic and compact index payloads as a
// random-access row source for the query engine (§4.8): a closed set of
// backend variants sharing one Backend trait, so the query engine
// dispatches once per query rather than through per-row virtual calls.
package searchfile

import "fmt"

// BlockMeta describes one parameter block's shape: its own (m, h), and
// the column range within the index's overall document list it covers.
type BlockMeta struct {
	SigSize      uint64
	NumHashes    uint64
	ColumnOffset int
	NumColumns   int
}

// Metadata is a search file's immutable description (§4.8).
type Metadata struct {
	K            int
	Canonicalize bool
	RowSizeBytes uint64 // classic: the single block's row size; compact: g
	PageSize     uint64 // g; zero for classic
	FileNames    []string
	Blocks       []BlockMeta
}

// CountsSizeBytes returns the total document (column) count across all
// blocks — the length file_names and any per-document score array share.
func (m Metadata) CountsSizeBytes() int {
	return len(m.FileNames)
}

// Backend is the trait every search file variant implements: classic or
// compact, mmap or AIO or fully-buffered (§4.8, §9's "tagged variant"
// redesign — one interface, no deeper dispatch on the hot path).
type Backend interface {
	Metadata() Metadata
	// ReadRow fetches row r of block blockIndex into buf, which must be
	// at least Metadata().RowSizeBytes long (classic has one block, index 0).
	ReadRow(blockIndex int, r uint64, buf []byte) error
	Close() error
}

// InputError reports a malformed or out-of-range search file open, or a
// backend request outside the file's shape (§7).
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("searchfile: %v", e.Err)
	}
	return fmt.Sprintf("searchfile: %s: %v", e.Path, e.Err)
}
func (e *InputError) Unwrap() error { return e.Err }

func inputErrorf(path, format string, args ...any) error {
	return &InputError{Path: path, Err: fmt.Errorf(format, args...)}
}

// ReadRows fetches, for every hash and every block, the slice
// [scoreBegin, scoreBegin+scoreSize) of row (hash mod block.SigSize)
// into out at consecutive rowStride offsets, blocks-major within each
// hash — the read_rows primitive of §4.8. scoreBegin and rowStride must
// be multiples of 8 so downstream u16 aggregation stays aligned.
func ReadRows(b Backend, hashes []uint64, out []byte, scoreBegin, scoreSize, rowStride uint64) error {
	if scoreBegin%8 != 0 || rowStride%8 != 0 {
		return inputErrorf("", "score_begin (%d) and row_stride (%d) must be multiples of 8", scoreBegin, rowStride)
	}
	meta := b.Metadata()
	rowBuf := make([]byte, meta.RowSizeBytes)
	idx := uint64(0)
	for _, h := range hashes {
		for p, blk := range meta.Blocks {
			if blk.SigSize == 0 {
				return inputErrorf("", "block %d has zero signature size", p)
			}
			r := h % blk.SigSize
			if err := b.ReadRow(p, r, rowBuf); err != nil {
				return err
			}
			off := idx * rowStride
			if off+scoreSize > uint64(len(out)) {
				return inputErrorf("", "out buffer too small for hash %d block %d", h, p)
			}
			copy(out[off:off+scoreSize], rowBuf[scoreBegin:scoreBegin+scoreSize])
			idx++
		}
	}
	return nil
}
