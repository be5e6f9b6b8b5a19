package searchfile

import (
	"io"
	"os"

	"github.com/bingmann/cobs-sub000/indexfile"
)

// completeClassic and completeCompact hold the entire payload in a plain
// heap buffer rather than mmap'ing it, for the "load complete index"
// mode the original's initialize_mmap huge-page branch implements.
//
// TODO: the Go runtime doesn't expose huge-page-backed allocation the
// way the original's mmap(MAP_HUGETLB) branch does; this buffer is a
// plain make([]byte, n) allocation instead, which still avoids the
// per-query mmap page-fault cost of the lazy mmap backend but doesn't
// get the original's TLB-miss reduction.
type completeClassic struct {
	payload []byte
	header  *indexfile.ClassicHeader
	meta    Metadata
}

// LoadCompleteClassicIndex reads path's entire payload into memory.
func LoadCompleteClassicIndex(path string) (Backend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, inputErrorf(path, "open: %w", err)
	}
	defer f.Close()

	h, payloadOff, err := indexfile.ReadClassicHeader(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(payloadOff, io.SeekStart); err != nil {
		return nil, inputErrorf(path, "seeking to payload: %w", err)
	}
	buf := make([]byte, h.PayloadSize())
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, inputErrorf(path, "reading payload: %w", err)
	}

	return &completeClassic{
		payload: buf,
		header:  h,
		meta: Metadata{
			K:            int(h.TermSize),
			Canonicalize: h.Canonical,
			RowSizeBytes: h.RowSize(),
			FileNames:    h.FileNames,
			Blocks: []BlockMeta{{
				SigSize:      h.SigSize,
				NumHashes:    h.NumHashes,
				ColumnOffset: 0,
				NumColumns:   int(h.NumFiles),
			}},
		},
	}, nil
}

func (c *completeClassic) Metadata() Metadata { return c.meta }

func (c *completeClassic) ReadRow(blockIndex int, r uint64, buf []byte) error {
	if blockIndex != 0 {
		return inputErrorf("", "classic index has one block, got index %d", blockIndex)
	}
	if r >= c.header.SigSize {
		return inputErrorf("", "row %d out of range [0,%d)", r, c.header.SigSize)
	}
	rowSize := c.header.RowSize()
	off := r * rowSize
	copy(buf[:rowSize], c.payload[off:off+rowSize])
	return nil
}

func (c *completeClassic) Close() error { return nil }

type completeCompact struct {
	payload []byte
	header  *indexfile.CompactHeader
	meta    Metadata
}

// LoadCompleteCompactIndex reads path's entire payload into memory.
func LoadCompleteCompactIndex(path string) (Backend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, inputErrorf(path, "open: %w", err)
	}
	defer f.Close()

	h, payloadOff, err := indexfile.ReadCompactHeader(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(payloadOff, io.SeekStart); err != nil {
		return nil, inputErrorf(path, "seeking to payload: %w", err)
	}
	buf := make([]byte, h.TotalPayloadSize())
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, inputErrorf(path, "reading payload: %w", err)
	}

	blocks := make([]BlockMeta, len(h.Params))
	colOffset, nameIdx := 0, 0
	for p, bp := range h.Params {
		numCols := countBlockColumns(h, p, &nameIdx)
		blocks[p] = BlockMeta{SigSize: bp.SigSize, NumHashes: bp.NumHashes, ColumnOffset: colOffset, NumColumns: numCols}
		colOffset += numCols
	}

	return &completeCompact{
		payload: buf,
		header:  h,
		meta: Metadata{
			K:            int(h.TermSize),
			Canonicalize: h.Canonical,
			RowSizeBytes: h.PageSize,
			PageSize:     h.PageSize,
			FileNames:    h.FileNames,
			Blocks:       blocks,
		},
	}, nil
}

func (c *completeCompact) Metadata() Metadata { return c.meta }

func (c *completeCompact) ReadRow(blockIndex int, r uint64, buf []byte) error {
	if blockIndex < 0 || blockIndex >= len(c.header.Params) {
		return inputErrorf("", "block index %d out of range [0,%d)", blockIndex, len(c.header.Params))
	}
	bp := c.header.Params[blockIndex]
	if r >= bp.SigSize {
		return inputErrorf("", "row %d out of range [0,%d) in block %d", r, bp.SigSize, blockIndex)
	}
	var blockStart uint64
	for p := 0; p < blockIndex; p++ {
		blockStart += c.header.BlockPayloadSize(p)
	}
	off := blockStart + r*c.header.PageSize
	copy(buf[:c.header.PageSize], c.payload[off:off+c.header.PageSize])
	return nil
}

func (c *completeCompact) Close() error { return nil }
