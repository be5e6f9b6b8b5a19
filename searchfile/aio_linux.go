//go:build linux

package searchfile

import (
	"fmt"
	"os"
	"syscall"

	"github.com/bingmann/cobs-sub000/indexfile"
)

// aioCompact backs a compact index with O_DIRECT positional reads
// page-aligned to the block row size g (§4.8's "AIO compact" backend).
// It requires g to be a multiple of the filesystem block size; opening
// fails with an *InputError rather than silently reading through
// the page cache if that doesn't hold, since the whole point of this
// backend is bypassing the cache for depth-(hashes*blocks) concurrent
// reads.
type aioCompact struct {
	file       *os.File
	blockSize  int
	header     *indexfile.CompactHeader
	payloadOff int64
	meta       Metadata
}

// OpenCompactAIO opens path for O_DIRECT reads, requiring g % blockSize
// == 0 per spec §4.8.
func OpenCompactAIO(path string) (Backend, error) {
	normal, err := os.Open(path)
	if err != nil {
		return nil, inputErrorf(path, "open: %w", err)
	}
	h, payloadOff, err := indexfile.ReadCompactHeader(normal)
	normal.Close()
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDONLY|syscall.O_DIRECT, 0)
	if err != nil {
		return nil, inputErrorf(path, "opening with O_DIRECT: %w", err)
	}

	bs, err := blockSizeOf(f)
	if err != nil {
		f.Close()
		return nil, inputErrorf(path, "stat block size: %w", err)
	}
	if h.PageSize%uint64(bs) != 0 {
		f.Close()
		return nil, inputErrorf(path, "page size %d is not a multiple of filesystem block size %d", h.PageSize, bs)
	}

	blocks := make([]BlockMeta, len(h.Params))
	colOffset, nameIdx := 0, 0
	for p, bp := range h.Params {
		numCols := countBlockColumns(h, p, &nameIdx)
		blocks[p] = BlockMeta{SigSize: bp.SigSize, NumHashes: bp.NumHashes, ColumnOffset: colOffset, NumColumns: numCols}
		colOffset += numCols
	}

	return &aioCompact{
		file:       f,
		blockSize:  bs,
		header:     h,
		payloadOff: payloadOff,
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

func (a *aioCompact) Metadata() Metadata { return a.meta }

func (a *aioCompact) ReadRow(blockIndex int, r uint64, buf []byte) error {
	if blockIndex < 0 || blockIndex >= len(a.header.Params) {
		return inputErrorf("", "block index %d out of range [0,%d)", blockIndex, len(a.header.Params))
	}
	bp := a.header.Params[blockIndex]
	if r >= bp.SigSize {
		return inputErrorf("", "row %d out of range [0,%d) in block %d", r, bp.SigSize, blockIndex)
	}
	var blockStart int64
	for p := 0; p < blockIndex; p++ {
		blockStart += int64(a.header.BlockPayloadSize(p))
	}
	off := a.payloadOff + blockStart + int64(r)*int64(a.header.PageSize)
	// off and a.header.PageSize are both multiples of a.blockSize, the
	// O_DIRECT alignment requirement, since g % blockSize == 0 was
	// checked at open time and every row starts at a g-aligned offset.
	_, err := a.file.ReadAt(buf[:a.header.PageSize], off)
	return err
}

func (a *aioCompact) Close() error { return a.file.Close() }

func blockSizeOf(f *os.File) (int, error) {
	var stat syscall.Stat_t
	if err := syscall.Fstat(int(f.Fd()), &stat); err != nil {
		return 0, fmt.Errorf("fstat: %w", err)
	}
	return int(stat.Blksize), nil
}
