package searchfile

import (
	"log/slog"

	"golang.org/x/exp/mmap"
	"golang.org/x/sys/unix"

	"github.com/bingmann/cobs-sub000/indexfile"
)

// fileDescriptor is satisfied by *os.File but not by mmap.ReaderAt,
// mirroring bucketteer.NewReader's runtime check: fadvise only applies
// when the underlying reader exposes a descriptor to hint the kernel
// about.
type fileDescriptor interface {
	Fd() uintptr
	Name() string
}

func adviseRandom(r any) {
	f, ok := r.(fileDescriptor)
	if !ok {
		return
	}
	if err := unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM); err != nil {
		slog.Warn("fadvise(RANDOM) failed", "file", f.Name(), "error", err)
	}
}

// mmapClassic backs a single-block classic index opened via mmap.
type mmapClassic struct {
	reader     *mmap.ReaderAt
	header     *indexfile.ClassicHeader
	payloadOff int64
	meta       Metadata
}

// OpenClassicMMAP mmaps path as a classic index (§4.8 mmap backend).
func OpenClassicMMAP(path string) (Backend, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, inputErrorf(path, "mmap open: %w", err)
	}
	h, payloadOff, err := indexfile.ReadClassicHeader(&sectionAt{r: r})
	if err != nil {
		r.Close()
		return nil, err
	}
	adviseRandom(r)

	return &mmapClassic{
		reader:     r,
		header:     h,
		payloadOff: payloadOff,
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

func (m *mmapClassic) Metadata() Metadata { return m.meta }

func (m *mmapClassic) ReadRow(blockIndex int, r uint64, buf []byte) error {
	if blockIndex != 0 {
		return inputErrorf("", "classic index has one block, got index %d", blockIndex)
	}
	if r >= m.header.SigSize {
		return inputErrorf("", "row %d out of range [0,%d)", r, m.header.SigSize)
	}
	off := m.payloadOff + int64(r)*int64(m.header.RowSize())
	_, err := m.reader.ReadAt(buf[:m.header.RowSize()], off)
	return err
}

func (m *mmapClassic) Close() error { return m.reader.Close() }

// mmapCompact backs a multi-block compact index opened via mmap.
type mmapCompact struct {
	reader     *mmap.ReaderAt
	header     *indexfile.CompactHeader
	payloadOff int64
	meta       Metadata
}

// OpenCompactMMAP mmaps path as a compact index (§4.8 mmap backend).
func OpenCompactMMAP(path string) (Backend, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, inputErrorf(path, "mmap open: %w", err)
	}
	h, payloadOff, err := indexfile.ReadCompactHeader(&sectionAt{r: r})
	if err != nil {
		r.Close()
		return nil, err
	}
	adviseRandom(r)

	blocks := make([]BlockMeta, len(h.Params))
	colOffset := 0
	nameIdx := 0
	for p, bp := range h.Params {
		numCols := countBlockColumns(h, p, &nameIdx)
		blocks[p] = BlockMeta{SigSize: bp.SigSize, NumHashes: bp.NumHashes, ColumnOffset: colOffset, NumColumns: numCols}
		colOffset += numCols
	}

	return &mmapCompact{
		reader:     r,
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

// countBlockColumns assumes NumColumns per block was not separately
// retained on disk; since row size is fixed at g = PageSize for every
// block, NumFiles total is split across blocks only by each block's own
// FileNames slice length, which WriteCompactHeader concatenates in block
// order. Since the on-disk header doesn't carry a per-block boundary
// count directly, this walks file names assuming each bucket's names
// are exactly bucketSize(g) long except a possibly shorter final block.
func countBlockColumns(h *indexfile.CompactHeader, blockIndex int, nameIdx *int) int {
	bs := 8 * int(h.PageSize)
	remaining := len(h.FileNames) - *nameIdx
	n := bs
	if blockIndex == len(h.Params)-1 || n > remaining {
		n = remaining
	}
	*nameIdx += n
	return n
}

func (m *mmapCompact) Metadata() Metadata { return m.meta }

func (m *mmapCompact) ReadRow(blockIndex int, r uint64, buf []byte) error {
	if blockIndex < 0 || blockIndex >= len(m.header.Params) {
		return inputErrorf("", "block index %d out of range [0,%d)", blockIndex, len(m.header.Params))
	}
	bp := m.header.Params[blockIndex]
	if r >= bp.SigSize {
		return inputErrorf("", "row %d out of range [0,%d) in block %d", r, bp.SigSize, blockIndex)
	}
	var blockStart int64
	for p := 0; p < blockIndex; p++ {
		blockStart += int64(m.header.BlockPayloadSize(p))
	}
	off := m.payloadOff + blockStart + int64(r)*int64(m.header.PageSize)
	_, err := m.reader.ReadAt(buf[:m.header.PageSize], off)
	return err
}

func (m *mmapCompact) Close() error { return m.reader.Close() }

// sectionAt adapts an io.ReaderAt (mmap.ReaderAt) starting at offset 0
// into a sequential io.Reader for indexfile's header parsers, which read
// sequentially via io.Reader.
type sectionAt struct {
	r   *mmap.ReaderAt
	pos int64
}

func (s *sectionAt) Read(p []byte) (int, error) {
	n, err := s.r.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}
