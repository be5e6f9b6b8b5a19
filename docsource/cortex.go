package docsource

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/bingmann/cobs-sub000/kmer"
)

// cortexMagic opens and closes a McCortex .ctx file's fixed header.
const cortexMagic = "CORTEX"

// cortexHeader is the fixed prefix of a version-6, single-color .ctx file
// (§4.3, "Cortex .ctx"); ported from the original CortexFile::read_header.
type cortexHeader struct {
	kmerSize        uint32
	numWordsPerKmer uint32
	dataBegin       int64
	dataEnd         int64
}

func readCortexHeader(f *os.File, path string) (*cortexHeader, error) {
	if err := expectCortexMagic(f, path); err != nil {
		return nil, err
	}
	version, err := readU32(f)
	if err != nil {
		return nil, err
	}
	if version != 6 {
		return nil, &InputError{Path: path, Err: fmt.Errorf("unsupported cortex version %d", version)}
	}
	h := new(cortexHeader)
	if h.kmerSize, err = readU32(f); err != nil {
		return nil, err
	}
	if h.numWordsPerKmer, err = readU32(f); err != nil {
		return nil, err
	}
	numColors, err := readU32(f)
	if err != nil {
		return nil, err
	}
	if numColors != 1 {
		return nil, &InputError{Path: path, Err: fmt.Errorf("unsupported cortex color count %d, want 1", numColors)}
	}

	// per-color read stats: mean_read_length u32, total_length u64
	if _, err := skip(f, 4+8); err != nil {
		return nil, err
	}
	// per-color document name
	nameLen, err := readU32(f)
	if err != nil {
		return nil, err
	}
	if _, err := skip(f, int64(nameLen)); err != nil {
		return nil, err
	}
	// per-color error-rate / coverage stats block
	if _, err := skip(f, 16); err != nil {
		return nil, err
	}
	// per-color graph info: 12 bytes fixed, then a length-prefixed graph name
	if _, err := skip(f, 12); err != nil {
		return nil, err
	}
	graphNameLen, err := readU32(f)
	if err != nil {
		return nil, err
	}
	if _, err := skip(f, int64(graphNameLen)); err != nil {
		return nil, err
	}
	if err := expectCortexMagic(f, path); err != nil {
		return nil, err
	}

	begin, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	h.dataBegin, h.dataEnd = begin, end
	return h, nil
}

// recordSize is the on-disk size of one k-mer record: the packed k-mer
// data (8 bytes per word) plus one color's coverage+edges byte (5 bytes,
// fixed here since COBS only supports single-color .ctx files).
func (h *cortexHeader) recordSize() int64 {
	return 8*int64(h.numWordsPerKmer) + 5
}

func (h *cortexHeader) numKmers() int64 {
	rs := h.recordSize()
	if rs == 0 {
		return 0
	}
	return (h.dataEnd - h.dataBegin) / rs
}

func expectCortexMagic(f *os.File, path string) error {
	buf := make([]byte, len(cortexMagic))
	if _, err := io.ReadFull(f, buf); err != nil {
		return &InputError{Path: path, Err: fmt.Errorf("reading cortex magic: %w", err)}
	}
	if string(buf) != cortexMagic {
		return &InputError{Path: path, Err: fmt.Errorf("cortex magic mismatch: got %q", buf)}
	}
	return nil
}

func readU32(f *os.File) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func skip(f *os.File, n int64) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	return f.Seek(n, io.SeekCurrent)
}

// cortexSource reads a version-6, single-color McCortex .ctx file.
type cortexSource struct {
	entry DocumentEntry
}

func (s *cortexSource) open() (*os.File, *cortexHeader, error) {
	f, err := os.Open(s.entry.Path)
	if err != nil {
		return nil, nil, &InputError{Path: s.entry.Path, Err: err}
	}
	h, err := readCortexHeader(f, s.entry.Path)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if _, err := f.Seek(h.dataBegin, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, h, nil
}

func (s *cortexSource) NumTerms(ctx context.Context, k int) (uint64, error) {
	f, h, err := s.open()
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if k > int(h.kmerSize) {
		return 0, nil
	}
	termsPerKmer := uint64(int(h.kmerSize) - k + 1)
	return uint64(h.numKmers()) * termsPerKmer, nil
}

// ProcessTerms reconstructs each stored k-mer's ASCII form and, if term
// size k is smaller than the file's fixed k-mer size, slides a window of
// length k within it (never across k-mer boundaries), per §4.3.
func (s *cortexSource) ProcessTerms(ctx context.Context, k int, fn func(term []byte) error) error {
	f, h, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if k > int(h.kmerSize) {
		return nil
	}

	packedLen := kmer.PackedLen(int(h.kmerSize))
	record := make([]byte, h.recordSize())
	reversed := make([]byte, packedLen)

	n := h.numKmers()
	for i := int64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.ReadFull(f, record); err != nil {
			return &InputError{Path: s.entry.Path, Err: fmt.Errorf("reading cortex record %d: %w", i, err)}
		}
		// the packed k-mer occupies the low packedLen bytes of the
		// record's 8*num_words_per_kmer-byte k-mer field, stored with
		// the most-significant packed byte last.
		for j := 0; j < packedLen; j++ {
			reversed[j] = record[packedLen-1-j]
		}
		full := kmer.Unpack(reversed, int(h.kmerSize))
		for off := 0; off+k <= len(full); off++ {
			term := make([]byte, k)
			copy(term, full[off:off+k])
			if err := fn(term); err != nil {
				return err
			}
		}
	}
	return nil
}
