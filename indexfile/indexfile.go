// Package indexfile is the bit-exact binary codec for classic and compact
// index files (§6 of the format). It mirrors the way compactindexsized
// and bucketteer layer a magic-prefixed header
// over a raw payload using github.com/gagliardetto/binary's Borsh-flavored
// little-endian encoder/decoder, generalized from their single fixed
// format to COBS's two on-disk variants.
package indexfile

import (
	"bytes"
	"fmt"
	"io"

	bin "github.com/gagliardetto/binary"
)

const (
	outerMagic = "INSIIN"
	version    = uint32(1)

	// ClassicInnerMagic and CompactInnerMagic double as the inner header
	// magic and, repeated verbatim, the closing magic of each format.
	ClassicInnerMagic = "CLASSIC_INDEX"
	CompactInnerMagic = "COMPACT_INDEX"
	innerVersion      = uint32(1)
)

// FormatError reports an on-disk format violation: magic mismatch, version
// mismatch, a truncated payload, or inconsistent build parameters among
// sub-indexes being combined.
type FormatError struct {
	Op  string
	Err error
}

func (e *FormatError) Error() string { return fmt.Sprintf("indexfile: %s: %v", e.Op, e.Err) }
func (e *FormatError) Unwrap() error { return e.Err }

func formatErrorf(op, format string, args ...any) error {
	return &FormatError{Op: op, Err: fmt.Errorf(format, args...)}
}

// NewFormatErrorf builds a FormatError for callers outside this package,
// e.g. classicbuild detecting inconsistent (m,h,k) among sub-indexes
// being combined (§7).
func NewFormatErrorf(op, format string, args ...any) error {
	return formatErrorf(op, format, args...)
}

// RowSize returns ceil(w/8), the number of bytes in one row of w columns.
func RowSize(w uint64) uint64 {
	return (w + 7) / 8
}

// ClassicHeader describes a classic index's fixed-size fields. NumFiles is
// the column count w and FileNames always holds exactly NumFiles entries;
// the extra zero columns a byte-aligned row may carry beyond w are payload
// padding, not named slots (§3.4).
type ClassicHeader struct {
	TermSize  uint32
	Canonical bool
	SigSize   uint64 // m
	NumHashes uint64 // h
	NumFiles  uint32 // w
	FileNames []string
}

// RowSize returns the payload row size in bytes, ceil(w/8).
func (h *ClassicHeader) RowSize() uint64 { return RowSize(uint64(h.NumFiles)) }

// PayloadSize returns the total payload size in bytes, m * row_size.
func (h *ClassicHeader) PayloadSize() uint64 { return h.SigSize * h.RowSize() }

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// WriteClassicHeader writes the outer magic, version, and classic inner
// header (through the file-name list) to w. The caller writes the m x
// row_size payload bytes immediately after, then WriteClosingMagic.
func WriteClassicHeader(w io.Writer, h *ClassicHeader) error {
	if len(h.FileNames) != int(h.NumFiles) {
		return formatErrorf("WriteClassicHeader", "len(FileNames)=%d != NumFiles=%d", len(h.FileNames), h.NumFiles)
	}
	enc := bin.NewBorshEncoder(w)
	if _, err := enc.Write([]byte(outerMagic)); err != nil {
		return err
	}
	if err := enc.WriteUint32(version, bin.LE); err != nil {
		return err
	}
	if _, err := enc.Write([]byte(ClassicInnerMagic)); err != nil {
		return err
	}
	if err := enc.WriteUint32(innerVersion, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint32(h.TermSize, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint8(boolToByte(h.Canonical)); err != nil {
		return err
	}
	if err := enc.WriteUint64(h.SigSize, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint64(h.NumHashes, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint32(h.NumFiles, bin.LE); err != nil {
		return err
	}
	for _, name := range h.FileNames {
		if _, err := enc.Write([]byte(name)); err != nil {
			return err
		}
		if err := enc.WriteUint8('\n'); err != nil {
			return err
		}
	}
	return nil
}

// fixedClassicPrefixSize is len(outerMagic)+4+len(ClassicInnerMagic)+4
// (term_size)+1(canonical)+8(sig_size)+8(num_hashes)+4(nfiles).
const fixedClassicPrefixSize = len(outerMagic) + 4 + len(ClassicInnerMagic) + 4 + 4 + 1 + 8 + 8 + 4

// ReadClassicHeader validates the outer and inner magics/versions, decodes
// the fixed fields and file-name list from r, and reports headerSize, the
// exact byte offset at which the payload begins. headerSize is computed by
// counting logical bytes consumed rather than inspecting r's internal
// buffering state, so it is valid even when r was read through bufio: a
// caller holding the same underlying bytes (e.g. a memory-mapped file)
// should index into it at headerSize directly rather than relying on r's
// cursor position.
func ReadClassicHeader(r io.Reader) (h *ClassicHeader, headerSize int64, err error) {
	fixed := make([]byte, fixedClassicPrefixSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, 0, formatErrorf("ReadClassicHeader", "reading fixed prefix: %w", err)
	}
	dec := bin.NewBorshDecoder(bytes.NewReader(fixed))

	if err := expectMagic(dec, outerMagic, "outer magic"); err != nil {
		return nil, 0, err
	}
	v, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, 0, err
	}
	if v != version {
		return nil, 0, formatErrorf("ReadClassicHeader", "unsupported outer version %d", v)
	}
	if err := expectMagic(dec, ClassicInnerMagic, "inner magic"); err != nil {
		return nil, 0, err
	}
	iv, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, 0, err
	}
	if iv != innerVersion {
		return nil, 0, formatErrorf("ReadClassicHeader", "unsupported inner version %d", iv)
	}

	h = new(ClassicHeader)
	if h.TermSize, err = dec.ReadUint32(bin.LE); err != nil {
		return nil, 0, err
	}
	canon, err := dec.ReadByte()
	if err != nil {
		return nil, 0, err
	}
	h.Canonical = canon != 0
	if h.SigSize, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, 0, err
	}
	if h.NumHashes, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, 0, err
	}
	if h.NumFiles, err = dec.ReadUint32(bin.LE); err != nil {
		return nil, 0, err
	}

	names, consumed, err := readFileNames(r, int(h.NumFiles))
	if err != nil {
		return nil, 0, err
	}
	h.FileNames = names
	return h, int64(fixedClassicPrefixSize) + consumed, nil
}

// readFileNames reads exactly n newline-terminated names directly from r,
// one byte at a time so it consumes exactly as many bytes as the name list
// occupies and leaves r positioned immediately after the last newline —
// callers may keep reading the payload from the same r afterward. It
// reports the total number of bytes consumed (names plus their newlines).
func readFileNames(r io.Reader, n int) (names []string, consumed int64, err error) {
	names = make([]string, 0, n)
	var b [1]byte
	for i := 0; i < n; i++ {
		var line bytes.Buffer
		for {
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, 0, formatErrorf("readFileNames", "file name %d of %d: %w", i, n, err)
			}
			consumed++
			if b[0] == '\n' {
				break
			}
			line.WriteByte(b[0])
		}
		names = append(names, line.String())
	}
	return names, consumed, nil
}

func expectMagic(dec *bin.Decoder, want, what string) error {
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(dec, buf); err != nil {
		return formatErrorf("expectMagic", "reading %s: %w", what, err)
	}
	if string(buf) != want {
		return formatErrorf("expectMagic", "%s mismatch: got %q, want %q", what, buf, want)
	}
	return nil
}

// WriteClosingMagic writes magic's bytes verbatim as the closing marker.
// Its presence (and correctness) is how a reader distinguishes a complete
// index file from one truncated mid-write.
func WriteClosingMagic(w io.Writer, magic string) error {
	_, err := w.Write([]byte(magic))
	return err
}

// ReadClosingMagic reads len(want) bytes from r and reports a FormatError
// if they don't match want.
func ReadClosingMagic(r io.Reader, want string) error {
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(r, buf); err != nil {
		return formatErrorf("ReadClosingMagic", "%w", err)
	}
	if string(buf) != want {
		return formatErrorf("ReadClosingMagic", "closing magic mismatch: got %q, want %q", buf, want)
	}
	return nil
}

// BlockParams is one compact index parameter block's (m, h) pair.
type BlockParams struct {
	SigSize   uint64
	NumHashes uint64
}

// CompactHeader describes a compact index's fixed-size fields and its
// parameter blocks. FileNames concatenate across all blocks in block
// order and always holds exactly NumFiles entries.
type CompactHeader struct {
	TermSize  uint32
	Canonical bool
	PageSize  uint64 // g
	NumFiles  uint32
	Params    []BlockParams
	FileNames []string
}

// BlockRowSize returns g, the row size shared by every block.
func (h *CompactHeader) BlockRowSize() uint64 { return h.PageSize }

// BlockPayloadSize returns the payload size in bytes of block p.
func (h *CompactHeader) BlockPayloadSize(p int) uint64 {
	return h.PageSize * h.Params[p].SigSize
}

// TotalPayloadSize returns the sum of every block's payload size.
func (h *CompactHeader) TotalPayloadSize() uint64 {
	var total uint64
	for p := range h.Params {
		total += h.BlockPayloadSize(p)
	}
	return total
}

// WriteCompactHeader writes the outer magic, version, and compact inner
// header (through zero padding up to the next g-aligned offset). It
// returns the total number of bytes written, which is where the caller
// must begin writing the payload: h.TotalPayloadSize() bytes, then
// WriteClosingMagic.
func WriteCompactHeader(w io.Writer, h *CompactHeader) (int64, error) {
	if len(h.FileNames) != int(h.NumFiles) {
		return 0, formatErrorf("WriteCompactHeader", "len(FileNames)=%d != NumFiles=%d", len(h.FileNames), h.NumFiles)
	}
	cw := &countingWriter{w: w}
	enc := bin.NewBorshEncoder(cw)

	if _, err := enc.Write([]byte(outerMagic)); err != nil {
		return 0, err
	}
	if err := enc.WriteUint32(version, bin.LE); err != nil {
		return 0, err
	}
	if _, err := enc.Write([]byte(CompactInnerMagic)); err != nil {
		return 0, err
	}
	if err := enc.WriteUint32(innerVersion, bin.LE); err != nil {
		return 0, err
	}
	if err := enc.WriteUint32(h.TermSize, bin.LE); err != nil {
		return 0, err
	}
	if err := enc.WriteUint8(boolToByte(h.Canonical)); err != nil {
		return 0, err
	}
	if err := enc.WriteUint32(uint32(len(h.Params)), bin.LE); err != nil {
		return 0, err
	}
	if err := enc.WriteUint32(h.NumFiles, bin.LE); err != nil {
		return 0, err
	}
	if err := enc.WriteUint64(h.PageSize, bin.LE); err != nil {
		return 0, err
	}
	for _, p := range h.Params {
		if err := enc.WriteUint64(p.SigSize, bin.LE); err != nil {
			return 0, err
		}
		if err := enc.WriteUint64(p.NumHashes, bin.LE); err != nil {
			return 0, err
		}
	}
	for _, name := range h.FileNames {
		if _, err := enc.Write([]byte(name)); err != nil {
			return 0, err
		}
		if err := enc.WriteUint8('\n'); err != nil {
			return 0, err
		}
	}

	if h.PageSize > 0 {
		if rem := cw.n % int64(h.PageSize); rem != 0 {
			pad := int64(h.PageSize) - rem
			if _, err := cw.Write(make([]byte, pad)); err != nil {
				return 0, err
			}
		}
	}
	return cw.n, nil
}

// ReadCompactHeader validates magics/versions, decodes the fixed fields,
// parameter blocks, and file-name list, and reports payloadOffset: the
// exact g-aligned byte offset at which the payload begins, computed the
// same way ReadClassicHeader computes headerSize.
func ReadCompactHeader(r io.Reader) (h *CompactHeader, payloadOffset int64, err error) {
	fixed := make([]byte, len(outerMagic)+4+len(CompactInnerMagic)+4+4+1+4+4+8)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, 0, formatErrorf("ReadCompactHeader", "reading fixed prefix: %w", err)
	}
	dec := bin.NewBorshDecoder(bytes.NewReader(fixed))

	if err := expectMagic(dec, outerMagic, "outer magic"); err != nil {
		return nil, 0, err
	}
	v, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, 0, err
	}
	if v != version {
		return nil, 0, formatErrorf("ReadCompactHeader", "unsupported outer version %d", v)
	}
	if err := expectMagic(dec, CompactInnerMagic, "inner magic"); err != nil {
		return nil, 0, err
	}
	iv, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, 0, err
	}
	if iv != innerVersion {
		return nil, 0, formatErrorf("ReadCompactHeader", "unsupported inner version %d", iv)
	}

	h = new(CompactHeader)
	if h.TermSize, err = dec.ReadUint32(bin.LE); err != nil {
		return nil, 0, err
	}
	canon, err := dec.ReadByte()
	if err != nil {
		return nil, 0, err
	}
	h.Canonical = canon != 0
	nparams, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, 0, err
	}
	if h.NumFiles, err = dec.ReadUint32(bin.LE); err != nil {
		return nil, 0, err
	}
	if h.PageSize, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, 0, err
	}

	consumed := int64(len(fixed))

	paramsBuf := make([]byte, 16*int(nparams))
	if _, err := io.ReadFull(r, paramsBuf); err != nil {
		return nil, 0, formatErrorf("ReadCompactHeader", "reading params: %w", err)
	}
	consumed += int64(len(paramsBuf))
	pdec := bin.NewBorshDecoder(bytes.NewReader(paramsBuf))
	h.Params = make([]BlockParams, nparams)
	for p := range h.Params {
		if h.Params[p].SigSize, err = pdec.ReadUint64(bin.LE); err != nil {
			return nil, 0, err
		}
		if h.Params[p].NumHashes, err = pdec.ReadUint64(bin.LE); err != nil {
			return nil, 0, err
		}
	}

	names, nameBytes, err := readFileNames(r, int(h.NumFiles))
	if err != nil {
		return nil, 0, err
	}
	h.FileNames = names
	consumed += nameBytes

	if h.PageSize > 0 {
		if rem := consumed % int64(h.PageSize); rem != 0 {
			consumed += int64(h.PageSize) - rem
		}
	}
	return h, consumed, nil
}

// countingWriter tracks the number of bytes written through it, the way
// bucketteer's createHeader tracks header length before its final
// length-prefixed rewrite; here the count drives page-size padding
// instead of a length prefix.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
