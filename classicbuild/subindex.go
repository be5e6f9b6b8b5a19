package classicbuild

import (
	"context"
	"io"
	"os"

	"github.com/bingmann/cobs-sub000/bitmatrix"
	"github.com/bingmann/cobs-sub000/docsource"
	"github.com/bingmann/cobs-sub000/indexfile"
	"github.com/bingmann/cobs-sub000/khash"
	"github.com/bingmann/cobs-sub000/kmer"
)

// populateBatch builds one batch's Bloom bitmap (§4.4) from its
// documents, applying canonicalization and the optional document-local
// frequency filter before each term reaches the hash function.
func populateBatch(ctx context.Context, p Params, m uint64, docs []Document) (*bitmatrix.Matrix, error) {
	mat := bitmatrix.New(m, uint64(len(docs)))
	bmDocs := make([]bitmatrix.Document, len(docs))
	for i, d := range docs {
		bmDocs[i] = &frequencyFilteredDocument{
			source:  d.Source,
			k:       p.K,
			canon:   p.Canonicalize,
			minFreq: p.MinTermFrequency,
		}
	}
	hash := func(term []byte, fn func(row uint64)) {
		khash.ProcessHashes(term, m, p.NumHashes, fn)
	}
	if err := bitmatrix.Populate(ctx, mat, bmDocs, hash); err != nil {
		return nil, err
	}
	return mat, nil
}

// frequencyFilteredDocument wraps a docsource.Source so that the terms
// reaching the bitmap are canonicalized and, if minFreq > 1, restricted
// to terms occurring at least minFreq times within this one document —
// a document-local stand-in for cobs::frequency's corpus-wide filter
// (see DESIGN.md). Below minFreq > 1 it runs ProcessTerms once;
// otherwise it makes one counting pass first.
type frequencyFilteredDocument struct {
	source  docsource.Source
	k       int
	canon   bool
	minFreq uint64
}

func (d *frequencyFilteredDocument) ProcessTerms(ctx context.Context, fn func(term []byte) error) error {
	var keep map[string]struct{}
	if d.minFreq > 1 {
		counts := make(map[string]uint64)
		if err := d.source.ProcessTerms(ctx, d.k, func(term []byte) error {
			counts[string(term)]++
			return nil
		}); err != nil {
			return err
		}
		keep = make(map[string]struct{}, len(counts))
		for t, c := range counts {
			if c >= d.minFreq {
				keep[t] = struct{}{}
			}
		}
	}
	return d.source.ProcessTerms(ctx, d.k, func(term []byte) error {
		if keep != nil {
			if _, ok := keep[string(term)]; !ok {
				return nil
			}
		}
		out := term
		if d.canon {
			packed, err := kmer.Pack(term, d.k)
			if err != nil {
				return &docsource.InputError{Err: err}
			}
			out = kmer.Unpack(kmer.Canonicalize(packed, d.k), d.k)
		}
		return fn(out)
	})
}

// writeSubIndex populates one batch's bitmap and writes it to path as a
// complete classic index, syncing before returning so a subsequent crash
// leaves either nothing or a file whose closing magic validates.
func writeSubIndex(ctx context.Context, path string, p Params, m uint64, docs []Document) error {
	mat, err := populateBatch(ctx, p, m, docs)
	if err != nil {
		return err
	}

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Entry.Name
	}

	f, err := os.Create(path)
	if err != nil {
		return resourceErrorf("creating sub-index %s: %w", path, err)
	}
	defer f.Close()

	h := &indexfile.ClassicHeader{
		TermSize:  uint32(p.K),
		Canonical: p.Canonicalize,
		SigSize:   m,
		NumHashes: p.NumHashes,
		NumFiles:  uint32(len(docs)),
		FileNames: names,
	}
	if err := indexfile.WriteClassicHeader(f, h); err != nil {
		return resourceErrorf("writing sub-index header %s: %w", path, err)
	}
	for r := uint64(0); r < m; r++ {
		if _, err := f.Write(mat.Row(r)); err != nil {
			return resourceErrorf("writing sub-index payload %s: %w", path, err)
		}
	}
	if err := indexfile.WriteClosingMagic(f, indexfile.ClassicInnerMagic); err != nil {
		return resourceErrorf("writing sub-index closing magic %s: %w", path, err)
	}
	return f.Sync()
}

// subIndexInfo is a validated sub-index ready to participate in a
// combine: its header, the byte offset its payload starts at, and the
// file itself, kept open for the combine's random-access row reads.
type subIndexInfo struct {
	path       string
	header     *indexfile.ClassicHeader
	payloadOff int64
	file       *os.File
}

// openValidSubIndex opens path, parses its header, and checks the
// closing magic at the expected payload end — the §4.6 "trailing magic
// mismatch" detector for a partially written sub-index.
func openValidSubIndex(path string) (*subIndexInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, resourceErrorf("opening sub-index %s: %w", path, err)
	}
	h, headerSize, err := indexfile.ReadClassicHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	closeOff := headerSize + int64(h.PayloadSize())
	if _, err := f.Seek(closeOff, io.SeekStart); err != nil {
		f.Close()
		return nil, resourceErrorf("seeking to closing magic in %s: %w", path, err)
	}
	if err := indexfile.ReadClosingMagic(f, indexfile.ClassicInnerMagic); err != nil {
		f.Close()
		return nil, err
	}
	return &subIndexInfo{path: path, header: h, payloadOff: headerSize, file: f}, nil
}

// row reads row r of this sub-index's payload into buf, which must be
// exactly header.RowSize() bytes.
func (s *subIndexInfo) row(r uint64, buf []byte) error {
	off := s.payloadOff + int64(r)*int64(s.header.RowSize())
	_, err := s.file.ReadAt(buf, off)
	return err
}

func (s *subIndexInfo) close() error {
	return s.file.Close()
}
