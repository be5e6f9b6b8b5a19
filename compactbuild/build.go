package compactbuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/bingmann/cobs-sub000/classicbuild"
	"github.com/bingmann/cobs-sub000/indexfile"
)

// Builder runs a compact index build end to end (§4.7).
type Builder struct {
	Params Params
}

// Build writes a complete compact index for docs to outputPath: one
// classic sub-index per size bucket, then a single page-aligned
// vertical concatenation of the blocks.
func (b *Builder) Build(ctx context.Context, docs []classicbuild.Document, outputPath string) error {
	p := b.Params
	if err := p.validate(); err != nil {
		return err
	}

	if _, err := os.Stat(outputPath); err == nil {
		if !p.Clobber && !p.Continue {
			return usageErrorf("output %s already exists (use Clobber or Continue)", outputPath)
		}
	}

	buckets := sortedBuckets(docs, p.PageSize)
	klog.Infof("compactbuild: %d documents, page size g=%d, %d buckets", len(docs), p.PageSize, len(buckets))

	workDir, err := os.MkdirTemp(filepath.Dir(outputPath), ".cobs-compact-*")
	if err != nil {
		return resourceErrorf("creating build work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	blocks := make([]*subIndexInfo, 0, len(buckets))
	for bi, bucket := range buckets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sigSize := classicbuild.DeriveSigSize(maxTermCount(bucket), p.FPR, p.NumHashes)
		blockPath := filepath.Join(workDir, fmt.Sprintf("block_%04d.cobs_classic", bi))
		cb := &classicbuild.Builder{Params: p.classicParams(sigSize)}
		if err := cb.Build(ctx, bucket, blockPath); err != nil {
			for _, blk := range blocks {
				blk.close()
			}
			return err
		}

		info, err := openSubIndex(blockPath, p.PageSize)
		if err != nil {
			for _, blk := range blocks {
				blk.close()
			}
			return err
		}
		blocks = append(blocks, info)
		klog.Infof("compactbuild: block %d: %d documents, m=%d", bi, len(bucket), sigSize)
	}
	defer func() {
		for _, blk := range blocks {
			blk.close()
		}
	}()

	tmpOut := outputPath + ".tmp"
	if err := writeCompactFile(tmpOut, p, blocks); err != nil {
		os.Remove(tmpOut)
		return err
	}

	if p.Clobber {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			return resourceErrorf("removing existing output %s: %w", outputPath, err)
		}
	}
	if err := os.Rename(tmpOut, outputPath); err != nil {
		return resourceErrorf("renaming %s to %s: %w", tmpOut, outputPath, err)
	}

	klog.Infof("compactbuild: wrote %s", outputPath)
	return nil
}

// subIndexInfo wraps one already-built classic block for the page-
// aligned concatenation pass: its header, its payload's byte offset,
// and the open file to read rows from.
type subIndexInfo struct {
	path       string
	header     *indexfile.ClassicHeader
	payloadOff int64
	file       *os.File
	pageSize   uint64
}

func openSubIndex(path string, pageSize uint64) (*subIndexInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, resourceErrorf("opening block %s: %w", path, err)
	}
	h, headerSize, err := indexfile.ReadClassicHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if h.RowSize() > pageSize {
		f.Close()
		return nil, usageErrorf("block %s row size %d exceeds page size %d", path, h.RowSize(), pageSize)
	}
	return &subIndexInfo{path: path, header: h, payloadOff: headerSize, file: f, pageSize: pageSize}, nil
}

func (s *subIndexInfo) row(r uint64, buf []byte) error {
	off := s.payloadOff + int64(r)*int64(s.header.RowSize())
	_, err := s.file.ReadAt(buf, off)
	return err
}

func (s *subIndexInfo) close() error { return s.file.Close() }

// writeCompactFile assembles blocks into a single compact index at path:
// a compact header whose parameter-block list mirrors each block's
// (m, h), followed by each block's rows, each zero-padded on the right
// from its natural row size up to g bytes (§3.5, §6.3).
func writeCompactFile(path string, p Params, blocks []*subIndexInfo) error {
	var names []string
	params := make([]indexfile.BlockParams, len(blocks))
	for i, blk := range blocks {
		names = append(names, blk.header.FileNames...)
		params[i] = indexfile.BlockParams{SigSize: blk.header.SigSize, NumHashes: blk.header.NumHashes}
	}

	f, err := os.Create(path)
	if err != nil {
		return resourceErrorf("creating compact index %s: %w", path, err)
	}
	defer f.Close()

	h := &indexfile.CompactHeader{
		TermSize:  uint32(p.K),
		Canonical: p.Canonicalize,
		PageSize:  p.PageSize,
		NumFiles:  uint32(len(names)),
		Params:    params,
		FileNames: names,
	}
	headerEnd, err := indexfile.WriteCompactHeader(f, h)
	if err != nil {
		return resourceErrorf("writing compact header %s: %w", path, err)
	}

	totalSize := headerEnd + int64(h.TotalPayloadSize()) + int64(len(indexfile.CompactInnerMagic))
	if err := preallocate(f, headerEnd, totalSize-headerEnd); err != nil {
		return resourceErrorf("preallocating compact index %s: %w", path, err)
	}

	row := make([]byte, p.PageSize)
	for _, blk := range blocks {
		natural := blk.header.RowSize()
		for r := uint64(0); r < blk.header.SigSize; r++ {
			for i := range row {
				row[i] = 0
			}
			if err := blk.row(r, row[:natural]); err != nil {
				return resourceErrorf("reading row %d of block %s: %w", r, blk.path, err)
			}
			if _, err := f.Write(row); err != nil {
				return resourceErrorf("writing compact row %d to %s: %w", r, path, err)
			}
		}
	}

	if err := indexfile.WriteClosingMagic(f, indexfile.CompactInnerMagic); err != nil {
		return resourceErrorf("writing compact closing magic %s: %w", path, err)
	}
	return f.Sync()
}
