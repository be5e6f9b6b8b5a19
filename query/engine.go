// Package query implements the COBS lookup pipeline (§4.9): turn a query
// string into canonical k-mer terms, fetch and AND together each term's
// rows from every index block, expand the ANDed bits into per-document
// hit counts, and return the documents clearing a term-count threshold,
// best first.
package query

import (
	"context"
	"math"

	"github.com/valyala/bytebufferpool"

	"github.com/bingmann/cobs-sub000/internal/parallel"
	"github.com/bingmann/cobs-sub000/khash"
	"github.com/bingmann/cobs-sub000/searchfile"
)

// rowBufPool recycles the per-chunk row-fetch scratch buffer across
// queries, the same bytebufferpool.Pool idiom compactindexsized's and
// bucketteer's query paths use for their read buffers.
var rowBufPool bytebufferpool.Pool

// Params configures one query run.
type Params struct {
	K            int
	Canonicalize bool
	// Theta is the minimum fraction, in [0,1], of a query's k-mers a
	// document must match to be reported (§4.9's "threshold conversion").
	Theta float64
	// TopN bounds the number of hits returned; <= 0 means return every
	// hit above threshold.
	TopN int
	// Threads bounds score-batch fan-out concurrency; <= 0 means
	// internal/parallel.Workers().
	Threads int
}

// chunkBytes is the byte width of one parallel score batch: 8 bytes (64
// columns) per task, small enough to spread even a modest index across
// every worker, large enough that ReadRows's scoreBegin/rowStride
// multiple-of-8 requirement is trivially satisfied.
const chunkBytes = 8

// Run executes one query against backend and returns its hits, best
// first, per Params.
func Run(ctx context.Context, backend searchfile.Backend, q []byte, p Params) ([]Hit, error) {
	terms, err := Terms(q, p.K, p.Canonicalize)
	if err != nil {
		return nil, err
	}

	meta := backend.Metadata()
	if len(meta.Blocks) == 0 || len(terms) == 0 {
		return nil, nil
	}
	numHashes := int(meta.Blocks[0].NumHashes)

	scores := make([][]uint16, len(meta.Blocks))
	for i, blk := range meta.Blocks {
		scores[i] = make([]uint16, blk.NumColumns)
	}

	rowBytes := int(meta.RowSizeBytes)
	numChunks := (rowBytes + chunkBytes - 1) / chunkBytes

	err = parallel.For(ctx, numChunks, p.Threads, func(ctx context.Context, ci int) error {
		begin := ci * chunkBytes
		size := chunkBytes
		if begin+size > rowBytes {
			size = rowBytes - begin
		}

		// rowStride must be a multiple of 8 (ReadRows), so every slot in
		// buf reserves a full chunkBytes even when this is the last,
		// short chunk; only the leading size bytes of each slot are
		// meaningful.
		const stride = chunkBytes
		hashes := make([]uint64, numHashes)
		bb := rowBufPool.Get()
		defer rowBufPool.Put(bb)
		bufLen := stride * numHashes * len(meta.Blocks)
		if cap(bb.B) < bufLen {
			bb.B = make([]byte, bufLen)
		} else {
			bb.B = bb.B[:bufLen]
			clear(bb.B)
		}
		buf := bb.B
		rows := make([][]byte, numHashes)

		for _, term := range terms {
			for i := 0; i < numHashes; i++ {
				hashes[i] = khash.SeedHash(uint64(i), term)
			}
			if err := searchfile.ReadRows(backend, hashes, buf, uint64(begin), uint64(size), uint64(stride)); err != nil {
				return err
			}

			for bi, blk := range meta.Blocks {
				for hi := 0; hi < numHashes; hi++ {
					off := (hi*len(meta.Blocks) + bi) * stride
					rows[hi] = buf[off : off+size]
				}
				numCols := blk.NumColumns - begin*8
				if numCols <= 0 {
					continue
				}
				addRow(scores[bi][begin*8:], rows, numCols)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	threshold := uint16(math.Ceil(p.Theta * float64(len(terms))))

	var hits []Hit
	for bi, blk := range meta.Blocks {
		for col, s := range scores[bi] {
			if s < threshold {
				continue
			}
			global := blk.ColumnOffset + col
			name := ""
			if global < len(meta.FileNames) {
				name = meta.FileNames[global]
			}
			hits = append(hits, Hit{Name: name, GlobalColumn: global, Score: s})
		}
	}

	return TopN(hits, p.TopN), nil
}
