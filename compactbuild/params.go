// Package compactbuild implements the compact index builder (§4.7):
// group documents into size buckets, build one classic sub-index per
// bucket with its own (m_p, h), then vertically concatenate the blocks
// into a single page-aligned compact index.
package compactbuild

import (
	"github.com/bingmann/cobs-sub000/classicbuild"
)

// Params configures a compact build. PageSize is g, the row size in
// bytes shared by every block (the last block's natural row may be
// smaller and is zero-padded up to g).
type Params struct {
	K                int
	Canonicalize     bool
	NumHashes        uint64
	FPR              float64
	PageSize         uint64
	MemBudget        int64
	Threads          int
	Clobber          bool
	Continue         bool
	MinTermFrequency uint64
}

// classicParams projects p onto the classicbuild.Params a single
// bucket's sub-build runs with, fixing SigSize to sigSize (derived per
// bucket, §4.7 step 2) rather than letting the classic builder re-derive
// it from FPR.
func (p Params) classicParams(sigSize uint64) classicbuild.Params {
	return classicbuild.Params{
		K:                p.K,
		Canonicalize:     p.Canonicalize,
		NumHashes:        p.NumHashes,
		SigSize:          sigSize,
		MemBudget:        p.MemBudget,
		Threads:          p.Threads,
		Clobber:          true,
		MinTermFrequency: p.MinTermFrequency,
	}
}

func (p Params) validate() error {
	if p.PageSize == 0 {
		return usageErrorf("page size (g) is zero")
	}
	if p.NumHashes == 0 {
		return usageErrorf("num hashes is zero")
	}
	return nil
}

func bucketSize(pageSize uint64) int {
	return int(8 * pageSize)
}
