// Package classicbuild implements the classic index builder (§4.6): batch
// a document list into per-batch Bloom sub-indexes, then hierarchically
// combine them by row-wise byte concatenation until one file remains.
package classicbuild

import (
	"math"

	"github.com/bingmann/cobs-sub000/docsource"
)

// Document pairs a document's entry metadata with its opened term
// producer, the unit classicbuild's batches are made of.
type Document struct {
	Entry  docsource.DocumentEntry
	Source docsource.Source
}

// Params configures a classic build (§4.6).
type Params struct {
	K            int
	Canonicalize bool
	NumHashes    uint64
	FPR          float64 // used to derive SigSize when SigSize == 0
	SigSize      uint64  // m; 0 means "derive from FPR and the largest document term count"
	MemBudget    int64   // bytes available for one partial bitmap
	Threads      int
	Clobber      bool
	Continue     bool

	// MinTermFrequency, if > 0, drops terms that occur fewer than this
	// many times within a single document before they reach the
	// bitmap — a document-local approximation of the whole-corpus
	// frequency filtering cobs::frequency performs upstream of the
	// classic build (see DESIGN.md).
	MinTermFrequency uint64
}

// DeriveSigSize computes m = ceil(-h * n* / ln(1 - fpr^(1/h))), the Bloom
// filter size at which n* terms hashed h times give a false positive rate
// of fpr, where maxTermCount is n*, the largest term count among the
// documents being indexed.
func DeriveSigSize(maxTermCount uint64, fpr float64, h uint64) uint64 {
	if maxTermCount == 0 {
		return 1
	}
	n := float64(maxTermCount)
	den := math.Log(1 - math.Pow(fpr, 1/float64(h)))
	m := math.Ceil(-float64(h) * n / den)
	if m < 1 {
		m = 1
	}
	return uint64(m)
}

// SigSizeFor resolves p.SigSize, deriving it from FPR if it is unset.
func (p Params) SigSizeFor(maxTermCount uint64) uint64 {
	if p.SigSize != 0 {
		return p.SigSize
	}
	return DeriveSigSize(maxTermCount, p.FPR, p.NumHashes)
}
