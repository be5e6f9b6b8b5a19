// Package bitmatrix is the in-memory Bloom row bitmap: an m-row by
// w-column bit matrix stored row-major, one byte-aligned row per hash
// position. classicbuild populates one of these per batch and hands its
// rows to indexfile for serialization.
package bitmatrix

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/bingmann/cobs-sub000/internal/parallel"
)

// RowBytes returns ⌈w/8⌉, the number of bytes needed to store w columns.
func RowBytes(w uint64) uint64 {
	return (w + 7) / 8
}

// Matrix is an m x w bit matrix, row-major, one whole byte per 8 columns.
// A zero Matrix is not usable; construct with New.
type Matrix struct {
	m        uint64
	w        uint64
	rowBytes uint64
	data     []byte
}

// New allocates an all-zero m x w matrix. w is not required to be a
// multiple of 8; trailing bits of the last byte of every row are padding
// and stay zero.
func New(m, w uint64) *Matrix {
	rb := RowBytes(w)
	return &Matrix{
		m:        m,
		w:        w,
		rowBytes: rb,
		data:     make([]byte, m*rb),
	}
}

// Rows returns m, the signature size.
func (b *Matrix) Rows() uint64 { return b.m }

// Cols returns w, the number of document columns.
func (b *Matrix) Cols() uint64 { return b.w }

// RowSize returns the row size in bytes, ⌈w/8⌉.
func (b *Matrix) RowSize() uint64 { return b.rowBytes }

// Set sets bit j of row r. Concurrent Set calls are safe as long as no two
// goroutines touch the same byte, i.e. as long as callers partition work by
// byte-aligned groups of 8 columns the way Populate does.
func (b *Matrix) Set(r, j uint64) {
	off := r*b.rowBytes + j/8
	b.data[off] |= 1 << (7 - j%8)
}

// Get reports whether bit j of row r is set.
func (b *Matrix) Get(r, j uint64) bool {
	off := r*b.rowBytes + j/8
	return b.data[off]&(1<<(7-j%8)) != 0
}

// Row returns the raw bytes of row r, without copying. Callers must not
// retain the slice past the matrix's lifetime if the matrix is reused.
func (b *Matrix) Row(r uint64) []byte {
	start := r * b.rowBytes
	return b.data[start : start+b.rowBytes]
}

// PopcountColumn counts the set bits of column j across all m rows.
func (b *Matrix) PopcountColumn(j uint64) uint32 {
	var n uint32
	byteIdx := j / 8
	mask := byte(1 << (7 - j%8))
	for r := uint64(0); r < b.m; r++ {
		if b.data[r*b.rowBytes+byteIdx]&mask != 0 {
			n++
		}
	}
	return n
}

// PopcountAll counts every set bit in the matrix.
func (b *Matrix) PopcountAll() uint64 {
	var n uint64
	for _, by := range b.data {
		n += uint64(bits.OnesCount8(by))
	}
	return n
}

// Term is a single piece of work: the packed or canonicalized bytes of a
// k-mer, destined for column j.
type Term struct {
	Bytes []byte
}

// Document is anything that can produce the terms for one column of a
// build batch. docsource.Source satisfies this shape; it is kept minimal
// here so bitmatrix does not import docsource.
type Document interface {
	ProcessTerms(ctx context.Context, fn func(term []byte) error) error
}

// HashFunc computes the h row indices for a term and invokes fn with each.
// khash.ProcessHashes bound to (m, h) satisfies this signature.
type HashFunc func(term []byte, fn func(row uint64))

// Populate runs the §4.4 construction loop: for every column j, every term
// of docs[j] is hashed and the resulting rows are set in column j. Eight
// columns share each byte of a row, so the work is split into groups of 8
// consecutive documents, one goroutine per group, which keeps every byte
// owned by a single goroutine without locking; Populate fans the groups out
// across parallel.Workers() goroutines.
func Populate(ctx context.Context, b *Matrix, docs []Document, hash HashFunc) error {
	if uint64(len(docs)) > b.w {
		return fmt.Errorf("bitmatrix: %d documents exceeds matrix width %d", len(docs), b.w)
	}
	groups := (len(docs) + 7) / 8
	return parallel.For(ctx, groups, 0, func(ctx context.Context, g int) error {
		end := min(g*8+8, len(docs))
		for j := g * 8; j < end; j++ {
			col := uint64(j)
			if err := docs[j].ProcessTerms(ctx, func(term []byte) error {
				hash(term, func(row uint64) {
					b.Set(row, col)
				})
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
