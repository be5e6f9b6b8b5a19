// Package khash produces the row hashes used to address a Bloom row
// bitmap: h 64-bit hashes per term, each reduced mod m to a row index.
//
// The hash identity and seed sequence are part of the on-disk contract: two
// builds over the same inputs and parameters must produce bit-identical
// payloads, so this package pins xxHash64 the same way
// compactindexsized.EntryHash64 does, rather than leaving the choice to
// whatever hash happens to be in scope.
package khash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// SeedHash returns H(buf, seed) as a 64-bit digest, hashing an 8-byte
// little-endian seed prefix followed by buf through a fresh digest — the
// same "prefix || key" construction as compactindexsized.EntryHash64.
func SeedHash(seed uint64, buf []byte) uint64 {
	var prefix [8]byte
	binary.LittleEndian.PutUint64(prefix[:], seed)

	var d xxhash.Digest
	d.Reset()
	d.Write(prefix[:])
	d.Write(buf)
	return d.Sum64()
}

// RowIndex reduces a seeded hash to a row index in [0, m).
func RowIndex(seed uint64, buf []byte, m uint64) uint64 {
	return SeedHash(seed, buf) % m
}

// ProcessHashes invokes fn with h row indices in [0, m), the indices
// H(buf, seed=i) mod m for i = 0..h-1. Term insertion addresses bitmap
// rows through this function; the query engine computes the same
// SeedHash(i, buf) values and searchfile.ReadRows reduces them mod each
// block's m, so that build and query agree on row placement.
func ProcessHashes(buf []byte, m uint64, h uint64, fn func(row uint64)) {
	for i := uint64(0); i < h; i++ {
		fn(RowIndex(i, buf, m))
	}
}

// AppendHashes appends the h row indices for buf to dst and returns the
// extended slice, in the same order ProcessHashes yields them.
func AppendHashes(dst []uint64, buf []byte, m uint64, h uint64) []uint64 {
	for i := uint64(0); i < h; i++ {
		dst = append(dst, RowIndex(i, buf, m))
	}
	return dst
}
