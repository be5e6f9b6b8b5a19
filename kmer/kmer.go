// Package kmer implements the 2-bit DNA k-mer codec: packing, unpacking,
// reverse complementation and canonicalization.
//
// Bases are packed MSB-first within each byte: the base at logical string
// position i occupies bits [6-2*(i%4), 7-2*(i%4)] of byte i/4. A k-mer of
// length k occupies ceil(k/4) bytes; unused low bits of the last byte are
// always zero. This layout is an internal choice — per the on-disk format,
// only the resulting bitmap bit positions are persisted, never the packed
// k-mer bytes themselves, so nothing outside this package depends on it.
package kmer

import "fmt"

// MaxK bounds the number of terms in a query, len(query)-k+1, so that a
// per-document score fits a uint16, the query engine's score precondition.
const MaxK = 1<<16 - 1

// Base codes. Chosen so complement(c) == c^3: A<->T and C<->G are the two
// bit-complementary pairs.
const (
	baseA = 0
	baseC = 1
	baseG = 2
	baseT = 3
)

// ErrInvalidBase reports a non-ACGT byte encountered while packing or
// canonicalizing a term.
type ErrInvalidBase struct {
	Offset int
	Byte   byte
}

func (e *ErrInvalidBase) Error() string {
	return fmt.Sprintf("kmer: invalid base %q at offset %d", e.Byte, e.Offset)
}

func baseCode(b byte) (byte, bool) {
	switch b {
	case 'A':
		return baseA, true
	case 'C':
		return baseC, true
	case 'G':
		return baseG, true
	case 'T':
		return baseT, true
	default:
		return 0, false
	}
}

func baseChar(code byte) byte {
	switch code & 3 {
	case baseA:
		return 'A'
	case baseC:
		return 'C'
	case baseG:
		return 'G'
	default:
		return 'T'
	}
}

// PackedLen returns the number of bytes needed to pack a k-mer of length k.
func PackedLen(k int) int {
	return (k + 3) / 4
}

// Pack encodes a length-k DNA byte string into its 2-bit packed form.
// Returns *ErrInvalidBase for the first byte outside {A,C,G,T}.
func Pack(bases []byte, k int) ([]byte, error) {
	if len(bases) != k {
		return nil, fmt.Errorf("kmer: Pack: len(bases)=%d != k=%d", len(bases), k)
	}
	out := make([]byte, PackedLen(k))
	for i := 0; i < k; i++ {
		code, ok := baseCode(bases[i])
		if !ok {
			return nil, &ErrInvalidBase{Offset: i, Byte: bases[i]}
		}
		shift := uint(6 - 2*(i%4))
		out[i/4] |= code << shift
	}
	return out, nil
}

// Unpack decodes a packed k-mer back into its ASCII byte form. The inverse
// of Pack.
func Unpack(packed []byte, k int) []byte {
	out := make([]byte, k)
	for i := 0; i < k; i++ {
		shift := uint(6 - 2*(i%4))
		code := (packed[i/4] >> shift) & 3
		out[i] = baseChar(code)
	}
	return out
}

// ReverseComplement returns the reverse complement of a packed k-mer.
// Implemented over the unpacked ASCII form for clarity: reverse complement
// is not on the query hot path per k-mer (canonicalization unpacks anyway
// to perform its lexicographic comparison), so there is no benefit to a
// bitwise-on-packed-bytes version here.
func ReverseComplement(packed []byte, k int) []byte {
	rc := reverseComplementBytes(Unpack(packed, k))
	out, err := Pack(rc, k)
	if err != nil {
		// rc is built entirely from baseChar() output, so it is always valid.
		panic("kmer: internal invariant violated: " + err.Error())
	}
	return out
}

func reverseComplementBytes(bases []byte) []byte {
	k := len(bases)
	out := make([]byte, k)
	for i, b := range bases {
		code, ok := baseCode(b)
		if !ok {
			panic(fmt.Sprintf("kmer: reverseComplementBytes: invalid base %q", b))
		}
		out[k-1-i] = baseChar(code ^ 3)
	}
	return out
}

// Canonicalize returns the lexicographically smaller of a packed k-mer and
// its reverse complement, compared as unpacked ASCII byte strings. Equal
// canonical forms hash identically; Canonicalize is idempotent.
func Canonicalize(packed []byte, k int) []byte {
	fwd := Unpack(packed, k)
	rc := reverseComplementBytes(fwd)
	if compareBytes(fwd, rc) <= 0 {
		return packed
	}
	out, err := Pack(rc, k)
	if err != nil {
		panic("kmer: internal invariant violated: " + err.Error())
	}
	return out
}

// CanonicalizeBytes is Canonicalize's counterpart for callers holding the
// unpacked ASCII form (e.g. a sliding window over a query string): it
// avoids an unnecessary pack/unpack round trip and returns the canonical
// ASCII form plus whether the input was already canonical.
func CanonicalizeBytes(bases []byte) (canonical []byte, wasCanonical bool) {
	rc := reverseComplementBytes(bases)
	if compareBytes(bases, rc) <= 0 {
		return bases, true
	}
	return rc, false
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Valid reports whether every byte in bases is one of A, C, G, T.
func Valid(bases []byte) error {
	for i, b := range bases {
		if _, ok := baseCode(b); !ok {
			return &ErrInvalidBase{Offset: i, Byte: b}
		}
	}
	return nil
}
