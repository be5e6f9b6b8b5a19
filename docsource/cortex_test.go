package docsource

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/bingmann/cobs-sub000/kmer"
)

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func putU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// buildCortexFile assembles a minimal version-6, single-color .ctx file
// containing the given k-mers (each of length kmerSize), following the
// layout ported in cortex.go.
func buildCortexFile(t *testing.T, kmerSize int, kmers []string) []byte {
	t.Helper()
	const numWordsPerKmer = 1

	var buf []byte
	buf = append(buf, cortexMagic...)
	buf = putU32(buf, 6) // version
	buf = putU32(buf, uint32(kmerSize))
	buf = putU32(buf, numWordsPerKmer)
	buf = putU32(buf, 1) // num_colors

	buf = putU32(buf, 0)  // mean_read_length
	buf = putU64(buf, 0)  // total_length
	buf = putU32(buf, 0)  // document name length
	buf = append(buf, make([]byte, 16)...)
	buf = append(buf, make([]byte, 12)...)
	buf = putU32(buf, 0) // graph name length
	buf = append(buf, cortexMagic...)

	packedLen := kmer.PackedLen(kmerSize)
	for _, k := range kmers {
		packed, err := kmer.Pack([]byte(k), kmerSize)
		if err != nil {
			t.Fatalf("kmer.Pack(%q): %v", k, err)
		}
		reversed := make([]byte, packedLen)
		for i := range reversed {
			reversed[i] = packed[packedLen-1-i]
		}
		buf = append(buf, reversed...)
		buf = append(buf, make([]byte, 8*numWordsPerKmer-packedLen)...)
		buf = append(buf, make([]byte, 5)...) // coverage/edges, 1 color
	}
	return buf
}

func TestCortexSourceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reads.ctx")
	data := buildCortexFile(t, 8, []string{"ACGTACGT", "TTTTAAAA"})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := &cortexSource{entry: DocumentEntry{Path: path}}

	n, err := s.NumTerms(context.Background(), 8)
	if err != nil {
		t.Fatalf("NumTerms: %v", err)
	}
	if n != 2 {
		t.Fatalf("NumTerms(8) = %d, want 2", n)
	}

	terms := collectTerms(t, s, 8)
	if len(terms) != 2 || terms[0] != "ACGTACGT" || terms[1] != "TTTTAAAA" {
		t.Fatalf("terms = %v", terms)
	}
}

func TestCortexSourceSlidesSmallerTermSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reads.ctx")
	data := buildCortexFile(t, 8, []string{"ACGTACGT"})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := &cortexSource{entry: DocumentEntry{Path: path}}
	terms := collectTerms(t, s, 4)
	want := []string{"ACGT", "CGTA", "GTAC", "TACG", "ACGT"}
	if len(terms) != len(want) {
		t.Fatalf("terms = %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Fatalf("terms[%d] = %q, want %q", i, terms[i], want[i])
		}
	}
}
