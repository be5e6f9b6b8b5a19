package kmer

import (
	"bytes"
	"math/rand"
	"testing"
)

func randomBases(n int, rng *rand.Rand) []byte {
	const letters = "ACGT"
	out := make([]byte, n)
	for i := range out {
		out[i] = letters[rng.Intn(4)]
	}
	return out
}

func TestPackUnpackRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, k := range []int{1, 3, 4, 5, 8, 31, 32, 63} {
		bases := randomBases(k, rng)
		packed, err := Pack(bases, k)
		if err != nil {
			t.Fatalf("Pack(k=%d): %v", k, err)
		}
		if got := len(packed); got != PackedLen(k) {
			t.Fatalf("PackedLen(%d)=%d, packed has %d bytes", k, PackedLen(k), got)
		}
		back := Unpack(packed, k)
		if !bytes.Equal(back, bases) {
			t.Fatalf("Unpack(Pack(%q)) = %q, want %q", bases, back, bases)
		}
	}
}

func TestPackInvalidBase(t *testing.T) {
	_, err := Pack([]byte("ACGN"), 4)
	if err == nil {
		t.Fatal("expected error for non-ACGT base")
	}
	var invalid *ErrInvalidBase
	if !errorsAs(err, &invalid) {
		t.Fatalf("expected *ErrInvalidBase, got %T: %v", err, err)
	}
	if invalid.Offset != 3 {
		t.Fatalf("offset = %d, want 3", invalid.Offset)
	}
}

func errorsAs(err error, target **ErrInvalidBase) bool {
	if e, ok := err.(*ErrInvalidBase); ok {
		*target = e
		return true
	}
	return false
}

func TestReverseComplement(t *testing.T) {
	packed, err := Pack([]byte("ACGT"), 4)
	if err != nil {
		t.Fatal(err)
	}
	rc := ReverseComplement(packed, 4)
	got := Unpack(rc, 4)
	if string(got) != "ACGT" {
		t.Fatalf("reverse complement of ACGT = %s, want ACGT (palindromic)", got)
	}

	packed2, _ := Pack([]byte("AAAC"), 4)
	rc2 := Unpack(ReverseComplement(packed2, 4), 4)
	if string(rc2) != "GTTT" {
		t.Fatalf("reverse complement of AAAC = %s, want GTTT", rc2)
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		k := 1 + rng.Intn(40)
		bases := randomBases(k, rng)
		packed, err := Pack(bases, k)
		if err != nil {
			t.Fatal(err)
		}
		c1 := Canonicalize(packed, k)
		c2 := Canonicalize(c1, k)
		if !bytes.Equal(c1, c2) {
			t.Fatalf("Canonicalize not idempotent for %q: %v != %v", bases, c1, c2)
		}
		rc := ReverseComplement(packed, k)
		c3 := Canonicalize(rc, k)
		if !bytes.Equal(c1, c3) {
			t.Fatalf("Canonicalize(reverse_complement(s)) != Canonicalize(s) for %q", bases)
		}
	}
}

func TestCanonicalizePicksLexicographicallySmaller(t *testing.T) {
	packed, err := Pack([]byte("TTTT"), 4)
	if err != nil {
		t.Fatal(err)
	}
	canon := Unpack(Canonicalize(packed, 4), 4)
	if string(canon) != "AAAA" {
		t.Fatalf("canonical form of TTTT = %s, want AAAA", canon)
	}
}

func TestCanonicalizeBytesMatchesPackedForm(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		k := 1 + rng.Intn(40)
		bases := randomBases(k, rng)
		packed, err := Pack(bases, k)
		if err != nil {
			t.Fatal(err)
		}
		viaPacked := Unpack(Canonicalize(packed, k), k)
		viaBytes, _ := CanonicalizeBytes(bases)
		if !bytes.Equal(viaPacked, viaBytes) {
			t.Fatalf("packed and byte-level canonicalization disagree for %q: %q vs %q", bases, viaPacked, viaBytes)
		}
	}
}

func TestValid(t *testing.T) {
	if err := Valid([]byte("ACGTACGT")); err != nil {
		t.Fatalf("Valid returned error for clean sequence: %v", err)
	}
	if err := Valid([]byte("ACGXACGT")); err == nil {
		t.Fatal("expected error for invalid base")
	}
}
