package khash

import "testing"

func TestProcessHashesDeterministic(t *testing.T) {
	buf := []byte("ACGTACGTACGTACGTACGTACGTACGTACG")
	const m, h = 1009, 4

	var a, b []uint64
	ProcessHashes(buf, m, h, func(row uint64) { a = append(a, row) })
	ProcessHashes(buf, m, h, func(row uint64) { b = append(b, row) })

	if len(a) != h || len(b) != h {
		t.Fatalf("expected %d hashes, got %d and %d", h, len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("hash %d not deterministic: %d != %d", i, a[i], b[i])
		}
		if a[i] >= m {
			t.Fatalf("row index %d out of range [0, %d)", a[i], m)
		}
	}
}

func TestProcessHashesVariesBySeed(t *testing.T) {
	buf := []byte("ACGTACGTACGTACGTACGTACGTACGTACG")
	const m, h = 1 << 20, 4

	var rows []uint64
	ProcessHashes(buf, m, h, func(row uint64) { rows = append(rows, row) })

	seen := make(map[uint64]bool)
	for _, r := range rows {
		seen[r] = true
	}
	if len(seen) != h {
		t.Fatalf("expected %d distinct rows from %d distinct seeds (collision improbable at m=2^20), got %d", h, h, len(seen))
	}
}

func TestAppendHashesMatchesProcessHashes(t *testing.T) {
	buf := []byte("GATTACA")
	const m, h = 257, 3

	var want []uint64
	ProcessHashes(buf, m, h, func(row uint64) { want = append(want, row) })

	got := AppendHashes(nil, buf, m, h)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: %d != %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hash %d mismatch: %d != %d", i, got[i], want[i])
		}
	}
}

func TestDifferentBuffersDifferentHashes(t *testing.T) {
	h1 := SeedHash(0, []byte("AAAA"))
	h2 := SeedHash(0, []byte("TTTT"))
	if h1 == h2 {
		t.Fatal("expected different hashes for different buffers")
	}
}
