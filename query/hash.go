package query

import "github.com/bingmann/cobs-sub000/kmer"

// Terms returns the ASCII k-mer term bytes for every position of a sliding
// k-window over q, in order. It validates q's length against k and
// kmer.MaxK before slicing a single window. Base validation only applies
// when canonicalize is set: a raw, non-canonicalized query is hashed
// byte-for-byte with no restriction on its alphabet, matching the
// build-side behavior of never validating bases when canon is off.
func Terms(q []byte, k int, canonicalize bool) ([][]byte, error) {
	if k <= 0 {
		return nil, inputErrorf(string(q), "k must be positive, got %d", k)
	}
	if len(q) < k {
		return nil, inputErrorf(string(q), "query length %d is shorter than k=%d", len(q), k)
	}
	maxLen := k + kmer.MaxK - 1
	if len(q) > maxLen {
		return nil, inputErrorf(string(q), "query length %d exceeds maximum %d (k + 2^16 - 2)", len(q), maxLen)
	}
	if canonicalize {
		if err := kmer.Valid(q); err != nil {
			return nil, &InputError{Query: string(q), Err: err}
		}
	}

	n := len(q) - k + 1
	terms := make([][]byte, n)
	for i := 0; i < n; i++ {
		window := q[i : i+k]
		if canonicalize {
			canon, wasCanonical := kmer.CanonicalizeBytes(window)
			if wasCanonical {
				terms[i] = window
			} else {
				terms[i] = canon
			}
			continue
		}
		terms[i] = window
	}
	return terms, nil
}
