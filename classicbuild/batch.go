package classicbuild

// BatchSize returns the largest multiple of 8 such that one partial
// bitmap of m rows by ceil(B/8) bytes per row fits in memBudget bytes
// (§4.6 step 1). It returns a UsageError if m is zero and a
// ResourceError if the budget cannot even hold one byte-group per row.
func BatchSize(memBudget int64, m uint64) (int, error) {
	if m == 0 {
		return 0, usageErrorf("signature size (m) is zero")
	}
	if memBudget <= 0 {
		return 0, resourceErrorf("memory budget %d is not positive", memBudget)
	}
	rowGroups := memBudget / int64(m)
	if rowGroups < 1 {
		return 0, resourceErrorf("memory budget %d bytes too small to hold one byte per row for m=%d", memBudget, m)
	}
	const maxBatch = 1 << 30 // guards against an unreasonably large budget overflowing int
	if rowGroups > maxBatch/8 {
		rowGroups = maxBatch / 8
	}
	return int(rowGroups * 8), nil
}

// batches splits docs into groups of at most batchSize documents, the
// last group possibly smaller. Document order is preserved, since column
// assignment within a batch follows input order (§5).
func batches(docs []Document, batchSize int) [][]Document {
	if batchSize <= 0 {
		return nil
	}
	var out [][]Document
	for i := 0; i < len(docs); i += batchSize {
		end := i + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		out = append(out, docs[i:end])
	}
	return out
}

// maxTermCount returns n*, the largest TermCount across docs, for the
// global m = f(n*, fpr, h) formula (§4.6).
func maxTermCount(docs []Document) uint64 {
	var max uint64
	for _, d := range docs {
		if d.Entry.TermCount > max {
			max = d.Entry.TermCount
		}
	}
	return max
}
