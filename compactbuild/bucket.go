package compactbuild

import (
	"sort"

	"github.com/bingmann/cobs-sub000/classicbuild"
)

// sortedBuckets returns docs partitioned into buckets of bucketSize(g)
// documents each, sorted ascending by term count first so that each
// bucket's largest document (and hence its derived m_p) is as small as
// the corpus's size distribution allows (§4.7 step 1-2). The last bucket
// may be smaller.
func sortedBuckets(docs []classicbuild.Document, pageSize uint64) [][]classicbuild.Document {
	sorted := make([]classicbuild.Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Entry.TermCount < sorted[j].Entry.TermCount
	})

	bs := bucketSize(pageSize)
	var buckets [][]classicbuild.Document
	for i := 0; i < len(sorted); i += bs {
		end := i + bs
		if end > len(sorted) {
			end = len(sorted)
		}
		buckets = append(buckets, sorted[i:end])
	}
	return buckets
}

func maxTermCount(docs []classicbuild.Document) uint64 {
	var max uint64
	for _, d := range docs {
		if d.Entry.TermCount > max {
			max = d.Entry.TermCount
		}
	}
	return max
}
