package query

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bingmann/cobs-sub000/classicbuild"
	"github.com/bingmann/cobs-sub000/compactbuild"
	"github.com/bingmann/cobs-sub000/docsource"
	"github.com/bingmann/cobs-sub000/env"
)

type memSource struct{ terms []string }

func (m *memSource) NumTerms(ctx context.Context, k int) (uint64, error) { return uint64(len(m.terms)), nil }

func (m *memSource) ProcessTerms(ctx context.Context, k int, fn func(term []byte) error) error {
	for _, t := range m.terms {
		if err := fn([]byte(t)); err != nil {
			return err
		}
	}
	return nil
}

func windows(s string, k int) []string {
	var out []string
	for i := 0; i+k <= len(s); i++ {
		out = append(out, s[i:i+k])
	}
	return out
}

func doc(name, seq string, k int) classicbuild.Document {
	w := windows(seq, k)
	return classicbuild.Document{
		Entry:  docsource.DocumentEntry{Name: name, TermCount: uint64(len(w))},
		Source: &memSource{terms: w},
	}
}

const k = 4

func buildClassicFixture(t *testing.T, docs []classicbuild.Document) string {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(dir, "fixture.cobs_classic")
	p := classicbuild.Params{K: k, Canonicalize: true, NumHashes: 3, SigSize: 2003, MemBudget: 1 << 20}
	b := &classicbuild.Builder{Params: p}
	require.NoError(t, b.Build(context.Background(), docs, out))
	return out
}

func buildCompactFixture(t *testing.T, docs []classicbuild.Document) string {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(dir, "fixture.cobs_compact")
	p := compactbuild.Params{K: k, Canonicalize: true, NumHashes: 3, FPR: 0.01, PageSize: 8, MemBudget: 1 << 20}
	b := &compactbuild.Builder{Params: p}
	require.NoError(t, b.Build(context.Background(), docs, out))
	return out
}

func TestTermsRejectsShortQuery(t *testing.T) {
	_, err := Terms([]byte("AC"), 4, true)
	require.Error(t, err)
}

func TestTermsRejectsInvalidBase(t *testing.T) {
	_, err := Terms([]byte("ACGTN"), 4, true)
	require.Error(t, err)
	var ie *InputError
	require.ErrorAs(t, err, &ie)
}

func TestTermsCountMatchesSlidingWindow(t *testing.T) {
	terms, err := Terms([]byte("ACGTACGT"), 4, false)
	require.NoError(t, err)
	require.Len(t, terms, 5)
}

func TestNoFalseNegatives(t *testing.T) {
	seqs := []string{"ACGTACGTACGT", "TTTTGGGGCCCC", "AAAACCCCGGGGTTTT"}
	docs := make([]classicbuild.Document, len(seqs))
	for i, s := range seqs {
		docs[i] = doc(seqsName(i), s, k)
	}
	path := buildClassicFixture(t, docs)

	e := env.Default()
	backend, err := e.OpenClassic(path)
	require.NoError(t, err)
	defer backend.Close()

	for i, s := range seqs {
		hits, err := Run(context.Background(), backend, []byte(s), Params{K: k, Canonicalize: true, Theta: 1.0})
		require.NoError(t, err)
		found := false
		for _, h := range hits {
			if h.GlobalColumn == i {
				found = true
			}
		}
		require.Truef(t, found, "document %d (its own sequence) was not returned at theta=1.0: %+v", i, hits)
	}
}

func TestScoreNeverExceedsTermCount(t *testing.T) {
	seqs := []string{"ACGTACGTACGT", "TTTTGGGGCCCC"}
	docs := make([]classicbuild.Document, len(seqs))
	for i, s := range seqs {
		docs[i] = doc(seqsName(i), s, k)
	}
	path := buildClassicFixture(t, docs)

	e := env.Default()
	backend, err := e.OpenClassic(path)
	require.NoError(t, err)
	defer backend.Close()

	query := "ACGTACGTACGT"
	terms, _ := Terms([]byte(query), k, true)
	hits, err := Run(context.Background(), backend, []byte(query), Params{K: k, Canonicalize: true, Theta: 0})
	require.NoError(t, err)
	for _, h := range hits {
		require.LessOrEqualf(t, int(h.Score), len(terms), "score exceeds term count")
	}
}

func TestAllIncludedScenarioAtZeroThreshold(t *testing.T) {
	seqs := []string{"ACGTACGTACGT", "TTTTGGGGCCCC", "AAAACCCCGGGGTTTT"}
	docs := make([]classicbuild.Document, len(seqs))
	for i, s := range seqs {
		docs[i] = doc(seqsName(i), s, k)
	}
	path := buildClassicFixture(t, docs)

	e := env.Default()
	backend, err := e.OpenClassic(path)
	require.NoError(t, err)
	defer backend.Close()

	hits, err := Run(context.Background(), backend, []byte("ACGTACGTACGT"), Params{K: k, Canonicalize: true, Theta: 0})
	require.NoError(t, err)
	require.Lenf(t, hits, len(docs), "theta=0 should return every document")
}

func TestSingletonScenario(t *testing.T) {
	docs := []classicbuild.Document{doc("only", "ACGTACGTACGT", k)}
	path := buildClassicFixture(t, docs)

	e := env.Default()
	backend, err := e.OpenClassic(path)
	require.NoError(t, err)
	defer backend.Close()

	hits, err := Run(context.Background(), backend, []byte("ACGTACGTACGT"), Params{K: k, Canonicalize: true, Theta: 1.0})
	require.NoError(t, err)
	require.Lenf(t, hits, 1, "unexpected hits for singleton index: %+v", hits)
	require.Equal(t, 0, hits[0].GlobalColumn)
}

func TestDeterministicOrdering(t *testing.T) {
	seqs := []string{"ACGTACGTACGT", "ACGTACGTAAAA", "ACGTACGTTTTT"}
	docs := make([]classicbuild.Document, len(seqs))
	for i, s := range seqs {
		docs[i] = doc(seqsName(i), s, k)
	}
	path := buildClassicFixture(t, docs)

	e := env.Default()
	backend, err := e.OpenClassic(path)
	require.NoError(t, err)
	defer backend.Close()

	params := Params{K: k, Canonicalize: true, Theta: 0.5}
	first, err := Run(context.Background(), backend, []byte("ACGTACGTACGT"), params)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		next, err := Run(context.Background(), backend, []byte("ACGTACGTACGT"), params)
		require.NoError(t, err)
		require.Equalf(t, first, next, "run %d", i)
	}
}

func TestTopNBoundsResultCount(t *testing.T) {
	seqs := []string{"ACGTACGTACGT", "ACGTACGTAAAA", "ACGTACGTTTTT", "ACGTACGTCCCC"}
	docs := make([]classicbuild.Document, len(seqs))
	for i, s := range seqs {
		docs[i] = doc(seqsName(i), s, k)
	}
	path := buildClassicFixture(t, docs)

	e := env.Default()
	backend, err := e.OpenClassic(path)
	require.NoError(t, err)
	defer backend.Close()

	hits, err := Run(context.Background(), backend, []byte("ACGTACGTACGT"), Params{K: k, Canonicalize: true, Theta: 0, TopN: 2})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.GreaterOrEqualf(t, hits[0].Score, hits[1].Score, "hits not sorted best-first: %+v", hits)
}

func TestMultiIndexFusion(t *testing.T) {
	a := buildClassicFixture(t, []classicbuild.Document{doc("a0", "ACGTACGTACGT", k)})
	b := buildClassicFixture(t, []classicbuild.Document{doc("b0", "ACGTACGTACGT", k)})

	e := env.Default()
	backendA, err := e.OpenClassic(a)
	require.NoError(t, err)
	defer backendA.Close()
	backendB, err := e.OpenClassic(b)
	require.NoError(t, err)
	defer backendB.Close()

	params := Params{K: k, Canonicalize: true, Theta: 1.0}
	hitsA, err := Run(context.Background(), backendA, []byte("ACGTACGTACGT"), params)
	require.NoError(t, err)
	hitsB, err := Run(context.Background(), backendB, []byte("ACGTACGTACGT"), params)
	require.NoError(t, err)

	fused := append(append([]Hit(nil), hitsA...), hitsB...)
	fused = TopN(fused, 0)
	require.Lenf(t, fused, 2, "expected one hit from each index, got %+v", fused)
}

func TestQueryAgainstCompactIndex(t *testing.T) {
	seqs := []string{"ACGTACGTACGT", "TTTTGGGGCCCC", "AAAACCCCGGGGTTTT", "GATTACAGATTACA"}
	docs := make([]classicbuild.Document, len(seqs))
	for i, s := range seqs {
		docs[i] = doc(seqsName(i), s, k)
	}
	path := buildCompactFixture(t, docs)

	e := env.Default()
	backend, err := e.OpenCompact(path)
	require.NoError(t, err)
	defer backend.Close()

	hits, err := Run(context.Background(), backend, []byte("ACGTACGTACGT"), Params{K: k, Canonicalize: true, Theta: 1.0})
	require.NoError(t, err)
	found := false
	for _, h := range hits {
		if h.Name == "d0" {
			found = true
		}
	}
	require.Truef(t, found, "expected to find d0's own sequence in compact index, got %+v", hits)
}

// kmerFromIndex maps a non-negative integer to a distinct length-k ACGT
// string (base-4 digits), so a run of consecutive indices produces a set
// of guaranteed-distinct k-mers with no canonicalization ambiguity.
func kmerFromIndex(i uint64, k int) string {
	digits := "ACGT"
	buf := make([]byte, k)
	for p := k - 1; p >= 0; p-- {
		buf[p] = digits[i%4]
		i /= 4
	}
	return string(buf)
}

// TestFalsePositiveCeiling measures the Bloom false-positive rate over
// k-mers deliberately absent from every document and checks it stays
// within a generous statistical margin of the requested FPR (§4.9's
// "bounded false positives" property).
func TestFalsePositiveCeiling(t *testing.T) {
	const kk = 12
	const numDocs = 150
	const perDoc = 30
	const numQueries = 40
	const fpr = 0.05
	const numHashes = 3

	docs := make([]classicbuild.Document, numDocs)
	idx := uint64(0)
	for d := 0; d < numDocs; d++ {
		terms := make([]string, perDoc)
		for i := 0; i < perDoc; i++ {
			terms[i] = kmerFromIndex(idx, kk)
			idx++
		}
		docs[d] = classicbuild.Document{
			Entry:  docsource.DocumentEntry{Name: fmt.Sprintf("doc%03d", d), TermCount: uint64(perDoc)},
			Source: &memSource{terms: terms},
		}
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "fp.cobs_classic")
	p := classicbuild.Params{K: kk, Canonicalize: false, NumHashes: numHashes, FPR: fpr, MemBudget: 1 << 24}
	b := &classicbuild.Builder{Params: p}
	require.NoError(t, b.Build(context.Background(), docs, out))

	e := env.Default()
	backend, err := e.OpenClassic(out)
	require.NoError(t, err)
	defer backend.Close()

	falsePositives, trials := 0, 0
	for q := 0; q < numQueries; q++ {
		query := kmerFromIndex(idx, kk)
		idx++
		hits, err := Run(context.Background(), backend, []byte(query), Params{K: kk, Canonicalize: false, Theta: 1.0})
		require.NoError(t, err)
		falsePositives += len(hits)
		trials += numDocs
	}

	observed := float64(falsePositives) / float64(trials)
	const ceiling = fpr * 5 // generous margin over the requested single-term FPR
	require.LessOrEqualf(t, observed, ceiling, "observed false positive rate exceeds ceiling (%d/%d)", falsePositives, trials)
}

func seqsName(i int) string {
	names := []string{"d0", "d1", "d2", "d3"}
	if i < len(names) {
		return names[i]
	}
	return "dX"
}
