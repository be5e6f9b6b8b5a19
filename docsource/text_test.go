package docsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func collectTerms(t *testing.T, s Source, k int) []string {
	t.Helper()
	var terms []string
	err := s.ProcessTerms(context.Background(), k, func(term []byte) error {
		terms = append(terms, string(term))
		return nil
	})
	if err != nil {
		t.Fatalf("ProcessTerms: %v", err)
	}
	return terms
}

func TestTextSourceSlidesWithinLine(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "reads.txt", "ACGTAC\nGGTT")
	s := &textSource{entry: DocumentEntry{Path: path}}

	terms := collectTerms(t, s, 4)
	want := []string{"ACGT", "CGTA", "GTAC", "GGTT"}
	if len(terms) != len(want) {
		t.Fatalf("terms = %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Fatalf("terms[%d] = %q, want %q", i, terms[i], want[i])
		}
	}
}

func TestTextSourceNumTermsMatchesProcessTerms(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "reads.txt", "AAAAACCCCC\nGGGGGTTTTT")
	s := &textSource{entry: DocumentEntry{Path: path}}

	n, err := s.NumTerms(context.Background(), 3)
	if err != nil {
		t.Fatalf("NumTerms: %v", err)
	}
	if got := len(collectTerms(t, s, 3)); uint64(got) != n {
		t.Fatalf("NumTerms=%d, len(ProcessTerms)=%d", n, got)
	}
}
