package classicbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bingmann/cobs-sub000/indexfile"
)

// combineGroups partitions files into consecutive runs whose combined
// row width fits memBudget bytes, preserving file order so that column
// (document) order in the combined output matches the order documents
// were batched in originally (§4.6 step 3, §5).
func combineGroups(files []*subIndexInfo, memBudget int64) [][]*subIndexInfo {
	var groups [][]*subIndexInfo
	var cur []*subIndexInfo
	var curWidth int64
	for _, f := range files {
		w := int64(f.header.RowSize())
		if len(cur) > 0 && curWidth+w > memBudget {
			groups = append(groups, cur)
			cur = nil
			curWidth = 0
		}
		cur = append(cur, f)
		curWidth += w
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// checkCombinable verifies every sub-index in a combine group shares the
// same (m, h, k, canonical), the invariant row-wise byte concatenation
// depends on (§4.6's combine-equivalence requirement).
func checkCombinable(group []*subIndexInfo) error {
	if len(group) == 0 {
		return usageErrorf("empty combine group")
	}
	first := group[0].header
	for _, s := range group[1:] {
		h := s.header
		if h.SigSize != first.SigSize || h.NumHashes != first.NumHashes ||
			h.TermSize != first.TermSize || h.Canonical != first.Canonical {
			return indexfile.NewFormatErrorf(
				"combine", "sub-index %s has (m=%d,h=%d,k=%d,canon=%v), expected (m=%d,h=%d,k=%d,canon=%v)",
				s.path, h.SigSize, h.NumHashes, h.TermSize, h.Canonical,
				first.SigSize, first.NumHashes, first.TermSize, first.Canonical)
		}
	}
	return nil
}

// combineGroup row-concatenates group's payloads into a single classic
// index at outPath: for every row r, the combined row is the
// byte-concatenation of each source's row r in group order, which is
// exactly what a fresh build over the concatenated document list would
// have produced for that row (the row-concatenation identity, §8).
func combineGroup(group []*subIndexInfo, outPath string) error {
	if err := checkCombinable(group); err != nil {
		return err
	}
	first := group[0].header

	var names []string
	for _, s := range group {
		names = append(names, s.header.FileNames...)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return resourceErrorf("creating combined sub-index %s: %w", outPath, err)
	}
	defer f.Close()

	out := &indexfile.ClassicHeader{
		TermSize:  first.TermSize,
		Canonical: first.Canonical,
		SigSize:   first.SigSize,
		NumHashes: first.NumHashes,
		NumFiles:  uint32(len(names)),
		FileNames: names,
	}
	if err := indexfile.WriteClassicHeader(f, out); err != nil {
		return resourceErrorf("writing combined header %s: %w", outPath, err)
	}

	bufs := make([][]byte, len(group))
	for i, s := range group {
		bufs[i] = make([]byte, s.header.RowSize())
	}
	for r := uint64(0); r < first.SigSize; r++ {
		for i, s := range group {
			if err := s.row(r, bufs[i]); err != nil {
				return resourceErrorf("reading row %d of %s: %w", r, s.path, err)
			}
			if _, err := f.Write(bufs[i]); err != nil {
				return resourceErrorf("writing combined row %d to %s: %w", r, outPath, err)
			}
		}
	}
	if err := indexfile.WriteClosingMagic(f, indexfile.ClassicInnerMagic); err != nil {
		return resourceErrorf("writing combined closing magic %s: %w", outPath, err)
	}
	return f.Sync()
}

// listSubIndexFiles returns the sub-index files in dir in a stable,
// deterministic order (sorted by name), so repeated runs over the same
// intermediate directory combine files in the same order.
func listSubIndexFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, resourceErrorf("listing %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(names)
	return names, nil
}

// combineAll repeatedly combines the sub-indexes in iterDir's current
// generation directory into the next generation, grouping by memBudget,
// until one file remains, then returns its path. Each generation lives
// in its own numbered directory (0000001, 0000002, ...) so a crash mid
// combine leaves the prior generation intact and combinable again.
func combineAll(iterDir string, memBudget int64) (string, error) {
	gen := 1
	curDir := filepath.Join(iterDir, fmt.Sprintf("%07d", gen))

	for {
		names, err := listSubIndexFiles(curDir)
		if err != nil {
			return "", err
		}
		if len(names) == 0 {
			return "", resourceErrorf("combine generation %s has no sub-indexes", curDir)
		}
		if len(names) == 1 {
			return names[0], nil
		}

		opened := make([]*subIndexInfo, 0, len(names))
		for _, n := range names {
			s, err := openValidSubIndex(n)
			if err != nil {
				for _, o := range opened {
					o.close()
				}
				return "", err
			}
			opened = append(opened, s)
		}

		groups := combineGroups(opened, memBudget)
		nextDir := filepath.Join(iterDir, fmt.Sprintf("%07d", gen+1))
		if err := os.MkdirAll(nextDir, 0o755); err != nil {
			return "", resourceErrorf("creating combine directory %s: %w", nextDir, err)
		}
		for gi, group := range groups {
			outPath := filepath.Join(nextDir, fmt.Sprintf("combined_%04d.cobs_classic", gi))
			if err := combineGroup(group, outPath); err != nil {
				for _, o := range opened {
					o.close()
				}
				return "", err
			}
		}
		for _, o := range opened {
			o.close()
		}
		gen++
		curDir = nextDir
	}
}
