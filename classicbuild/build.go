package classicbuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// Builder runs a classic index build end to end: batch the document
// list, populate and write one sub-index per batch, then hierarchically
// combine sub-indexes down to a single output file (§4.6).
type Builder struct {
	Params Params
}

// Build writes a complete classic index for docs to outputPath.
//
// m is derived once from the largest term count across the entire
// document list (not per batch), since every sub-index produced here
// must share one (m, h, k, canonicalize) to remain combinable by row
// concatenation (see DESIGN.md for why this isn't computed per batch).
func (b *Builder) Build(ctx context.Context, docs []Document, outputPath string) error {
	p := b.Params

	if _, err := os.Stat(outputPath); err == nil {
		if !p.Clobber && !p.Continue {
			return usageErrorf("output %s already exists (use Clobber or Continue)", outputPath)
		}
	}

	m := p.SigSizeFor(maxTermCount(docs))
	batchSize, err := BatchSize(p.MemBudget, m)
	if err != nil {
		return err
	}
	groups := batches(docs, batchSize)
	klog.Infof("classicbuild: %d documents, m=%d, batch size=%d, %d batches", len(docs), m, batchSize, len(groups))

	workDir, err := os.MkdirTemp(filepath.Dir(outputPath), ".cobs-build-*")
	if err != nil {
		return resourceErrorf("creating build work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	gen1 := filepath.Join(workDir, "0000001")
	if err := os.MkdirAll(gen1, 0o755); err != nil {
		return resourceErrorf("creating %s: %w", gen1, err)
	}

	bar := progressbar.Default(int64(len(groups)), "populating sub-indexes")
	for i, batch := range groups {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		subPath := filepath.Join(gen1, subIndexName(i))
		if p.Continue {
			if _, err := openValidSubIndex(subPath); err == nil {
				bar.Add(1)
				continue
			}
		}
		if err := writeSubIndex(ctx, subPath, p, m, batch); err != nil {
			return err
		}
		bar.Add(1)
	}

	klog.Infof("classicbuild: combining %d sub-indexes", len(groups))
	finalPath, err := combineAll(workDir, p.MemBudget)
	if err != nil {
		return err
	}

	if p.Clobber {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			return resourceErrorf("removing existing output %s: %w", outputPath, err)
		}
	}
	if err := os.Rename(finalPath, outputPath); err != nil {
		return resourceErrorf("renaming %s to %s: %w", finalPath, outputPath, err)
	}

	klog.Infof("classicbuild: wrote %s", outputPath)
	return nil
}

func subIndexName(i int) string {
	return fmt.Sprintf("sub%08d.cobs_classic", i)
}
