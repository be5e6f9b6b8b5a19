package docsource

import (
	"encoding/json"
	"os"
)

// sidecarSuffix names the advisory per-input cache file (§3.6); its
// deletion must not change correctness, only repeated num_terms cost.
const sidecarSuffix = ".cobscache"

// sidecar is the FASTA/FASTQ index cache: per-record sequence lengths, so
// num_terms(k) can be recomputed for any k without rescanning the file,
// plus the (size, mtime) pair that invalidates it when the input changes.
type sidecar struct {
	Size          int64 `json:"size"`
	ModTimeUnix   int64 `json:"mod_time_unix_nano"`
	RecordLengths []int `json:"record_lengths"`
}

func sidecarPath(path string) string {
	return path + sidecarSuffix
}

func loadSidecar(path string) (*sidecar, error) {
	data, err := os.ReadFile(sidecarPath(path))
	if err != nil {
		return nil, err
	}
	var c sidecar
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *sidecar) matchesStat(fi os.FileInfo) bool {
	return c != nil && c.Size == fi.Size() && c.ModTimeUnix == fi.ModTime().UnixNano()
}

func writeSidecar(path string, c *sidecar) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(sidecarPath(path), data, 0o644)
}

// readValidSidecar returns the cached record lengths for path if present
// and not stale, or nil if the cache is absent, disabled, or out of date.
func readValidSidecar(path string, disabled bool) *sidecar {
	if disabled {
		return nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil
	}
	c, err := loadSidecar(path)
	if err != nil || !c.matchesStat(fi) {
		return nil
	}
	return c
}

func buildSidecar(path string, lengths []int) (*sidecar, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &sidecar{
		Size:          fi.Size(),
		ModTimeUnix:   fi.ModTime().UnixNano(),
		RecordLengths: lengths,
	}, nil
}
