package main

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/bingmann/cobs-sub000/classicbuild"
	"github.com/bingmann/cobs-sub000/compactbuild"
	"github.com/bingmann/cobs-sub000/docsource"
)

// logWrittenIndex reports the output path's size the way car-walk-blocks
// and index-slot-to-cid report byte/item counts, via humanize.Bytes,
// falling back to a bare path on a stat failure rather than hiding the
// success message.
func logWrittenIndex(path string) {
	fi, err := os.Stat(path)
	if err != nil {
		klog.Infof("wrote %s", path)
		return
	}
	klog.Infof("wrote %s (%s)", path, humanize.Bytes(uint64(fi.Size())))
}

func newBuildCmd() *cli.Command {
	return &cli.Command{
		Name:        "build",
		Description: "Build a COBS index from a set of input files or directories.",
		Subcommands: []*cli.Command{
			newBuildClassicCmd(),
			newBuildCompactCmd(),
		},
	}
}

var buildFlags = []cli.Flag{
	&cli.IntFlag{Name: "k", Usage: "k-mer term length", Value: 31},
	&cli.BoolFlag{Name: "canonicalize", Usage: "canonicalize terms to their lexicographically smaller strand", Value: true},
	&cli.Uint64Flag{Name: "num-hashes", Usage: "number of hash functions per term", Value: 3},
	&cli.Float64Flag{Name: "fpr", Usage: "target single-term false positive rate (used when sig-size is 0)", Value: 0.01},
	&cli.Int64Flag{Name: "mem-budget", Usage: "memory budget in bytes for one build batch", Value: 1 << 30},
	&cli.IntFlag{Name: "threads", Usage: "accepted but not used: bitmap population always runs GOMAXPROCS workers"},
	&cli.BoolFlag{Name: "clobber", Usage: "overwrite an existing output file"},
	&cli.BoolFlag{Name: "continue", Usage: "allow an existing output; each build starts in a fresh temporary work directory, so sub-indexes from an earlier run are not reused"},
	&cli.Uint64Flag{Name: "min-term-frequency", Usage: "drop terms occurring fewer than this many times within a document", Value: 1},
	&cli.BoolFlag{Name: "disable-cache", Usage: "do not read or write the FASTA/FASTQ length sidecar cache"},
	&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output index path", Required: true},
}

func newBuildClassicCmd() *cli.Command {
	var sigSize uint64
	flags := append([]cli.Flag{
		&cli.Uint64Flag{Name: "sig-size", Usage: "signature size m; 0 derives it from fpr and the largest document's term count", Destination: &sigSize},
	}, buildFlags...)

	return &cli.Command{
		Name:        "classic",
		Usage:       "build a classic (single-file, single-block) index",
		ArgsUsage:   "<path>...",
		Flags:       flags,
		Action: func(c *cli.Context) error {
			paths := c.Args().Slice()
			if len(paths) == 0 {
				return cli.Exit("at least one input path is required", 1)
			}
			k := c.Int("k")
			opts := docsource.Options{DisableCache: c.Bool("disable-cache")}

			docs, err := discoverDocuments(c.Context, paths, k, opts)
			if err != nil {
				return cli.Exit(err, 1)
			}
			if len(docs) == 0 {
				return cli.Exit("no recognized input files found", 1)
			}
			klog.Infof("build classic: %s documents discovered", humanize.Comma(int64(len(docs))))

			p := classicbuild.Params{
				K:                k,
				Canonicalize:     c.Bool("canonicalize"),
				NumHashes:        c.Uint64("num-hashes"),
				FPR:              c.Float64("fpr"),
				SigSize:          sigSize,
				MemBudget:        c.Int64("mem-budget"),
				Threads:          c.Int("threads"),
				Clobber:          c.Bool("clobber"),
				Continue:         c.Bool("continue"),
				MinTermFrequency: c.Uint64("min-term-frequency"),
			}
			b := &classicbuild.Builder{Params: p}
			if err := b.Build(c.Context, docs, c.String("output")); err != nil {
				return cli.Exit(err, 1)
			}
			logWrittenIndex(c.String("output"))
			return nil
		},
	}
}

func newBuildCompactCmd() *cli.Command {
	flags := append([]cli.Flag{
		&cli.Uint64Flag{Name: "page-size", Usage: "compact page size g in bytes", Value: 4096},
	}, buildFlags...)

	return &cli.Command{
		Name:        "compact",
		Usage:       "build a compact (multi-block, page-aligned) index",
		ArgsUsage:   "<path>...",
		Flags:       flags,
		Action: func(c *cli.Context) error {
			paths := c.Args().Slice()
			if len(paths) == 0 {
				return cli.Exit("at least one input path is required", 1)
			}
			k := c.Int("k")
			opts := docsource.Options{DisableCache: c.Bool("disable-cache")}

			docs, err := discoverDocuments(c.Context, paths, k, opts)
			if err != nil {
				return cli.Exit(err, 1)
			}
			if len(docs) == 0 {
				return cli.Exit("no recognized input files found", 1)
			}
			klog.Infof("build compact: %s documents discovered", humanize.Comma(int64(len(docs))))

			p := compactbuild.Params{
				K:                k,
				Canonicalize:     c.Bool("canonicalize"),
				NumHashes:        c.Uint64("num-hashes"),
				FPR:              c.Float64("fpr"),
				PageSize:         c.Uint64("page-size"),
				MemBudget:        c.Int64("mem-budget"),
				Threads:          c.Int("threads"),
				Clobber:          c.Bool("clobber"),
				Continue:         c.Bool("continue"),
				MinTermFrequency: c.Uint64("min-term-frequency"),
			}
			b := &compactbuild.Builder{Params: p}
			if err := b.Build(c.Context, docs, c.String("output")); err != nil {
				return cli.Exit(err, 1)
			}
			logWrittenIndex(c.String("output"))
			return nil
		},
	}
}
