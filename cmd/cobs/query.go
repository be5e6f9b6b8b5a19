package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/bingmann/cobs-sub000/env"
	"github.com/bingmann/cobs-sub000/query"
	"github.com/bingmann/cobs-sub000/searchfile"
)

func newQueryCmd() *cli.Command {
	return &cli.Command{
		Name:        "query",
		Usage:       "query an index for documents containing a sequence",
		Description: "Search a classic or compact COBS index for documents that share enough k-mers with the given query sequence.",
		ArgsUsage:   "<index-path> <query-sequence-or-@file>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "k", Usage: "k-mer term length", Value: 31},
			&cli.BoolFlag{Name: "canonicalize", Usage: "canonicalize terms to their lexicographically smaller strand", Value: true},
			&cli.Float64Flag{Name: "theta", Usage: "minimum fraction of query k-mers a document must match", Value: 0.33},
			&cli.IntFlag{Name: "top-n", Usage: "maximum number of hits to return; 0 returns every hit above threshold"},
			&cli.IntFlag{Name: "threads", Usage: "worker goroutines; 0 means GOMAXPROCS"},
			&cli.BoolFlag{Name: "load-complete", Usage: "read the whole index into memory instead of mmap'ing it"},
		},
		Action: func(c *cli.Context) error {
			args := c.Args()
			if args.Len() != 2 {
				return cli.Exit("expected exactly an index path and a query sequence", 1)
			}
			indexPath := args.Get(0)
			q, err := readQuery(args.Get(1))
			if err != nil {
				return cli.Exit(err, 1)
			}

			e := env.Environment{LoadCompleteIndex: c.Bool("load-complete")}
			backend, err := openIndex(e, indexPath)
			if err != nil {
				return cli.Exit(err, 1)
			}
			defer backend.Close()

			p := query.Params{
				K:            c.Int("k"),
				Canonicalize: c.Bool("canonicalize"),
				Theta:        c.Float64("theta"),
				TopN:         c.Int("top-n"),
				Threads:      c.Int("threads"),
			}
			hits, err := query.Run(c.Context, backend, q, p)
			if err != nil {
				return cli.Exit(err, 1)
			}

			klog.V(1).Infof("query matched %d documents", len(hits))
			for _, h := range hits {
				fmt.Printf("%d\t%s\t%d\n", h.Score, h.Name, h.GlobalColumn)
			}
			return nil
		},
	}
}

// readQuery reads a literal sequence, or the contents of a file if arg
// starts with '@' (the same convention curl and several BLAST-family
// tools use for "read this argument from a file").
func readQuery(arg string) ([]byte, error) {
	if !strings.HasPrefix(arg, "@") {
		return []byte(strings.ToUpper(arg)), nil
	}
	data, err := os.ReadFile(arg[1:])
	if err != nil {
		return nil, err
	}
	return []byte(strings.ToUpper(strings.TrimSpace(string(data)))), nil
}

// openIndex dispatches on the index file's extension: §6.3 fixes
// ".cobs_classic" and ".cobs_compact" as the two on-disk formats'
// conventional suffixes.
func openIndex(e env.Environment, path string) (searchfile.Backend, error) {
	switch {
	case strings.HasSuffix(path, ".cobs_compact"):
		return e.OpenCompact(path)
	default:
		return e.OpenClassic(path)
	}
}
