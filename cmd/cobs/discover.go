package main

import (
	"context"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/bingmann/cobs-sub000/classicbuild"
	"github.com/bingmann/cobs-sub000/docsource"
)

// discoverDocuments walks paths (files or directories), opening every
// file whose extension docsource.DetectType recognizes (§6.4's file-type
// filter; unrecognized extensions are skipped rather than rejected, a
// best-effort scan over a directory tree) and running one NumTerms pass
// up front so every classicbuild.Document it returns already knows its
// term count, which classicbuild's batch sizing and compactbuild's
// bucket sort both need before they can run.
//
// FASTA-multi files (one file, many records) are out of scope here: each
// walked file becomes exactly one document. Indexing the individual
// records of a multi-FASTA file requires enumerating docsource.Options,
// DocumentEntry.SubdocIndex values ahead of time, which this CLI does
// not do.
func discoverDocuments(ctx context.Context, paths []string, k int, opts docsource.Options) ([]classicbuild.Document, error) {
	var files []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.Walk(p, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var docs []classicbuild.Document
	for _, f := range files {
		typ, err := docsource.DetectType(f)
		if err != nil {
			klog.V(2).Infof("skipping %s: %v", f, err)
			continue
		}
		fi, err := os.Stat(f)
		if err != nil {
			return nil, err
		}
		entry := docsource.DocumentEntry{
			Path:        f,
			Type:        typ,
			Name:        filepath.Base(f),
			SizeBytes:   fi.Size(),
			SubdocIndex: -1,
			TermSize:    k,
		}
		src, err := docsource.Open(entry, opts)
		if err != nil {
			return nil, err
		}
		n, err := src.NumTerms(ctx, k)
		if err != nil {
			return nil, err
		}
		entry.TermCount = n
		docs = append(docs, classicbuild.Document{Entry: entry, Source: src})
	}
	return docs, nil
}
