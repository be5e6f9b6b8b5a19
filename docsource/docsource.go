// Package docsource is the uniform lazy term producer over the
// heterogeneous DNA input formats COBS indexes: raw text, FASTA, FASTA
// multi-document, FASTQ, McCortex .ctx k-mer lists, and the builder's own
// packed k-mer dumps. Every producer satisfies Source, the same
// num_terms/process_terms split readahead's byte stream producer uses
// (one cheap size estimate, one lazy streaming pass).
package docsource

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Type identifies an input file format.
type Type int

const (
	// TypeAny dispatches by file extension instead of naming a format.
	TypeAny Type = iota
	TypeText
	TypeFASTA
	TypeFASTAMulti
	TypeFASTQ
	TypeCortex
	TypePacked
)

func (t Type) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeFASTA:
		return "fasta"
	case TypeFASTAMulti:
		return "fasta_multi"
	case TypeFASTQ:
		return "fastq"
	case TypeCortex:
		return "cortex"
	case TypePacked:
		return "packed"
	default:
		return "any"
	}
}

// extensionTypes implements §6.4's file-type filter.
var extensionTypes = map[string]Type{
	".txt":    TypeText,
	".ctx":    TypeCortex,
	".fasta":  TypeFASTA,
	".fna":    TypeFASTA,
	".fa":     TypeFASTA,
	".fastq":  TypeFASTQ,
	".fq":     TypeFASTQ,
	".mfasta": TypeFASTAMulti,
}

// InputError reports a problem with a document's input: a malformed input
// file for its declared format, or a query/term that fails a format
// precondition.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("docsource: %v", e.Err)
	}
	return fmt.Sprintf("docsource: %s: %v", e.Path, e.Err)
}
func (e *InputError) Unwrap() error { return e.Err }

// DetectType maps path's extension to the input format it names, per
// §6.4. An unrecognized extension is reported as an InputError.
func DetectType(path string) (Type, error) {
	ext := strings.ToLower(filepath.Ext(path))
	t, ok := extensionTypes[ext]
	if !ok {
		return 0, &InputError{Path: path, Err: fmt.Errorf("unrecognized extension %q", ext)}
	}
	return t, nil
}

// DocumentEntry identifies one logical document: a file, optionally one
// sub-document within it (FASTA multi), and the term size it was scanned
// with (§3.2).
type DocumentEntry struct {
	Path        string
	Type        Type
	Name        string
	SizeBytes   int64
	SubdocIndex int // -1 unless Type == TypeFASTAMulti
	TermSize    int
	TermCount   uint64
}

// Source is a polymorphic term producer (§4.3). NumTerms returns an exact
// or cached estimate of the number of k-long terms process_terms would
// yield for the given k; ProcessTerms yields that lazy, finite,
// non-restartable sequence, invoking fn once per term until fn returns an
// error, ctx is canceled, or the source is exhausted.
type Source interface {
	NumTerms(ctx context.Context, k int) (uint64, error)
	ProcessTerms(ctx context.Context, k int, fn func(term []byte) error) error
}

// Open returns the Source appropriate for entry.Type.
func Open(entry DocumentEntry, opts Options) (Source, error) {
	switch entry.Type {
	case TypeText:
		return &textSource{entry: entry}, nil
	case TypeFASTA, TypeFASTQ:
		return &fastxSource{entry: entry, opts: opts, subdocIndex: -1}, nil
	case TypeFASTAMulti:
		return &fastxSource{entry: entry, opts: opts, subdocIndex: entry.SubdocIndex}, nil
	case TypeCortex:
		return &cortexSource{entry: entry}, nil
	case TypePacked:
		return &packedSource{entry: entry}, nil
	case TypeAny:
		t, err := DetectType(entry.Path)
		if err != nil {
			return nil, err
		}
		entry.Type = t
		return Open(entry, opts)
	default:
		return nil, &InputError{Path: entry.Path, Err: fmt.Errorf("unsupported document type %v", entry.Type)}
	}
}

// Options carries the process-level flags that affect document sources
// (the FASTA/FASTQ sidecar cache), mirroring env.Environment without
// docsource needing to import it.
type Options struct {
	DisableCache bool
}
