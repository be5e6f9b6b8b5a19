package indexfile

import (
	"bytes"
	"testing"
)

func TestClassicHeaderRoundTrip(t *testing.T) {
	h := &ClassicHeader{
		TermSize:  31,
		Canonical: true,
		SigSize:   1024,
		NumHashes: 3,
		NumFiles:  3,
		FileNames: []string{"doc_a.fasta", "doc_b.fasta", "doc_c.fasta"},
	}
	var buf bytes.Buffer
	if err := WriteClassicHeader(&buf, h); err != nil {
		t.Fatalf("WriteClassicHeader: %v", err)
	}

	payload := bytes.Repeat([]byte{0xAB}, int(h.PayloadSize()))
	buf.Write(payload)
	if err := WriteClosingMagic(&buf, ClassicInnerMagic); err != nil {
		t.Fatalf("WriteClosingMagic: %v", err)
	}

	raw := buf.Bytes()
	got, headerSize, err := ReadClassicHeader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadClassicHeader: %v", err)
	}
	if got.TermSize != h.TermSize || got.Canonical != h.Canonical ||
		got.SigSize != h.SigSize || got.NumHashes != h.NumHashes || got.NumFiles != h.NumFiles {
		t.Fatalf("round-tripped header mismatch: got %+v, want %+v", got, h)
	}
	for i, name := range h.FileNames {
		if got.FileNames[i] != name {
			t.Fatalf("FileNames[%d] = %q, want %q", i, got.FileNames[i], name)
		}
	}

	gotPayload := raw[headerSize : headerSize+int64(h.PayloadSize())]
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("headerSize %d does not point at the payload", headerSize)
	}

	closeOff := headerSize + int64(h.PayloadSize())
	if err := ReadClosingMagic(bytes.NewReader(raw[closeOff:]), ClassicInnerMagic); err != nil {
		t.Fatalf("ReadClosingMagic: %v", err)
	}
}

func TestClassicHeaderRejectsMismatchedFileNameCount(t *testing.T) {
	h := &ClassicHeader{NumFiles: 2, FileNames: []string{"only_one"}}
	var buf bytes.Buffer
	if err := WriteClassicHeader(&buf, h); err == nil {
		t.Fatal("expected error for mismatched FileNames length")
	}
}

func TestClassicHeaderRejectsBadOuterMagic(t *testing.T) {
	raw := append([]byte("XXXXXX\x01\x00\x00\x00"), make([]byte, fixedClassicPrefixSize)...)
	if _, _, err := ReadClassicHeader(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected error for bad outer magic")
	}
}

func TestCompactHeaderRoundTripAndPageAlignment(t *testing.T) {
	h := &CompactHeader{
		TermSize:  21,
		Canonical: false,
		PageSize:  16,
		NumFiles:  4,
		Params: []BlockParams{
			{SigSize: 200, NumHashes: 3},
			{SigSize: 400, NumHashes: 3},
		},
		FileNames: []string{"d1", "d2", "d3", "d4"},
	}
	var buf bytes.Buffer
	headerEnd, err := WriteCompactHeader(&buf, h)
	if err != nil {
		t.Fatalf("WriteCompactHeader: %v", err)
	}
	if headerEnd%int64(h.PageSize) != 0 {
		t.Fatalf("headerEnd %d not page-aligned to %d", headerEnd, h.PageSize)
	}
	if int64(buf.Len()) != headerEnd {
		t.Fatalf("buf.Len() = %d, want %d", buf.Len(), headerEnd)
	}

	payload := bytes.Repeat([]byte{0xCD}, int(h.TotalPayloadSize()))
	buf.Write(payload)
	if err := WriteClosingMagic(&buf, CompactInnerMagic); err != nil {
		t.Fatalf("WriteClosingMagic: %v", err)
	}

	raw := buf.Bytes()
	got, payloadOffset, err := ReadCompactHeader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadCompactHeader: %v", err)
	}
	if payloadOffset != headerEnd {
		t.Fatalf("payloadOffset = %d, want %d", payloadOffset, headerEnd)
	}
	if len(got.Params) != len(h.Params) {
		t.Fatalf("len(Params) = %d, want %d", len(got.Params), len(h.Params))
	}
	for i := range h.Params {
		if got.Params[i] != h.Params[i] {
			t.Fatalf("Params[%d] = %+v, want %+v", i, got.Params[i], h.Params[i])
		}
	}

	gotPayload := raw[payloadOffset : payloadOffset+int64(h.TotalPayloadSize())]
	if !bytes.Equal(gotPayload, payload) {
		t.Fatal("payloadOffset does not point at the payload")
	}
}

func TestReadClosingMagicDetectsTruncation(t *testing.T) {
	err := ReadClosingMagic(bytes.NewReader([]byte("CLASSIC_IND")), ClassicInnerMagic)
	if err == nil {
		t.Fatal("expected error for truncated closing magic")
	}
}

func TestRowSize(t *testing.T) {
	cases := map[uint64]uint64{0: 0, 1: 1, 8: 1, 9: 2}
	for w, want := range cases {
		if got := RowSize(w); got != want {
			t.Errorf("RowSize(%d) = %d, want %d", w, got, want)
		}
	}
}
