package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bingmann/cobs-sub000/kmer"
)

func TestTermsSlidesFullWindow(t *testing.T) {
	terms, err := Terms([]byte("ACGTACGT"), 3, false)
	require.NoError(t, err)
	want := []string{"ACG", "CGT", "GTA", "TAC", "ACG", "CGT"}
	require.Len(t, terms, len(want))
	for i, w := range want {
		require.Equal(t, w, string(terms[i]), "term %d", i)
	}
}

func TestTermsCanonicalizesEachWindow(t *testing.T) {
	terms, err := Terms([]byte("TTTT"), 4, true)
	require.NoError(t, err)
	require.Equal(t, "AAAA", string(terms[0]))
}

func TestTermsRejectsEmptyQueryShorterThanK(t *testing.T) {
	_, err := Terms(nil, 4, false)
	require.Error(t, err)
}

func TestTermsRejectsOversizedQuery(t *testing.T) {
	q := make([]byte, 4+1<<16)
	for i := range q {
		q[i] = 'A'
	}
	_, err := Terms(q, 4, false)
	require.Error(t, err)
}

func TestTermsReportsOffendingOffset(t *testing.T) {
	_, err := Terms([]byte("ACGXACGT"), 4, true)
	var ie *InputError
	require.ErrorAs(t, err, &ie)
	require.Error(t, ie.Err)
	var invalid *kmer.ErrInvalidBase
	require.ErrorAs(t, ie.Err, &invalid)
	require.Equal(t, 3, invalid.Offset)
}

func TestTermsUncanonicalizedAcceptsAnyByte(t *testing.T) {
	terms, err := Terms([]byte("ACGXACGT"), 4, false)
	require.NoError(t, err)
	require.Equal(t, "ACGX", string(terms[0]))
}
