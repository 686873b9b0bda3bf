package popgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fastaText = `>chr1 Homo sapiens chromosome 1
ACTGACTGAC
TGACTG
>chr2
acgtNNacgt
`

func TestReadFasta(t *testing.T) {
	ref, err := ReadFasta(strings.NewReader(fastaText))
	require.NoError(t, err)
	require.Equal(t, 2, ref.ChromosomeCount())

	seq1, err := ref.Seq(1)
	require.NoError(t, err)
	assert.Equal(t, "ACTGACTGACTGACTG", seq1, "line breaks are joined")

	seq2, err := ref.Seq(2)
	require.NoError(t, err)
	assert.Equal(t, "ACGTNNACGT", seq2, "sequence text is uppercased")

	meta := ref.Metadata()
	require.Len(t, meta, 2)
	assert.Equal(t, "chr1", meta[0].SeqID, "description after the id is dropped")
	assert.Equal(t, int64(16), meta[0].SeqLen)
	assert.Equal(t, "chr2", meta[1].SeqID)
	assert.Equal(t, int64(10), meta[1].SeqLen)
	assert.Len(t, meta[0].SeqMD5, 32)
	assert.NotEqual(t, meta[0].SeqMD5, meta[1].SeqMD5)
}

func TestReadFasta_Deterministic(t *testing.T) {
	a, err := ReadFasta(strings.NewReader(fastaText))
	require.NoError(t, err)
	b, err := ReadFasta(strings.NewReader(fastaText))
	require.NoError(t, err)
	assert.Equal(t, a.Metadata(), b.Metadata(), "checksums are stable")
}

func TestReadFasta_Errors(t *testing.T) {
	_, err := ReadFasta(strings.NewReader("ACTG\n"))
	assert.Error(t, err, "sequence data before a header")

	_, err = ReadFasta(strings.NewReader(""))
	assert.Error(t, err, "no sequences")
}

func TestReference_SeqBounds(t *testing.T) {
	ref, err := ReadFasta(strings.NewReader(fastaText))
	require.NoError(t, err)

	_, err = ref.Seq(0)
	assert.Error(t, err)
	_, err = ref.Seq(3)
	assert.Error(t, err)
}
