package cigar

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSingleLine(t *testing.T) {
	in := strings.NewReader("cigar: target 0 10 + query 0 10 + 42.5 M 8 D 2 I 2\n")

	alignments, err := Read(in)
	require.NoError(t, err)
	require.Len(t, alignments, 1)

	a := alignments[0]
	// The line stores the target segment first.
	assert.Equal(t, "query", a.Contig1)
	assert.Equal(t, 0, a.Start1)
	assert.Equal(t, 10, a.End1)
	assert.True(t, a.Strand1)
	assert.Equal(t, "target", a.Contig2)
	assert.Equal(t, 10, a.End2)
	assert.InDelta(t, 42.5, a.Score, 1e-9)

	require.Len(t, a.Ops, 3)
	assert.Equal(t, Operation{Type: Match, Length: 8}, a.Ops[0])
	assert.Equal(t, Operation{Type: IndelX, Length: 2}, a.Ops[1])
	assert.Equal(t, Operation{Type: IndelY, Length: 2}, a.Ops[2])
}

func TestReadSkipsNonCigarLines(t *testing.T) {
	in := strings.NewReader("# header\ncigar: t 0 1 + q 0 1 + 5.0 M 1\nnoise\n")

	alignments, err := Read(in)
	require.NoError(t, err)
	assert.Len(t, alignments, 1)
}

func TestReadRejectsMalformedOperations(t *testing.T) {
	_, err := Read(strings.NewReader("cigar: t 0 1 + q 0 1 + 5.0 Q 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operation")
}

func TestNewAlignmentValidatesSegments(t *testing.T) {
	// Forward strand segments must run start to end.
	_, err := NewAlignment("q", 10, 5, true, "t", 0, 5, true, 0, []Operation{{Type: Match, Length: 5}})
	require.Error(t, err)

	// Reverse strand segments run end to start.
	_, err = NewAlignment("q", 10, 5, false, "t", 0, 5, true, 0, []Operation{{Type: Match, Length: 5}})
	require.NoError(t, err)
}

func TestNewAlignmentValidatesOperationCoverage(t *testing.T) {
	ops := []Operation{{Type: Match, Length: 4}}
	_, err := NewAlignment("q", 0, 5, true, "t", 0, 4, true, 0, ops)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")

	_, err = NewAlignment("q", 0, 4, true, "t", 0, 5, true, 0, ops)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target")

	_, err = NewAlignment("q", 0, 4, true, "t", 0, 4, true, 0, ops)
	require.NoError(t, err)
}

func TestWriteRoundTripWithoutScores(t *testing.T) {
	ops := []Operation{
		{Type: Match, Length: 6},
		{Type: IndelY, Length: 3},
		{Type: Match, Length: 2},
	}
	a, err := NewAlignment("q", 0, 8, true, "t", 20, 9, false, -17, ops)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, a, false))
	assert.True(t, strings.HasPrefix(buf.String(), "cigar: t 20 9 - q 0 8 +"))

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a, got[0])
}

func TestWriteRoundTripWithScores(t *testing.T) {
	ops := []Operation{
		{Type: Match, Length: 5, Score: 0.5},
		{Type: IndelX, Length: 2, Score: 0.25},
	}
	a, err := NewAlignment("q", 0, 7, true, "t", 0, 5, true, 100, ops)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, a, true))

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a, got[0])
}

func TestRandomAlignmentRoundTrip(t *testing.T) {
	for i := 0; i < 10; i++ {
		a := RandomAlignment()

		var buf bytes.Buffer
		require.NoError(t, Write(&buf, a, false))

		got, err := Read(&buf)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, a.Contig1, got[0].Contig1)
		assert.Equal(t, a.Start1, got[0].Start1)
		assert.Equal(t, a.End1, got[0].End1)
		assert.Equal(t, a.Strand2, got[0].Strand2)
		assert.Len(t, got[0].Ops, len(a.Ops))
	}
}
