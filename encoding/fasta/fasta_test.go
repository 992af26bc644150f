package fasta_test

import (
	"strings"
	"testing"

	"github.com/arshajii/lava/encoding/fasta"
	"github.com/stretchr/testify/require"
)

func TestParsesMultipleSequencesInOrder(t *testing.T) {
	f, err := fasta.New(strings.NewReader(">chr7\nACGTAC\nGAGGAC\nGCG\n>chr8\nACGT\n"))
	require.NoError(t, err)

	require.Equal(t, []string{"chr7", "chr8"}, f.SeqNames())

	n, err := f.Len("chr7")
	require.NoError(t, err)
	require.Equal(t, uint64(15), n)

	s, err := f.Get("chr7", 0, 6)
	require.NoError(t, err)
	require.Equal(t, "ACGTAC", s)

	s, err = f.Get("chr8", 1, 4)
	require.NoError(t, err)
	require.Equal(t, "CGT", s)
}

func TestNameStopsAtFirstSpace(t *testing.T) {
	f, err := fasta.New(strings.NewReader(">chr1 a viral sequence\nACGT\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"chr1"}, f.SeqNames())
	n, err := f.Len("chr1")
	require.NoError(t, err)
	require.Equal(t, uint64(4), n)
}

func TestGetUnknownSequenceErrors(t *testing.T) {
	f, err := fasta.New(strings.NewReader(">chr1\nACGT\n"))
	require.NoError(t, err)
	_, err = f.Get("chr2", 0, 1)
	require.Error(t, err)
	_, err = f.Len("chr2")
	require.Error(t, err)
}

func TestGetRejectsOutOfRangeAndEmptyIntervals(t *testing.T) {
	f, err := fasta.New(strings.NewReader(">chr1\nACGT\n"))
	require.NoError(t, err)

	_, err = f.Get("chr1", 2, 2)
	require.Error(t, err, "end must be strictly greater than start")

	_, err = f.Get("chr1", 0, 5)
	require.Error(t, err, "end beyond the sequence length must error")
}

func TestSequenceWithNoNameErrors(t *testing.T) {
	_, err := fasta.New(strings.NewReader("ACGT\n"))
	require.Error(t, err)
}

func TestOptCleanMapsNonACGTToN(t *testing.T) {
	f, err := fasta.New(strings.NewReader(">chr1\nACGTRYKM\n"), fasta.OptClean)
	require.NoError(t, err)
	s, err := f.Get("chr1", 0, 8)
	require.NoError(t, err)
	require.Equal(t, "ACGTNNNN", s)
}

func TestWithoutOptCleanLeavesBytesUntouched(t *testing.T) {
	f, err := fasta.New(strings.NewReader(">chr1\nACGTRYKM\n"))
	require.NoError(t, err)
	s, err := f.Get("chr1", 0, 8)
	require.NoError(t, err)
	require.Equal(t, "ACGTRYKM", s)
}

func TestBlankLinesAreIgnored(t *testing.T) {
	f, err := fasta.New(strings.NewReader(">chr1\nACGT\n\nACGT\n"))
	require.NoError(t, err)
	n, err := f.Len("chr1")
	require.NoError(t, err)
	require.Equal(t, uint64(8), n)
}
