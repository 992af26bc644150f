package voter_test

import (
	"testing"

	"github.com/arshajii/lava/voter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyTable(t *testing.T) {
	tbl := voter.New()
	_, _, ok := tbl.Best()
	assert.False(t, ok)
	assert.False(t, tbl.ProcessRead())
}

func TestUniqueMax(t *testing.T) {
	tbl := voter.New()
	tbl.Add(10)
	tbl.Add(10)
	tbl.Add(20)
	idx, freq, ok := tbl.Best()
	require.True(t, ok)
	assert.Equal(t, uint32(10), idx)
	assert.Equal(t, byte(2), freq)
	assert.False(t, tbl.Ambiguous())
	assert.True(t, tbl.ProcessRead())
}

func TestTieSetsAmbiguous(t *testing.T) {
	tbl := voter.New()
	tbl.Add(10)
	tbl.Add(20)
	assert.True(t, tbl.Ambiguous())
	assert.False(t, tbl.ProcessRead())
}

func TestReAddingBestClearsAmbiguous(t *testing.T) {
	tbl := voter.New()
	tbl.Add(10)
	tbl.Add(20) // tie -> ambiguous
	require.True(t, tbl.Ambiguous())
	tbl.Add(10) // 10 now leads uniquely
	assert.False(t, tbl.Ambiguous())
	idx, freq, ok := tbl.Best()
	require.True(t, ok)
	assert.Equal(t, uint32(10), idx)
	assert.Equal(t, byte(2), freq)
}

func TestFreqOneIsNotProcessed(t *testing.T) {
	tbl := voter.New()
	tbl.Add(10)
	assert.True(t, tbl.ProcessRead() == false)
}

func TestClearIndexRestoresEmpty(t *testing.T) {
	tbl := voter.New()
	tbl.Add(10)
	tbl.Add(10)
	tbl.ClearIndex(10)
	tbl.Reset()
	_, _, ok := tbl.Best()
	assert.False(t, ok)
	// Re-adding the same index behaves as if the table were freshly made.
	tbl.Add(10)
	_, freq, ok := tbl.Best()
	require.True(t, ok)
	assert.Equal(t, byte(1), freq)
}

func TestClearIndexOnlyTouchesThatSlot(t *testing.T) {
	tbl := voter.New()
	a, b := uint32(1), uint32(1+voter.SlotCount) // same slot, different index
	tbl.Add(a)
	tbl.Add(b)
	assert.True(t, tbl.Ambiguous())
	tbl.ClearIndex(a) // clears the whole shared slot, including b
	tbl.Reset()
	tbl.Add(b)
	_, freq, ok := tbl.Best()
	require.True(t, ok)
	assert.Equal(t, byte(1), freq)
}
