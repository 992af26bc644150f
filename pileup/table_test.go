package pileup_test

import (
	"testing"

	"github.com/arshajii/lava/pileup"
	"github.com/stretchr/testify/assert"
)

func TestBlankAndSetSNP(t *testing.T) {
	tbl := pileup.NewTable(10)
	assert.True(t, tbl.Blank(5))
	tbl.SetSNP(5, pileup.BaseA, pileup.BaseG, 250, 5)
	assert.False(t, tbl.Blank(5))
	e := tbl.Get(5)
	assert.True(t, e.IsSNP())
	assert.Equal(t, byte(pileup.BaseA), e.Ref)
	assert.Equal(t, byte(pileup.BaseG), e.Alt)
}

func TestUpdateSaturates(t *testing.T) {
	tbl := pileup.NewTable(10)
	tbl.SetSNP(3, pileup.BaseA, pileup.BaseG, 250, 5)
	for i := 0; i < pileup.MaxCov+10; i++ {
		tbl.Update(3, pileup.BaseA)
	}
	assert.Equal(t, byte(pileup.MaxCov), tbl.Get(3).RefCnt)
	tbl.Update(3, pileup.BaseT) // neither ref nor alt: no-op
	assert.Equal(t, byte(pileup.MaxCov), tbl.Get(3).RefCnt)
	assert.Equal(t, byte(0), tbl.Get(3).AltCnt)
}

func TestUpdateNonSNPNoOp(t *testing.T) {
	tbl := pileup.NewTable(10)
	tbl.Update(7, pileup.BaseA)
	assert.Equal(t, byte(0), tbl.Get(7).RefCnt)
}

func TestGrow(t *testing.T) {
	tbl := pileup.NewTable(2)
	tbl.SetSNP(8, pileup.BaseC, pileup.BaseT, 100, 155)
	assert.True(t, tbl.Len() >= 8)
	assert.False(t, tbl.Blank(8))
}
