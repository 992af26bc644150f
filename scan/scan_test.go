package scan_test

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/arshajii/lava/dict"
	"github.com/arshajii/lava/encoding/fasta"
	"github.com/arshajii/lava/diag"
	"github.com/arshajii/lava/genotype"
	"github.com/arshajii/lava/kmer"
	"github.com/arshajii/lava/pileup"
	"github.com/arshajii/lava/scan"
	"github.com/arshajii/lava/snpcatalog"
	"github.com/stretchr/testify/require"
)

var baseLetters = []byte{'A', 'C', 'G', 'T'}

func randSeq(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	seq := make([]byte, n)
	for i := range seq {
		seq[i] = baseLetters[rng.Intn(4)]
	}
	return seq
}

func otherBase(b byte) byte {
	for _, c := range baseLetters {
		if c != b {
			return c
		}
	}
	panic("unreachable")
}

func buildFasta(t *testing.T, chrom string, seq []byte) fasta.Fasta {
	t.Helper()
	f, err := fasta.New(strings.NewReader(fmt.Sprintf(">%s\n%s\n", chrom, string(seq))))
	require.NoError(t, err)
	return f
}

// fixture bundles a built reference + dictionaries + pileup table for tests
// that need a full ref/snp dict pair.
type fixture struct {
	seq     []byte
	refDict *dict.RefDict
	snpDict *dict.SnpDict
	table   *pileup.Table
	locus   snpcatalog.Locus // zero value if no SNP was requested
}

func buildFixture(t *testing.T, n int, seed int64, snpPos1Based int) *fixture {
	t.Helper()
	seq := randSeq(n, seed)
	f := buildFasta(t, "chr1", seq)

	refRecords, refAux, err := dict.BuildRefDict(f)
	require.NoError(t, err)
	refDict := dict.NewRefDict(refRecords, refAux)

	var loci []snpcatalog.Locus
	var locus snpcatalog.Locus
	if snpPos1Based > 0 {
		refBase := seq[snpPos1Based-1]
		locus = snpcatalog.Locus{
			Chrom: "chr1", Pos: uint64(snpPos1Based),
			Ref: refBase, Alt: otherBase(refBase),
			RefFreq: 0.9, AltFreq: 0.1,
		}
		loci = append(loci, locus)
	}
	snpRecords, snpAux, err := dict.BuildSnpDict(f, loci)
	require.NoError(t, err)
	snpDict := dict.NewSnpDict(snpRecords, snpAux)

	table := pileup.NewTable(n + 40)
	dict.PopulatePileup(table, snpDict)

	return &fixture{seq: seq, refDict: refDict, snpDict: snpDict, table: table, locus: locus}
}

func (fx *fixture) newSession() *scan.Session {
	return scan.NewSession(fx.refDict, fx.snpDict, fx.table, &diag.Counters{})
}

func TestUniquePlacementHomozygousRef(t *testing.T) {
	const n, snpPos = 2000, 1000
	fx := buildFixture(t, n, 1, snpPos)
	s := fx.newSession()

	readStart := snpPos - 40 // 0-based
	read := append([]byte(nil), fx.seq[readStart:readStart+64]...)

	require.True(t, s.ProcessRead(read))

	e := fx.table.Get(uint32(snpPos))
	require.True(t, e.IsSNP())
	require.Equal(t, byte(1), e.RefCnt)
	require.Equal(t, byte(0), e.AltCnt)

	res := genotype.Call(int(e.RefCnt), int(e.AltCnt), e.RefFreq, e.AltFreq)
	require.Equal(t, genotype.Ref, res.Genotype)
	require.Greater(t, res.Confidence, 0.5)
}

func TestHeterozygousCall(t *testing.T) {
	const n, snpPos = 2000, 1000
	fx := buildFixture(t, n, 2, snpPos)
	s := fx.newSession()

	readStart := snpPos - 40 // 0-based; SNP falls in the read's second 32-mer
	window2Start := readStart + 32
	posInKmer := (snpPos - 1) - window2Start

	refRead := append([]byte(nil), fx.seq[readStart:readStart+64]...)
	altRead := append([]byte(nil), refRead...)
	altRead[32+posInKmer] = fx.locus.Alt

	for i := 0; i < 10; i++ {
		require.True(t, s.ProcessRead(append([]byte(nil), refRead...)))
	}
	for i := 0; i < 10; i++ {
		require.True(t, s.ProcessRead(append([]byte(nil), altRead...)))
	}

	e := fx.table.Get(uint32(snpPos))
	require.Equal(t, byte(10), e.RefCnt)
	require.Equal(t, byte(10), e.AltCnt)

	res := genotype.Call(int(e.RefCnt), int(e.AltCnt), e.RefFreq, e.AltFreq)
	require.Equal(t, genotype.Het, res.Genotype)
}

func TestReverseComplementRetry(t *testing.T) {
	const n = 2000
	fx := buildFixture(t, n, 3, 0)
	s := fx.newSession()

	slice := fx.seq[100:164]
	rc := kmer.ReverseComplement(slice)

	require.True(t, s.ProcessRead(rc))
}

func TestHammingOneRescue(t *testing.T) {
	const n = 2000
	fx := buildFixture(t, n, 4, 0)
	s := fx.newSession()

	readStart := 300
	read := append([]byte(nil), fx.seq[readStart:readStart+64]...)
	// Flip one base inside the first 32-mer; this region carries no SNP, so
	// the ref-dict neighbor's pileup-blank guard passes.
	read[5] = otherBase(read[5])

	require.True(t, s.ProcessRead(read))
}

func TestAmbiguousKmerViaAux(t *testing.T) {
	const n = 3000
	seq := randSeq(n, 5)

	pattern := randSeq(kmer.Len, 99)
	const a1, a2 = 500, 1500
	copy(seq[a1:a1+kmer.Len], pattern)
	copy(seq[a2:a2+kmer.Len], pattern)

	f := buildFasta(t, "chr1", seq)
	refRecords, refAux, err := dict.BuildRefDict(f)
	require.NoError(t, err)
	refDict := dict.NewRefDict(refRecords, refAux)
	snpDict := dict.NewSnpDict(nil, nil)
	table := pileup.NewTable(n + 40)

	s := scan.NewSession(refDict, snpDict, table, nil)

	read := make([]byte, 64)
	copy(read[:kmer.Len], pattern)
	copy(read[kmer.Len:], seq[a1+kmer.Len:a1+2*kmer.Len])

	require.True(t, s.ProcessRead(read))
}

// TestNeighborHitRecordsDictionaryBaseAtOtherSnpInWindow exercises a
// multi-SNP 32-mer window: a read carries a sequencing error at one known
// SNP locus (locus1) while correctly reporting the alt allele at a second
// locus (locus2) ten bases away in the same window. The SNP-dictionary
// entry actually matched is built around locus2 and only differs from the
// observed k-mer at locus1's offset, so the hit is found through the
// Hamming-1 neighbor path, not a direct match. The neighbor (not the
// erroneous observed k-mer) must be the one replayed into the pileup, so
// locus1 ends up with the dictionary's corrected base, not the read's
// sequencing error.
func TestNeighborHitRecordsDictionaryBaseAtOtherSnpInWindow(t *testing.T) {
	const n = 2000
	seq := randSeq(n, 11)

	const snpPos1, snpPos2 = 1000, 1010 // 1-based, 10 bases apart
	refBase1 := seq[snpPos1-1]
	altBase1 := otherBase(refBase1)
	refBase2 := seq[snpPos2-1]
	altBase2 := otherBase(refBase2)

	loci := []snpcatalog.Locus{
		{Chrom: "chr1", Pos: snpPos1, Ref: refBase1, Alt: altBase1, RefFreq: 0.9, AltFreq: 0.1},
		{Chrom: "chr1", Pos: snpPos2, Ref: refBase2, Alt: altBase2, RefFreq: 0.9, AltFreq: 0.1},
	}

	f := buildFasta(t, "chr1", seq)
	refRecords, refAux, err := dict.BuildRefDict(f)
	require.NoError(t, err)
	refDict := dict.NewRefDict(refRecords, refAux)

	snpRecords, snpAux, err := dict.BuildSnpDict(f, loci)
	require.NoError(t, err)
	snpDict := dict.NewSnpDict(snpRecords, snpAux)

	table := pileup.NewTable(n + 40)
	dict.PopulatePileup(table, snpDict)

	s := scan.NewSession(refDict, snpDict, table, &diag.Counters{})

	const ws = 994 // 0-based window start; locus1 at offset 5, locus2 at offset 15
	window1 := append([]byte(nil), seq[ws:ws+kmer.Len]...)
	window1[15] = altBase2 // locus2's own dictionary substitution

	var errBase byte
	for _, c := range baseLetters {
		if c != refBase1 && c != altBase1 {
			errBase = c
			break
		}
	}
	window1[5] = errBase // sequencing error at locus1, distinct from both its alleles

	read := make([]byte, 64)
	copy(read[:32], window1)
	copy(read[32:], seq[ws+32:ws+64]) // unmodified, direct ref hit for the quorum vote

	require.True(t, s.ProcessRead(read))

	e2 := table.Get(uint32(snpPos2))
	require.Equal(t, byte(1), e2.AltCnt, "locus2's own alt substitution is recorded directly")

	e1 := table.Get(uint32(snpPos1))
	require.Equal(t, byte(1), e1.RefCnt,
		"the neighbor hit must replay the dictionary's corrected base at locus1, not the erroneous observed base")
	require.Equal(t, byte(0), e1.AltCnt)
}

// TestExactSnpHitCountsOnce exercises the direct (non-neighbor) SNP-dict
// hit path: a read that exactly matches a SNP-dictionary k-mer should
// register one alt vote, not be short-circuited by the neighbor guard
// (which only applies to neighbor-discovered hits; see
// TestSnpNeighborGuardSuppressesSamePositionVote for that path).
func TestExactSnpHitCountsOnce(t *testing.T) {
	const n, snpPos = 2000, 1000
	fx := buildFixture(t, n, 6, snpPos)
	s := fx.newSession()

	readStart := snpPos - 1 - 10 // 0-based; places the SNP within the read's first 32-mer
	window1Start := readStart
	posInKmer := (snpPos - 1) - window1Start
	require.True(t, posInKmer >= 0 && posInKmer < kmer.Len, "SNP must fall in the first 32-mer for this test")

	altRead := append([]byte(nil), fx.seq[readStart:readStart+64]...)
	altRead[posInKmer] = fx.locus.Alt

	require.True(t, s.ProcessRead(altRead))
	e := fx.table.Get(uint32(snpPos))
	require.Equal(t, byte(1), e.AltCnt)
	require.Equal(t, byte(0), e.RefCnt)
}
