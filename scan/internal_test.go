package scan

import (
	"testing"

	"github.com/arshajii/lava/dict"
	"github.com/arshajii/lava/kmer"
	"github.com/arshajii/lava/pileup"
	"github.com/arshajii/lava/voter"
	"github.com/stretchr/testify/require"
)

// TestSnpNeighborGuardSuppressesSamePositionVote is a white-box test of
// voteSnp's double-count guard (mirrors lava.c's
// "SNP_INFO_POS(snp_hit->snp) != diff_base_pos" check): a Hamming-1
// neighbor hit against a SNP-dictionary entry must not be counted when the
// neighbor's flipped base is exactly the entry's own known SNP offset,
// since that flip is how the neighbor search found the entry in the first
// place, not independent corroborating evidence.
func TestSnpNeighborGuardSuppressesSamePositionVote(t *testing.T) {
	const snpOffset = 10
	const refBase, altBase byte = 0, 2 // A -> G
	const entryPos = uint32(1000)

	base := kmer.Kmer(0) // all-A k-mer
	snpInfo := dict.PackSnpInfo(snpOffset, refBase)
	entry := dict.SnpEntry{
		Kmer:      base.WithBaseAt(snpOffset, altBase),
		Pos:       entryPos,
		SnpInfo:   snpInfo,
		AmbigFlag: dict.FlagUnambiguous,
	}

	s := &Session{Pileup: pileup.NewTable(2000), Voter: voter.New()}

	// Same-position neighbor: diffPos equals the entry's own SNP offset.
	// This is exactly the flip that turned the observed k-mer into a match
	// for entry in the first place, so it must be suppressed.
	var contexts []hitContext
	observed := base // the read's literal (ref-allele, unflipped) k-mer
	s.voteSnp(observed, entry, 0, snpOffset, true, &contexts)
	require.Empty(t, contexts, "neighbor hit at the entry's own SNP offset must not cast a vote")
	_, _, ok := s.Voter.Best()
	require.False(t, ok, "no vote means no candidate at all")

	// A neighbor flip at a different offset must still be counted normally
	// (called twice so the resulting frequency exceeds 1, as ProcessRead
	// requires).
	s.Voter.Reset()
	contexts = nil
	s.voteSnp(observed, entry, 0, snpOffset+1, true, &contexts)
	s.voteSnp(observed, entry, 0, snpOffset+1, true, &contexts)
	require.Len(t, contexts, 2, "neighbor hits at a different offset must cast votes")
	require.True(t, s.Voter.ProcessRead())
	s.Voter.ClearIndex(contexts[0].readPos)

	// A direct (non-neighbor) hit is never subject to the guard, even at
	// the entry's own offset.
	s.Voter.Reset()
	contexts = nil
	s.voteSnp(observed, entry, 0, snpOffset, false, &contexts)
	require.Len(t, contexts, 1, "a direct hit is never gated by the neighbor guard")
}
