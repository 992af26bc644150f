// Package scan implements the read-scanning loop: per-read 32-mer
// enumeration, reference/SNP dictionary probing (including all 96
// Hamming-1 neighbors of each k-mer), agreement voting, the winning
// placement's pileup update, and the single reverse-complement retry.
package scan

import (
	"github.com/arshajii/lava/diag"
	"github.com/arshajii/lava/dict"
	"github.com/arshajii/lava/kmer"
	"github.com/arshajii/lava/pileup"
	"github.com/arshajii/lava/voter"
)

// hitContext records one candidate placement discovered while probing a
// single k-mer (whether by direct hit or by one of its Hamming-1
// neighbors): the k-mer to replay into the pileup on a win (the observed
// k-mer itself for a direct hit, or the matching neighbor for a Hamming-1
// hit, so the corrected base is what gets counted), the placement's vote
// key (read_pos), and the absolute genome position of the k-mer's first
// base.
type hitContext struct {
	stored  kmer.Kmer
	readPos uint32
	kmerPos uint32
}

// Session holds the three tables a read is scanned against: the reference
// and SNP dictionaries (read-only once loaded) and the pileup table and
// voter (mutated per read). A Session is not safe for concurrent use.
type Session struct {
	Ref    *dict.RefDict
	Snp    *dict.SnpDict
	Pileup *pileup.Table
	Voter  *voter.Table
	Diag   *diag.Counters
}

// NewSession builds a Session from already-loaded dictionaries and a
// pileup table; the voter is private scratch state, allocated fresh.
func NewSession(ref *dict.RefDict, snp *dict.SnpDict, table *pileup.Table, counters *diag.Counters) *Session {
	return &Session{Ref: ref, Snp: snp, Pileup: table, Voter: voter.New(), Diag: counters}
}

// ProcessRead scans one read's sequence bytes, updating the pileup table in
// place if a unique, sufficiently-agreed-upon placement is found. It
// returns whether the read was placed. Only the largest multiple of
// kmer.Len (32) leading bytes of seq are considered; any suffix is ignored.
func (s *Session) ProcessRead(seq []byte) bool {
	if s.Diag != nil {
		s.Diag.IncReadsSeen()
	}
	length := (len(seq) / kmer.Len) * kmer.Len
	if length == 0 {
		if s.Diag != nil {
			s.Diag.IncAmbiguous()
		}
		return false
	}
	window := seq[:length]

	// A non-ACGT base aborts the read; its reverse complement would carry
	// the same base as 'N', so no retry is made.
	for i := 0; i < length; i += kmer.Len {
		if _, ok := kmer.Encode(window[i : i+kmer.Len]); !ok {
			if s.Diag != nil {
				s.Diag.IncSkippedN()
			}
			return false
		}
	}

	if s.tryOrientation(window) {
		if s.Diag != nil {
			s.Diag.IncProcessed()
		}
		return true
	}

	if s.Diag != nil {
		s.Diag.IncRevCompRetry()
	}
	rc := kmer.ReverseComplement(window)
	processed := s.tryOrientation(rc)
	if s.Diag != nil {
		if processed {
			s.Diag.IncProcessed()
		} else {
			s.Diag.IncAmbiguous()
		}
	}
	return processed
}

// tryOrientation runs one full probe/vote/update pass over window (either
// the read as given, or its reverse complement), always leaving the voter
// scrubbed back to empty before returning.
func (s *Session) tryOrientation(window []byte) bool {
	n := len(window) / kmer.Len
	kmers := make([]kmer.Kmer, n)
	for i := 0; i < n; i++ {
		k, ok := kmer.Encode(window[i*kmer.Len : (i+1)*kmer.Len])
		if !ok {
			return false
		}
		kmers[i] = k
	}

	var contexts []hitContext
	for i, k := range kmers {
		s.probeKmer(k, i*kmer.Len, &contexts)
	}

	processed := s.Voter.ProcessRead()
	if processed {
		best, _, _ := s.Voter.Best()
		for _, c := range contexts {
			if c.readPos == best {
				s.updatePileup(c)
			}
		}
	}

	for _, c := range contexts {
		s.Voter.ClearIndex(c.readPos)
	}
	s.Voter.Reset()
	return processed
}

// probeKmer queries both dictionaries for observed itself and for each of
// its 96 Hamming-1 neighbors, casting a vote for every surviving candidate
// placement.
func (s *Session) probeKmer(observed kmer.Kmer, off int, contexts *[]hitContext) {
	if e, ok := s.Ref.Lookup(observed); ok {
		s.voteRef(observed, e, off, 0, false, contexts)
	}
	if e, ok := s.Snp.Lookup(observed); ok {
		s.voteSnp(observed, e, off, 0, false, contexts)
	}
	observed.Neighbors(func(diffPos int, _ byte, neighbor kmer.Kmer) {
		if e, ok := s.Ref.Lookup(neighbor); ok {
			s.voteRef(neighbor, e, off, diffPos, true, contexts)
		}
		if e, ok := s.Snp.Lookup(neighbor); ok {
			s.voteSnp(neighbor, e, off, diffPos, true, contexts)
		}
	})
}

// forEachRefPos resolves a reference-dictionary hit into the set of
// absolute positions it names: a single position for an unambiguous entry,
// the aux row (stopping at the zero sentinel) for an ambiguous one, or
// nothing at all for an over-represented (PosAmbiguous) entry.
func forEachRefPos(d *dict.RefDict, e dict.RefEntry, fn func(pos uint32)) {
	if e.Pos == dict.PosAmbiguous {
		return
	}
	if e.AmbigFlag == dict.FlagUnambiguous {
		fn(e.Pos)
		return
	}
	row := d.AuxRow(e.Pos)
	for _, p := range row {
		if p == 0 {
			break
		}
		fn(p)
	}
}

// voteRef casts votes for a reference-dictionary hit. stored is the k-mer
// that matched the dictionary -- the observed k-mer itself for a direct
// hit, or the Hamming-1 neighbor that matched for a neighbor hit -- and is
// what gets replayed into the pileup if this placement wins, mirroring the
// ground-truth scanner's practice of recording the neighbor (the corrected
// base), not the observed read, on a neighbor hit. When isNeighbor is true,
// a candidate position is only counted if the pileup slot it would occupy
// at diffPos is still blank -- i.e. the substituted base does not coincide
// with a known SNP site.
func (s *Session) voteRef(stored kmer.Kmer, e dict.RefEntry, off, diffPos int, isNeighbor bool, contexts *[]hitContext) {
	forEachRefPos(s.Ref, e, func(pos uint32) {
		if isNeighbor && !s.Pileup.Blank(pos+uint32(diffPos)) {
			return
		}
		if pos < uint32(off) {
			return
		}
		readPos := pos - uint32(off)
		s.Voter.Add(readPos)
		*contexts = append(*contexts, hitContext{stored: stored, readPos: readPos, kmerPos: pos})
	})
}

// forEachSnpPos is forEachRefPos's SNP-dictionary counterpart; it also
// yields each candidate's own packed snp_info byte, since an ambiguous
// entry's aux row may carry a different offset per slot.
func forEachSnpPos(d *dict.SnpDict, e dict.SnpEntry, fn func(pos uint32, snpInfo byte)) {
	if e.Pos == dict.PosAmbiguous {
		return
	}
	if e.AmbigFlag == dict.FlagUnambiguous {
		fn(e.Pos, e.SnpInfo)
		return
	}
	row := d.AuxRow(e.Pos)
	for i, p := range row.Pos {
		if p == 0 {
			break
		}
		fn(p, row.SnpInfo[i])
	}
}

// voteSnp casts votes for a SNP-dictionary hit. stored is the k-mer that
// matched the dictionary (see voteRef) and is what gets replayed into the
// pileup on a win. When isNeighbor is true, a candidate is only counted if
// its own SNP offset differs from diffPos -- otherwise the neighbor merely
// restores the alternate allele the original k-mer already matched, and
// must not be double-counted.
func (s *Session) voteSnp(stored kmer.Kmer, e dict.SnpEntry, off, diffPos int, isNeighbor bool, contexts *[]hitContext) {
	forEachSnpPos(s.Snp, e, func(pos uint32, snpInfo byte) {
		if isNeighbor {
			posInKmer, _ := dict.UnpackSnpInfo(snpInfo)
			if posInKmer == diffPos {
				return
			}
		}
		if pos < uint32(off) {
			return
		}
		readPos := pos - uint32(off)
		s.Voter.Add(readPos)
		*contexts = append(*contexts, hitContext{stored: stored, readPos: readPos, kmerPos: pos})
	})
}

// updatePileup applies a winning context's 32 stored bases to the pileup
// table, per position; pileup.Table.Update already no-ops at positions that
// aren't known SNP loci and saturates at MaxCov.
func (s *Session) updatePileup(c hitContext) {
	for j := 0; j < kmer.Len; j++ {
		s.Pileup.Update(c.kmerPos+uint32(j), c.stored.BaseAt(j))
	}
}
