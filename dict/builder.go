package dict

import (
	"github.com/arshajii/lava/encoding/fasta"
	"github.com/arshajii/lava/kmer"
	"github.com/arshajii/lava/snpcatalog"
	"github.com/biogo/store/llrb"
)

// kmerRun is an llrb.Comparable accumulating every absolute position at
// which one k-mer occurs, ordered by ascending 64-bit k-mer the way the
// builder needs its final dict entries ordered. Using an ordered tree
// instead of a sort pass at the end mirrors bio-bam-sort's merge-by-llrb.Tree
// idiom: positions accumulate in tree order as the genome is walked, and an
// in-order Do() traversal yields the dict already sorted.
type kmerRun struct {
	kmer      uint64
	positions []uint32
	// snpInfo/refFreq/altFreq are only used for SNP-dict runs; for a given
	// k-mer they are identical across all recorded positions because a
	// single alt-substituted window always encodes the same SNP offset and
	// reference base.
	snpInfo byte
	refFreq byte
	altFreq byte
}

func (r *kmerRun) Compare(c llrb.Comparable) int {
	o := c.(*kmerRun)
	switch {
	case r.kmer < o.kmer:
		return -1
	case r.kmer > o.kmer:
		return 1
	default:
		return 0
	}
}

func newRunTree() *llrb.Tree {
	return &llrb.Tree{}
}

func addPosition(tree *llrb.Tree, k uint64, pos uint32, snpInfo, refFreq, altFreq byte) {
	probe := &kmerRun{kmer: k}
	if found := tree.Get(probe); found != nil {
		run := found.(*kmerRun)
		run.positions = append(run.positions, pos)
		return
	}
	tree.Insert(&kmerRun{kmer: k, positions: []uint32{pos}, snpInfo: snpInfo, refFreq: refFreq, altFreq: altFreq})
}

// resolveAmbiguity turns the accumulated positions for one k-mer into the
// record's Pos/AmbigFlag pair, plus the aux row to append, if any, per the
// builder's duplicate-collapsing policy in spec section 4.2.
func resolveAmbiguity(positions []uint32, auxRows *[]RefAuxRow) (pos uint32, ambigFlag byte) {
	switch {
	case len(positions) == 1:
		return positions[0], FlagUnambiguous
	case len(positions) <= AuxTableCols:
		var row RefAuxRow
		copy(row[:], positions)
		*auxRows = append(*auxRows, row)
		return uint32(len(*auxRows) - 1), FlagAmbiguous
	default:
		return PosAmbiguous, FlagAmbiguous
	}
}

// BuildRefDict enumerates every length-32 window of every sequence in ref
// (in SeqNames order), encodes it, and collapses duplicates per the
// builder's ambiguity policy. Windows containing N are skipped. The
// returned records are sorted ascending by full 64-bit k-mer.
func BuildRefDict(ref fasta.Fasta) (records []RefRecord, aux []RefAuxRow, err error) {
	tree := newRunTree()
	var absBase uint32 = 1 // absolute 1-based position of the first base of seqName
	for _, seqName := range ref.SeqNames() {
		n, lerr := ref.Len(seqName)
		if lerr != nil {
			return nil, nil, lerr
		}
		seq, gerr := ref.Get(seqName, 0, n)
		if gerr != nil {
			return nil, nil, gerr
		}
		b := []byte(seq)
		for off := 0; off+kmer.Len <= len(b); off++ {
			k, ok := kmer.Encode(b[off : off+kmer.Len])
			if !ok {
				continue
			}
			addPosition(tree, uint64(k), absBase+uint32(off), 0, 0, 0)
		}
		absBase += uint32(n)
	}

	tree.Do(func(c llrb.Comparable) bool {
		run := c.(*kmerRun)
		pos, ambigFlag := resolveAmbiguity(run.positions, &aux)
		records = append(records, RefRecord{Kmer: run.kmer, Pos: pos, AmbigFlag: ambigFlag})
		return false
	})
	return records, aux, nil
}

func resolveSnpAmbiguity(run *kmerRun, auxRows *[]SnpAuxRow) (pos uint32, ambigFlag byte) {
	positions := run.positions
	switch {
	case len(positions) == 1:
		return positions[0], FlagUnambiguous
	case len(positions) <= AuxTableCols:
		var row SnpAuxRow
		row.Kmer = run.kmer
		for i, p := range positions {
			row.Pos[i] = p
			row.SnpInfo[i] = run.snpInfo
			row.RefFreq[i] = run.refFreq
			row.AltFreq[i] = run.altFreq
		}
		*auxRows = append(*auxRows, row)
		return uint32(len(*auxRows) - 1), FlagAmbiguous
	default:
		return PosAmbiguous, FlagAmbiguous
	}
}

// BuildSnpDict builds the SNP dictionary: for every known locus and every
// length-32 window covering it, a k-mer with the alternate allele
// substituted in at the locus's offset within the window. Ambiguity/aux
// policy mirrors BuildRefDict.
func BuildSnpDict(ref fasta.Fasta, loci []snpcatalog.Locus) (records []SnpRecord, aux []SnpAuxRow, err error) {
	chromStart, err := chromosomeStarts(ref)
	if err != nil {
		return nil, nil, err
	}

	tree := newRunTree()
	for _, locus := range loci {
		base, ok := chromStart[locus.Chrom]
		if !ok {
			continue
		}
		n, lerr := ref.Len(locus.Chrom)
		if lerr != nil {
			return nil, nil, lerr
		}
		seq, gerr := ref.Get(locus.Chrom, 0, n)
		if gerr != nil {
			return nil, nil, gerr
		}
		b := []byte(seq)
		localPos := int(locus.Pos) - 1 // 0-based offset of the SNP within the chromosome
		refCode, ok := baseCodeOf(locus.Ref)
		if !ok {
			continue
		}
		altCode, ok := baseCodeOf(locus.Alt)
		if !ok {
			continue
		}
		refFreq := snpcatalog.EncodeFreq(locus.RefFreq)
		altFreq := snpcatalog.EncodeFreq(locus.AltFreq)

		// Every window of length 32 that covers localPos places the SNP at
		// offset (localPos - winStart) within the window.
		winStart := localPos - kmer.Len + 1
		if winStart < 0 {
			winStart = 0
		}
		for ws := winStart; ws <= localPos && ws+kmer.Len <= len(b); ws++ {
			posInKmer := localPos - ws
			window := make([]byte, kmer.Len)
			copy(window, b[ws:ws+kmer.Len])
			if baseCodeOf2(window[posInKmer]) != refCode {
				// Catalog and reference disagree at this locus; skip, as
				// the builder has no well-defined alt-substitution to make.
				continue
			}
			window[posInKmer] = asciiOf(altCode)
			k, ok := kmer.Encode(window)
			if !ok {
				continue
			}
			snpInfo := PackSnpInfo(posInKmer, refCode)
			absPos := base + uint32(ws)
			addPosition(tree, uint64(k), absPos, snpInfo, refFreq, altFreq)
		}
	}

	tree.Do(func(c llrb.Comparable) bool {
		run := c.(*kmerRun)
		pos, ambigFlag := resolveSnpAmbiguity(run, &aux)
		records = append(records, SnpRecord{
			Kmer:      run.kmer,
			Pos:       pos,
			SnpInfo:   run.snpInfo,
			AmbigFlag: ambigFlag,
			RefFreq:   run.refFreq,
			AltFreq:   run.altFreq,
		})
		return false
	})
	return records, aux, nil
}

// chromosomeStarts computes, for each sequence in ref, the absolute
// 1-based position of its first base, using the same accumulation order
// BuildRefDict uses.
func chromosomeStarts(ref fasta.Fasta) (map[string]uint32, error) {
	starts := make(map[string]uint32)
	var absBase uint32 = 1
	for _, seqName := range ref.SeqNames() {
		starts[seqName] = absBase
		n, err := ref.Len(seqName)
		if err != nil {
			return nil, err
		}
		absBase += uint32(n)
	}
	return starts, nil
}

var asciiBase = [4]byte{'A', 'C', 'G', 'T'}

func asciiOf(code byte) byte {
	return asciiBase[code&3]
}

func baseCodeOf(ch byte) (byte, bool) {
	switch ch {
	case 'A', 'a':
		return 0, true
	case 'C', 'c':
		return 1, true
	case 'G', 'g':
		return 2, true
	case 'T', 't':
		return 3, true
	default:
		return 0, false
	}
}

func baseCodeOf2(ch byte) byte {
	code, _ := baseCodeOf(ch)
	return code
}
