package dict

import (
	"io"
	"sort"

	"github.com/arshajii/lava/kmer"
	"github.com/arshajii/lava/pileup"
)

// RefEntry is the in-memory, lookup-ready shape of a reference-dictionary
// k-mer: the low 32 bits of the k-mer (the intra-bucket search key) paired
// with its recorded position (an absolute 1-based position, an index into
// a RefAuxRow, or PosAmbiguous).
type RefEntry struct {
	LO        uint32
	Pos       uint32
	AmbigFlag byte
}

// RefDict is the loaded, queryable reference dictionary.
type RefDict struct {
	entries []RefEntry
	aux     []RefAuxRow
	jg      *Jumpgate
}

// LoadRefDict reads a reference-dictionary file written by WriteRefDict and
// builds its jumpgate.
func LoadRefDict(r io.Reader, checksum bool) (*RefDict, error) {
	records, aux, err := ReadRefDict(r, checksum)
	if err != nil {
		return nil, err
	}
	return NewRefDict(records, aux), nil
}

// NewRefDict builds a queryable RefDict from records already sorted in
// ascending k-mer order.
func NewRefDict(records []RefRecord, aux []RefAuxRow) *RefDict {
	entries := make([]RefEntry, len(records))
	prefixes := make([]uint32, len(records))
	for i, rec := range records {
		k := kmer.Kmer(rec.Kmer)
		entries[i] = RefEntry{LO: k.LO(), Pos: rec.Pos, AmbigFlag: rec.AmbigFlag}
		prefixes[i] = k.HI()
	}
	return &RefDict{entries: entries, aux: aux, jg: BuildJumpgate(prefixes)}
}

// Lookup finds the reference-dictionary entry for k, if any.
func (d *RefDict) Lookup(k kmer.Kmer) (RefEntry, bool) {
	lo, hi, ok := d.jg.Lookup(k.HI())
	if !ok {
		return RefEntry{}, false
	}
	target := k.LO()
	bucket := d.entries[lo:hi]
	i := sort.Search(len(bucket), func(i int) bool { return bucket[i].LO >= target })
	if i < len(bucket) && bucket[i].LO == target {
		return bucket[i], true
	}
	return RefEntry{}, false
}

// AuxRow returns the aux row at the given index (decoded from a
// RefEntry.Pos when AmbigFlag indicates overflow).
func (d *RefDict) AuxRow(idx uint32) RefAuxRow {
	return d.aux[idx]
}

// SnpEntry is the in-memory, lookup-ready shape of a SNP-dictionary k-mer.
// The full k-mer is kept (not just its LO40 search key) because the
// alternate allele at a SNP's offset is only recoverable from the k-mer
// itself: a SNP-dictionary k-mer is, by construction, the reference window
// with the alternate allele substituted in, so SnpInfo need only carry the
// reference base and the offset.
type SnpEntry struct {
	Kmer      kmer.Kmer
	LO40      uint64
	Pos       uint32
	SnpInfo   byte
	AmbigFlag byte
	RefFreq   byte
	AltFreq   byte
}

// SnpDict is the loaded, queryable SNP dictionary.
type SnpDict struct {
	entries []SnpEntry
	aux     []SnpAuxRow
	jg      *Jumpgate
}

// LoadSnpDict reads a SNP-dictionary file written by WriteSnpDict and builds
// its jumpgate.
func LoadSnpDict(r io.Reader, checksum bool) (*SnpDict, error) {
	records, aux, err := ReadSnpDict(r, checksum)
	if err != nil {
		return nil, err
	}
	return NewSnpDict(records, aux), nil
}

// NewSnpDict builds a queryable SnpDict from records already sorted in
// ascending k-mer order.
func NewSnpDict(records []SnpRecord, aux []SnpAuxRow) *SnpDict {
	entries := make([]SnpEntry, len(records))
	prefixes := make([]uint32, len(records))
	for i, rec := range records {
		k := kmer.Kmer(rec.Kmer)
		entries[i] = SnpEntry{
			Kmer:      k,
			LO40:      k.LO40(),
			Pos:       rec.Pos,
			SnpInfo:   rec.SnpInfo,
			AmbigFlag: rec.AmbigFlag,
			RefFreq:   rec.RefFreq,
			AltFreq:   rec.AltFreq,
		}
		prefixes[i] = k.HI24()
	}
	return &SnpDict{entries: entries, aux: aux, jg: BuildJumpgate(prefixes)}
}

// Lookup finds the SNP-dictionary entry for k, if any.
func (d *SnpDict) Lookup(k kmer.Kmer) (SnpEntry, bool) {
	lo, hi, ok := d.jg.Lookup(k.HI24())
	if !ok {
		return SnpEntry{}, false
	}
	target := k.LO40()
	bucket := d.entries[lo:hi]
	i := sort.Search(len(bucket), func(i int) bool { return bucket[i].LO40 >= target })
	if i < len(bucket) && bucket[i].LO40 == target {
		return bucket[i], true
	}
	return SnpEntry{}, false
}

// AuxRow returns the aux row at the given index.
func (d *SnpDict) AuxRow(idx uint32) SnpAuxRow {
	return d.aux[idx]
}

// PopulatePileup seeds table with one SNP locus per unambiguous (non-aux)
// SNP-dictionary entry: the position is the entry's recorded position plus
// the SNP's offset within the k-mer, and the ref/alt bases come from the
// k-mer's own base at that offset and the packed SNP info. Ambiguous
// entries (AmbigFlag == FlagAmbiguous, Pos an aux-table index) are excluded
// on load; this mirrors the reference implementation's behavior of never
// seeding a pileup slot it cannot vote on unambiguously.
func PopulatePileup(table *pileup.Table, d *SnpDict) {
	for _, e := range d.entries {
		if e.AmbigFlag == FlagAmbiguous {
			continue
		}
		posInKmer, refBase := UnpackSnpInfo(e.SnpInfo)
		altBase := e.Kmer.BaseAt(posInKmer)
		snpPos := e.Pos + uint32(posInKmer)
		table.SetSNP(snpPos, refBase, altBase, e.RefFreq, e.AltFreq)
	}
}
