// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pileup implements the dense, position-indexed accumulator that
// the read scanner writes into and the genotype caller reads from.
package pileup

// These constants give the natural value for A/C/G/T in a packed 2-bit
// representation; BaseX is a catch-all for anything else (N, etc).
const (
	// BaseA represents an A base.
	BaseA byte = iota
	// BaseC represents a C base.
	BaseC
	// BaseG represents a G base.
	BaseG
	// BaseT represents a T base.
	BaseT
	// BaseX is a catch-all for non-ACGT bytes.
	BaseX
)

// NBase is the number of regular base types.
const NBase = 4

// EnumToASCIITable is the A/C/G/T/X -> ASCII mapping, with X rendered as 'N'.
var EnumToASCIITable = [...]byte{'A', 'C', 'G', 'T', 'N'}

// MaxCov is the saturating upper bound on a pileup entry's ref/alt counters.
// A single high-coverage artifact at one locus cannot, by itself, swamp the
// genotype caller's likelihood computation.
const MaxCov = 64

// Entry is the per-position pileup record. A zero Entry (Ref == Alt == 0)
// means "no known SNP at this position".
type Entry struct {
	Ref, Alt         byte // base codes in [0, NBase)
	RefFreq, AltFreq byte // population allele frequency encoded as v/255
	RefCnt, AltCnt   byte // observed counts, saturating at MaxCov
}

// IsSNP reports whether e names a real SNP locus (as opposed to an unused
// slot).
func (e *Entry) IsSNP() bool {
	return e.Ref != e.Alt
}

// blank reports whether the slot has never been written.
func (e *Entry) blank() bool {
	return e.Ref == 0 && e.Alt == 0
}

// Table is a dense array of Entry indexed by 1-based absolute reference
// position. Position 0 is unused so that a raw index never collides with
// the zero value used elsewhere as "no position".
type Table struct {
	entries []Entry
}

// NewTable allocates a Table covering positions [1, size].
func NewTable(size int) *Table {
	return &Table{entries: make([]Entry, size+1)}
}

// Len returns the highest valid position in the table.
func (t *Table) Len() int {
	if len(t.entries) == 0 {
		return 0
	}
	return len(t.entries) - 1
}

// Grow ensures the table covers at least [1, size], extending with
// zero-valued entries as needed.
func (t *Table) Grow(size int) {
	if size < t.Len() {
		return
	}
	grown := make([]Entry, size+1)
	copy(grown, t.entries)
	t.entries = grown
}

// Get returns the entry at the given absolute position.
func (t *Table) Get(pos uint32) *Entry {
	return &t.entries[pos]
}

// Blank reports whether the slot at pos is still unwritten. This is the
// guard the scanner uses to decide whether a Hamming-1 neighbor over the
// reference dictionary may cast a vote: the substituted base must not
// coincide with a known SNP site.
func (t *Table) Blank(pos uint32) bool {
	if int(pos) >= len(t.entries) {
		return true
	}
	return t.entries[pos].blank()
}

// SetSNP records a known SNP locus at pos, growing the table if necessary.
// It is called once per unambiguous SNP-dictionary entry while the
// dictionary is loaded.
func (t *Table) SetSNP(pos uint32, ref, alt, refFreq, altFreq byte) {
	if int(pos) >= len(t.entries) {
		t.Grow(int(pos))
	}
	e := &t.entries[pos]
	e.Ref, e.Alt, e.RefFreq, e.AltFreq = ref, alt, refFreq, altFreq
}

// Update applies one observed base at pos to the pileup, saturating at
// MaxCov. It is a no-op at positions that are not known SNP loci, or when
// the observed base matches neither the reference nor the alternate allele.
func (t *Table) Update(pos uint32, base byte) {
	if int(pos) >= len(t.entries) {
		return
	}
	e := &t.entries[pos]
	if !e.IsSNP() {
		return
	}
	switch {
	case base == e.Ref:
		if e.RefCnt < MaxCov {
			e.RefCnt++
		}
	case base == e.Alt:
		if e.AltCnt < MaxCov {
			e.AltCnt++
		}
	}
}
