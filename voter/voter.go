// Package voter implements the index-voting table: a small hash-by-modulo
// structure that tallies candidate read-placement positions for a single
// read and tracks the unique-maximum winner.
package voter

// SlotCount is the number of hash slots (prime, to spread modulo collisions
// evenly across plausible read-position distributions).
const SlotCount = 1009

// EntryDepth bounds the number of distinct indices that may land in one
// slot; "enough for 5 k-mers" worth of distinct candidate positions given
// typical collision rates.
const EntryDepth = 500

type entry struct {
	index uint32
	freq  byte
}

type slot struct {
	count   int
	entries [EntryDepth]entry
}

// Table tallies votes cast by Add and tracks the unique maximum.
type Table struct {
	slots     [SlotCount]slot
	best      *entry
	ambiguous bool
}

// New returns an empty Table.
func New() *Table {
	return &Table{}
}

// Add casts one vote for index. If index already has an entry in its slot,
// its frequency is incremented; otherwise a new entry is appended.
//
// After updating, best is maintained: a never-yet-set best takes the new
// entry; the entry that is already best clears ambiguous (incrementing the
// current max by one restores a unique max); an entry whose frequency now
// ties best's sets ambiguous; an entry that now exceeds best's frequency
// replaces best and clears ambiguous.
func (t *Table) Add(index uint32) {
	s := &t.slots[index%SlotCount]
	var target *entry
	for i := 0; i < s.count; i++ {
		if s.entries[i].index == index {
			s.entries[i].freq++
			target = &s.entries[i]
			break
		}
	}
	if target == nil {
		if s.count >= EntryDepth {
			// Far more distinct candidate positions landed in one slot than any
			// real read should produce; treat as an internal invariant breach.
			panic("voter: slot entry depth exceeded")
		}
		s.entries[s.count] = entry{index: index, freq: 1}
		target = &s.entries[s.count]
		s.count++
	}

	switch {
	case t.best == nil:
		t.best = target
		t.ambiguous = false
	case target == t.best:
		t.ambiguous = false
	case target.freq == t.best.freq:
		t.ambiguous = true
	case target.freq > t.best.freq:
		t.best = target
		t.ambiguous = false
	}
}

// ClearIndex zeroes only the slot that index hashes to. Called once per
// recorded candidate position after a read has been fully scored, so the
// table ends the read empty without having to zero all SlotCount slots.
func (t *Table) ClearIndex(index uint32) {
	t.slots[index%SlotCount].count = 0
}

// Clear resets the table to its empty state, including every slot. The
// scanner does not call it: it scrubs each read's slots with ClearIndex and
// then calls Reset (see scan.Session.ProcessRead).
func (t *Table) Clear() {
	t.best = nil
	t.ambiguous = false
	for i := range t.slots {
		t.slots[i].count = 0
	}
}

// Reset clears best/ambiguous without touching slot contents. Safe to call
// once every candidate index added this round has already been scrubbed via
// ClearIndex.
func (t *Table) Reset() {
	t.best = nil
	t.ambiguous = false
}

// Best returns the current unique-maximum index and its frequency. ok is
// false if no vote has been cast since the last Clear/Reset.
func (t *Table) Best() (index uint32, freq byte, ok bool) {
	if t.best == nil {
		return 0, 0, false
	}
	return t.best.index, t.best.freq, true
}

// Ambiguous reports whether the current maximum frequency is shared by two
// or more distinct indices.
func (t *Table) Ambiguous() bool {
	return t.ambiguous
}

// ProcessRead reports whether the table's current state should be used to
// place a read: a best entry exists, its frequency exceeds 1 (at least two
// k-mers agreed), and it is not ambiguous.
func (t *Table) ProcessRead() bool {
	return t.best != nil && t.best.freq > 1 && !t.ambiguous
}
