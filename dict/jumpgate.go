package dict

import farm "github.com/dgryski/go-farm"

// The jumpgate realizes the spec's "O(1) mapping from HI(kmer) to the
// [lo, hi) slice of sorted dict entries with that prefix" contract as a
// farm-hash-sharded, open-addressed table instead of a literal dense
// 2^32-entry (or, for the SNP dictionary, 2^24-entry) array: the same
// sharding and linear-probing idiom fusion's kmer index uses to map a
// 64-bit k-mer to a small gene-ID set, adapted here to map a 32-bit (or
// 24-bit) prefix to a fixed-size [lo, hi) range and backed by plain slices
// rather than mmap'd, madvise-hinted memory.
const (
	jumpgateShards        = 256
	jumpgateMaxCollisions = 64
)

const invalidPrefix = ^uint32(0)

type jumpgateEntry struct {
	prefix uint32
	lo, hi uint32
}

type jumpgateRun struct {
	lo, hi uint32
}

type jumpgateShard struct {
	nShift uint32
	table  []jumpgateEntry
}

// Jumpgate maps a k-mer prefix (HI or HI24) to the half-open range of
// indices into a sorted dict-entry slice that share that prefix.
type Jumpgate struct {
	shards [jumpgateShards]jumpgateShard
}

func hashPrefix(prefix uint32) uint64 {
	return farm.Hash64WithSeed(nil, uint64(prefix))
}

// BuildJumpgate constructs a Jumpgate from prefixes, the parallel list of
// HI (or HI24) prefixes of a dict sorted ascending by k-mer. Equal
// consecutive prefixes collapse into a single [lo, hi) run.
func BuildJumpgate(prefixes []uint32) *Jumpgate {
	jg := &Jumpgate{}
	runs := make(map[uint32]jumpgateRun)
	i := 0
	for i < len(prefixes) {
		p := prefixes[i]
		lo := i
		for i < len(prefixes) && prefixes[i] == p {
			i++
		}
		runs[p] = jumpgateRun{uint32(lo), uint32(i)}
	}

	byShard := make([]map[uint32]jumpgateRun, jumpgateShards)
	for s := range byShard {
		byShard[s] = make(map[uint32]jumpgateRun)
	}
	for p, r := range runs {
		h := hashPrefix(p)
		byShard[h&(jumpgateShards-1)][p] = r
	}

	for s := 0; s < jumpgateShards; s++ {
		jg.shards[s] = buildShard(byShard[s])
	}
	return jg
}

func buildShard(input map[uint32]jumpgateRun) jumpgateShard {
	minSize := (len(input) + 1) * 4
	size := 1
	shift := uint32(0)
	for size < minSize {
		size <<= 1
		shift++
	}
	nShift := uint32(64) - shift

	table := make([]jumpgateEntry, size)
	for i := range table {
		table[i].prefix = invalidPrefix
	}
	for p, r := range input {
		h := hashPrefix(p)
		idx := h >> nShift
		iter := 0
		for table[idx].prefix != invalidPrefix {
			iter++
			if iter > jumpgateMaxCollisions {
				panic("dict: jumpgate shard exceeded max collisions")
			}
			idx = (idx + 1) % uint64(size)
		}
		table[idx] = jumpgateEntry{prefix: p, lo: r.lo, hi: r.hi}
	}
	return jumpgateShard{nShift: nShift, table: table}
}

// Lookup returns the [lo, hi) index range of dict entries whose prefix
// equals prefix; ok is false if no entry carries this prefix.
func (jg *Jumpgate) Lookup(prefix uint32) (lo, hi uint32, ok bool) {
	h := hashPrefix(prefix)
	shard := &jg.shards[h&(jumpgateShards-1)]
	size := len(shard.table)
	if size == 0 {
		return 0, 0, false
	}
	idx := h >> shard.nShift
	for iter := 0; iter <= jumpgateMaxCollisions; iter++ {
		e := &shard.table[idx]
		if e.prefix == prefix {
			return e.lo, e.hi, true
		}
		if e.prefix == invalidPrefix {
			return 0, 0, false
		}
		idx = (idx + 1) % uint64(size)
	}
	return 0, 0, false
}
