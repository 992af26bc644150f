package dict

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJumpgateLookupMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	prefixes := make([]uint32, 2000)
	for i := range prefixes {
		prefixes[i] = uint32(rng.Intn(50))
	}
	sort.Slice(prefixes, func(i, j int) bool { return prefixes[i] < prefixes[j] })

	jg := BuildJumpgate(prefixes)

	for p := uint32(0); p < 60; p++ {
		wantLo, wantHi := -1, -1
		for i, v := range prefixes {
			if v == p {
				if wantLo == -1 {
					wantLo = i
				}
				wantHi = i + 1
			}
		}
		lo, hi, ok := jg.Lookup(p)
		if wantLo == -1 {
			assert.False(t, ok, "prefix %d should miss", p)
			continue
		}
		require.True(t, ok, "prefix %d should hit", p)
		assert.Equal(t, uint32(wantLo), lo)
		assert.Equal(t, uint32(wantHi), hi)
	}
}

func TestJumpgateEmpty(t *testing.T) {
	jg := BuildJumpgate(nil)
	_, _, ok := jg.Lookup(42)
	assert.False(t, ok)
}
