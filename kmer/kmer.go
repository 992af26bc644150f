// Package kmer implements the fixed-length (32-base) DNA k-mer codec: ASCII
// window <-> 2-bit-per-base 64-bit integer, prefix splits used to key the
// two on-disk dictionaries, and the text-level reverse complement used by
// the scanner's second pass.
package kmer

import (
	"github.com/arshajii/lava/biosimd"
)

// Len is the fixed k-mer length. The core engine never handles any other
// length.
const Len = 32

const invalidBase = 0xff

// Kmer is a 2-bit-per-base encoding of a Len-base DNA window. Base i
// (0-based, i==0 is the leftmost/first character of the window) occupies
// bits [2i, 2i+1].
type Kmer uint64

var baseCode [256]byte

func init() {
	for i := range baseCode {
		baseCode[i] = invalidBase
	}
	baseCode['A'], baseCode['a'] = 0, 0
	baseCode['C'], baseCode['c'] = 1, 1
	baseCode['G'], baseCode['g'] = 2, 2
	baseCode['T'], baseCode['t'] = 3, 3
}

// Encode maps a Len-byte ASCII window to a Kmer. ok is false if any byte in
// window is outside {A,C,G,T,a,c,g,t} (most commonly, an 'N').
func Encode(window []byte) (k Kmer, ok bool) {
	if len(window) != Len {
		return 0, false
	}
	for i, ch := range window {
		b := baseCode[ch]
		if b == invalidBase {
			return 0, false
		}
		k |= Kmer(b) << uint(2*i)
	}
	return k, true
}

// BaseAt returns the 2-bit code (0..3) of the base at position i (0-based,
// leftmost==0).
func (k Kmer) BaseAt(i int) byte {
	return byte((k >> uint(2*i)) & 3)
}

// WithBaseAt returns a copy of k with the base at position i replaced by
// code (0..3).
func (k Kmer) WithBaseAt(i int, code byte) Kmer {
	shift := uint(2 * i)
	return (k &^ (Kmer(3) << shift)) | (Kmer(code) << shift)
}

// HI returns the high 32 bits of k (bases 16..31), used to key the
// reference dictionary's jumpgate.
func (k Kmer) HI() uint32 { return uint32(k >> 32) }

// LO returns the low 32 bits of k (bases 0..15), the reference
// dictionary's intra-bucket sort/search key.
func (k Kmer) LO() uint32 { return uint32(k) }

// HI24 returns the high 24 bits of k (bases 20..31), used to key the SNP
// dictionary's jumpgate.
func (k Kmer) HI24() uint32 { return uint32(k>>40) & 0xffffff }

// LO40 returns the low 40 bits of k (bases 0..19), the SNP dictionary's
// intra-bucket sort/search key.
func (k Kmer) LO40() uint64 { return uint64(k) & ((1 << 40) - 1) }

// Neighbors calls f once for each of the Len*3 Hamming-1 neighbors of k: for
// every position and every base code other than the one already there.
func (k Kmer) Neighbors(f func(pos int, base byte, neighbor Kmer)) {
	for pos := 0; pos < Len; pos++ {
		cur := k.BaseAt(pos)
		for code := byte(0); code < 4; code++ {
			if code == cur {
				continue
			}
			f(pos, code, k.WithBaseAt(pos, code))
		}
	}
}

// ReverseComplement mirrors a Len-byte ASCII window: A<->T, C<->G, with the
// byte order reversed. The input is not modified; no integer bit-reversal
// is performed, matching the contract that revcomp happens at the text
// level before re-encoding.
func ReverseComplement(window []byte) []byte {
	out := make([]byte, len(window))
	copy(out, window)
	biosimd.ReverseComp8Inplace(out)
	return out
}
