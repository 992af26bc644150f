// Package genotype computes, for a single pileup locus, the most likely
// genotype (homozygous reference, heterozygous, homozygous alternate, or no
// call) under a fixed sequencing-error model and a Hardy-Weinberg /
// Poisson-depth prior.
package genotype

import "math"

// ErrRate is the assumed per-base sequencing error rate.
const ErrRate = 0.01

// AvgCov is the expected per-locus depth, the mean of the Poisson depth
// prior.
const AvgCov = 30

// MaxCov is the saturating upper bound on pileup counters (mirrors
// pileup.MaxCov; duplicated here so this package does not import pileup).
const MaxCov = 64

// Genotype is the call a locus receives.
type Genotype int

const (
	// None means no call was made (under- or over-coverage).
	None Genotype = iota
	// Ref is a homozygous-reference call.
	Ref
	// Het is a heterozygous call.
	Het
	// Alt is a homozygous-alternate call.
	Alt
)

// Result is the outcome of genotyping one locus.
type Result struct {
	Genotype   Genotype
	Confidence float64
}

type likelihoods struct {
	g0, g1, g2 float64
}

var (
	cache       [MaxCov + 1][MaxCov + 1]likelihoods
	poissonTbl  [2*MaxCov + 1]float64
	tablesReady bool
)

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// initTables builds the cached likelihood grid and Poisson table. Both
// depend only on the process-wide constants ErrRate/AvgCov/MaxCov, so they
// are computed once, lazily, on first use, then never written again.
func initTables() {
	if tablesReady {
		return
	}
	for ref := 0; ref <= MaxCov; ref++ {
		for alt := 0; alt <= MaxCov; alt++ {
			cache[ref][alt] = likelihoods{
				g0: math.Pow(1-ErrRate, float64(ref)) * math.Pow(ErrRate, float64(alt)),
				g1: math.Pow(0.5, float64(ref+alt)),
				g2: math.Pow(ErrRate, float64(ref)) * math.Pow(1-ErrRate, float64(alt)),
			}
		}
	}
	m := math.Exp(-AvgCov)
	for i := 0; i <= 2*MaxCov; i++ {
		poissonTbl[i] = (m * math.Pow(AvgCov, float64(i))) / math.Exp(lgamma(float64(i+1)))
	}
	tablesReady = true
}

// Call computes the genotype call for one locus given observed ref/alt
// counts and population allele frequencies encoded as v/255 (as stored in a
// pileup.Entry).
//
// Ties are broken exactly as the reference implementation does: the
// comparisons are strict '>', so a three-way tie (and any tie that isn't
// resolved by G0 or G1 alone winning) falls through to the Alt branch.
func Call(refCnt, altCnt int, refFreqEnc, altFreqEnc byte) Result {
	initTables()

	if (refCnt == 0 && altCnt == 0) || (refCnt == MaxCov && altCnt == MaxCov) {
		return Result{Genotype: None, Confidence: 0}
	}

	l := cache[refCnt][altCnt]
	p := float64(refFreqEnc) / 255.0
	q := float64(altFreqEnc) / 255.0
	p2, q2 := p*p, q*q

	pG0 := p2 * l.g0
	pG1 := (1 - p2 - q2) * l.g1
	pG2 := q2 * l.g2
	total := pG0 + pG1 + pG2

	n := refCnt + altCnt

	switch {
	case pG0 > pG1 && pG0 > pG2:
		return Result{Genotype: Ref, Confidence: (pG0 / total) * poissonTbl[n]}
	case pG1 > pG0 && pG1 > pG2:
		return Result{Genotype: Het, Confidence: (pG1 / total) * poissonTbl[n]}
	default:
		return Result{Genotype: Alt, Confidence: (pG2 / total) * poissonTbl[n]}
	}
}
