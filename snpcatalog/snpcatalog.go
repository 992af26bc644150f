// Package snpcatalog parses the known-SNP-locus catalog consumed by the
// dictionary builder: one locus per line, giving the chromosome, 1-based
// position, reference and alternate alleles, and their population
// frequencies.
package snpcatalog

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Locus is one known SNP site.
type Locus struct {
	Chrom   string
	Pos     uint64 // 1-based, within Chrom
	Ref     byte   // 'A','C','G', or 'T'
	Alt     byte
	RefFreq float64 // in [0, 1]
	AltFreq float64
}

// Parse reads a whitespace-delimited SNP catalog: "<chrom> <pos> <ref>
// <alt> <ref_freq> <alt_freq>" per line, mirroring the field order the
// reference implementation reads with a single scanf call.
func Parse(r io.Reader) ([]Locus, error) {
	var loci []Locus
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 6 {
			return nil, errors.Errorf("snpcatalog: line %d: expected 6 fields, got %d", lineNo, len(fields))
		}
		pos, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "snpcatalog: line %d: bad position", lineNo)
		}
		if len(fields[2]) != 1 || len(fields[3]) != 1 {
			return nil, errors.Errorf("snpcatalog: line %d: ref/alt must be single bases", lineNo)
		}
		refFreq, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "snpcatalog: line %d: bad ref_freq", lineNo)
		}
		altFreq, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "snpcatalog: line %d: bad alt_freq", lineNo)
		}
		loci = append(loci, Locus{
			Chrom:   fields[0],
			Pos:     pos,
			Ref:     fields[2][0],
			Alt:     fields[3][0],
			RefFreq: refFreq,
			AltFreq: altFreq,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "snpcatalog: reading catalog")
	}
	return loci, nil
}

// EncodeFreq maps a frequency in [0, 1] to the u8 encoding v/255 used in
// dict records.
func EncodeFreq(f float64) byte {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return byte(f*255.0 + 0.5)
}
