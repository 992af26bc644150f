// Package output writes the final genotype-call text file: one line per
// alt or het call, in increasing absolute-reference-position order,
// translated from an absolute position to a (chromosome, 1-based offset)
// pair via the chromosome-length list.
//
// This is a deliberately simplified rendition of the reference
// implementation's pileup/snp output stage, which emits multiple TSV/bgzip
// variants with per-read feature columns; here there is exactly one output
// format, matching the specification's plain-text contract.
package output

import (
	"bufio"
	"io"
	"strconv"

	"github.com/arshajii/lava/chrlens"
	"github.com/arshajii/lava/genotype"
	"github.com/arshajii/lava/pileup"
	"github.com/pkg/errors"
)

// confidencePrecision is the number of significant digits written for a
// call's confidence, comfortably above the specification's 12-digit floor.
const confidencePrecision = 15

// Write walks table's positions in increasing order and, for every locus
// that receives an Alt or Het genotype call, writes a
// "<chromosome> <1-based offset> <confidence>\n" line. Ref and None calls
// are not written, though they are still implicitly counted by having been
// scored. chrs must cover every position table names a SNP at, in the same
// chromosome order the dictionaries were built from.
func Write(w io.Writer, table *pileup.Table, chrs []chrlens.Entry) (err error) {
	bw := bufio.NewWriter(w)
	defer func() {
		if ferr := bw.Flush(); err == nil {
			err = ferr
		}
	}()

	for pos := 1; pos <= table.Len(); pos++ {
		e := table.Get(uint32(pos))
		if !e.IsSNP() {
			continue
		}
		result := genotype.Call(int(e.RefCnt), int(e.AltCnt), e.RefFreq, e.AltFreq)
		if result.Genotype != genotype.Het && result.Genotype != genotype.Alt {
			continue
		}
		chrom, offset, ok := chrlens.Locate(chrs, uint64(pos))
		if !ok {
			return errors.Errorf("output: position %d is not covered by the chromosome-length list", pos)
		}
		conf := strconv.FormatFloat(result.Confidence, 'g', confidencePrecision, 64)
		if _, err := bw.WriteString(chrom); err != nil {
			return err
		}
		if err := bw.WriteByte(' '); err != nil {
			return err
		}
		if _, err := bw.WriteString(strconv.FormatUint(offset, 10)); err != nil {
			return err
		}
		if err := bw.WriteByte(' '); err != nil {
			return err
		}
		if _, err := bw.WriteString(conf); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}
