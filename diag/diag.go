// Package diag holds process-wide diagnostic counters for the scanner: how
// many reads were skipped for containing non-ACGT bases, how many were
// placed, and how many were discarded as ambiguous. Nothing here affects
// genotyping output; it exists purely to be dumped with -debug.
package diag

import (
	"sync/atomic"

	"github.com/grailbio/base/log"
)

// Counters tallies scanner outcomes across a run. The zero value is ready
// to use; all fields are updated with atomic adds so a future
// parallelized scanner can share one Counters across workers.
type Counters struct {
	ReadsSeen     int64
	SkippedN      int64 // read discarded: contained a non-ACGT base
	Processed     int64 // read placed: voter had a unique, freq>1 best
	Ambiguous     int64 // read discarded: voter had no usable best (no votes, tie, or freq==1)
	RevCompRetry  int64 // forward pass failed to place; reverse-complement retry was attempted
}

// IncReadsSeen records one more read examined.
func (c *Counters) IncReadsSeen() { atomic.AddInt64(&c.ReadsSeen, 1) }

// IncSkippedN records one more read discarded for a non-ACGT base.
func (c *Counters) IncSkippedN() { atomic.AddInt64(&c.SkippedN, 1) }

// IncProcessed records one more read successfully placed.
func (c *Counters) IncProcessed() { atomic.AddInt64(&c.Processed, 1) }

// IncAmbiguous records one more read that could not be placed.
func (c *Counters) IncAmbiguous() { atomic.AddInt64(&c.Ambiguous, 1) }

// IncRevCompRetry records one more reverse-complement retry attempt.
func (c *Counters) IncRevCompRetry() { atomic.AddInt64(&c.RevCompRetry, 1) }

// Dump logs a snapshot of every counter at log.Debug level.
func (c *Counters) Dump() {
	log.Debug.Printf("diag: reads_seen=%d processed=%d ambiguous=%d skipped_n=%d revcomp_retry=%d",
		atomic.LoadInt64(&c.ReadsSeen),
		atomic.LoadInt64(&c.Processed),
		atomic.LoadInt64(&c.Ambiguous),
		atomic.LoadInt64(&c.SkippedN),
		atomic.LoadInt64(&c.RevCompRetry),
	)
}
