// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package biosimd provides the two byte-array primitives this module
// actually calls: ASCII sequence cleaning and in-place reverse complement.
//
// This is a trimmed descendant of the reference implementation's biosimd
// package, which also covered 2-bit/4-bit seq packing, fastq nibble
// decoding, SIMD-accelerated variants of all of the above, and their
// amd64 assembly stubs. None of that is reachable from this module's own
// code, so only the table-driven portable implementations of the two
// operations it does call were kept.
package biosimd
