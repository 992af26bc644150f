package dict

import (
	"encoding/binary"
	"hash"
	"io"

	"github.com/blainsmith/seahash"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// checksumWriter tees everything written through it into a running seahash
// digest, the way cmd/bio-pamtool's checksum path does for its output files.
type checksumWriter struct {
	w io.Writer
	h hash.Hash64
}

func newChecksumWriter(w io.Writer) *checksumWriter {
	return &checksumWriter{w: w, h: seahash.New()}
}

func (c *checksumWriter) Write(p []byte) (int, error) {
	c.h.Write(p)
	return c.w.Write(p)
}

func (c *checksumWriter) writeTrailer() error {
	var trailer [8]byte
	binary.LittleEndian.PutUint64(trailer[:], c.h.Sum64())
	_, err := c.w.Write(trailer[:])
	return err
}

type checksumReader struct {
	r io.Reader
	h hash.Hash64
}

func newChecksumReader(r io.Reader) *checksumReader {
	return &checksumReader{r: r, h: seahash.New()}
}

func (c *checksumReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.h.Write(p[:n])
	return n, err
}

func (c *checksumReader) verify(r io.Reader) error {
	var trailer [8]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return errors.Wrap(err, "reading checksum trailer")
	}
	if binary.LittleEndian.Uint64(trailer[:]) != c.h.Sum64() {
		return errors.New("dict: checksum mismatch")
	}
	return nil
}

// WriteRefDict writes a reference-dictionary file: a little-endian u64 dict
// entry count, a u64 aux-row count, the entries in ascending k-mer order,
// then the aux rows. When checksum is true the body is seahash-checksummed
// and an 8-byte trailer is appended, mirroring cmd/bio-pamtool's checksummed
// output files.
func WriteRefDict(dst io.Writer, records []RefRecord, aux []RefAuxRow, checksum bool) error {
	var cw *checksumWriter
	w := dst
	if checksum {
		cw = newChecksumWriter(dst)
		w = cw
	}

	var hdr [16]byte
	binary.LittleEndian.PutUint64(hdr[0:8], uint64(len(records)))
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(len(aux)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "ref dict: writing header")
	}

	buf := make([]byte, 13) // kmer(8) + pos(4) + ambig_flag(1)
	for _, rec := range records {
		binary.LittleEndian.PutUint64(buf[0:8], rec.Kmer)
		binary.LittleEndian.PutUint32(buf[8:12], rec.Pos)
		buf[12] = rec.AmbigFlag
		if _, err := w.Write(buf); err != nil {
			return errors.Wrap(err, "ref dict: writing entry")
		}
	}

	auxBuf := make([]byte, 4*AuxTableCols)
	for _, row := range aux {
		for i, pos := range row {
			binary.LittleEndian.PutUint32(auxBuf[i*4:i*4+4], pos)
		}
		if _, err := w.Write(auxBuf); err != nil {
			return errors.Wrap(err, "ref dict: writing aux row")
		}
	}

	if cw != nil {
		if err := cw.writeTrailer(); err != nil {
			return errors.Wrap(err, "ref dict: writing checksum trailer")
		}
	}
	return nil
}

// ReadRefDict is the inverse of WriteRefDict.
func ReadRefDict(src io.Reader, checksum bool) ([]RefRecord, []RefAuxRow, error) {
	var cr *checksumReader
	r := src
	if checksum {
		cr = newChecksumReader(src)
		r = cr
	}

	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, nil, errors.Wrap(err, "ref dict: reading header")
	}
	nRecords := binary.LittleEndian.Uint64(hdr[0:8])
	nAux := binary.LittleEndian.Uint64(hdr[8:16])

	records := make([]RefRecord, nRecords)
	buf := make([]byte, 13)
	for i := range records {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, nil, errors.Wrap(err, "ref dict: reading entry")
		}
		records[i] = RefRecord{
			Kmer:      binary.LittleEndian.Uint64(buf[0:8]),
			Pos:       binary.LittleEndian.Uint32(buf[8:12]),
			AmbigFlag: buf[12],
		}
	}

	aux := make([]RefAuxRow, nAux)
	auxBuf := make([]byte, 4*AuxTableCols)
	for i := range aux {
		if _, err := io.ReadFull(r, auxBuf); err != nil {
			return nil, nil, errors.Wrap(err, "ref dict: reading aux row")
		}
		for j := 0; j < AuxTableCols; j++ {
			aux[i][j] = binary.LittleEndian.Uint32(auxBuf[j*4 : j*4+4])
		}
	}

	if checksum {
		if err := cr.verify(src); err != nil {
			return nil, nil, err
		}
	}
	return records, aux, nil
}

// WriteSnpDict writes a SNP-dictionary file in the same framed shape as
// WriteRefDict: header, sorted entries, then aux rows (each aux row keeps
// its own k-mer since SNP aux entries are never re-derived from a bucket
// search).
func WriteSnpDict(dst io.Writer, records []SnpRecord, aux []SnpAuxRow, checksum bool) error {
	var cw *checksumWriter
	w := dst
	if checksum {
		cw = newChecksumWriter(dst)
		w = cw
	}

	var hdr [16]byte
	binary.LittleEndian.PutUint64(hdr[0:8], uint64(len(records)))
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(len(aux)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "snp dict: writing header")
	}

	buf := make([]byte, 16) // kmer(8)+pos(4)+snp_info(1)+ambig_flag(1)+ref_freq(1)+alt_freq(1)
	for _, rec := range records {
		binary.LittleEndian.PutUint64(buf[0:8], rec.Kmer)
		binary.LittleEndian.PutUint32(buf[8:12], rec.Pos)
		buf[12] = rec.SnpInfo
		buf[13] = rec.AmbigFlag
		buf[14] = rec.RefFreq
		buf[15] = rec.AltFreq
		if _, err := w.Write(buf); err != nil {
			return errors.Wrap(err, "snp dict: writing entry")
		}
	}

	auxBuf := make([]byte, 8+AuxTableCols*7)
	for _, row := range aux {
		binary.LittleEndian.PutUint64(auxBuf[0:8], row.Kmer)
		off := 8
		for i := 0; i < AuxTableCols; i++ {
			binary.LittleEndian.PutUint32(auxBuf[off:off+4], row.Pos[i])
			off += 4
		}
		for i := 0; i < AuxTableCols; i++ {
			auxBuf[off] = row.SnpInfo[i]
			off++
		}
		for i := 0; i < AuxTableCols; i++ {
			auxBuf[off] = row.RefFreq[i]
			off++
		}
		for i := 0; i < AuxTableCols; i++ {
			auxBuf[off] = row.AltFreq[i]
			off++
		}
		if _, err := w.Write(auxBuf); err != nil {
			return errors.Wrap(err, "snp dict: writing aux row")
		}
	}

	if cw != nil {
		if err := cw.writeTrailer(); err != nil {
			return errors.Wrap(err, "snp dict: writing checksum trailer")
		}
	}
	return nil
}

// ReadSnpDict is the inverse of WriteSnpDict.
func ReadSnpDict(src io.Reader, checksum bool) ([]SnpRecord, []SnpAuxRow, error) {
	var cr *checksumReader
	r := src
	if checksum {
		cr = newChecksumReader(src)
		r = cr
	}

	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, nil, errors.Wrap(err, "snp dict: reading header")
	}
	nRecords := binary.LittleEndian.Uint64(hdr[0:8])
	nAux := binary.LittleEndian.Uint64(hdr[8:16])

	records := make([]SnpRecord, nRecords)
	buf := make([]byte, 16)
	for i := range records {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, nil, errors.Wrap(err, "snp dict: reading entry")
		}
		records[i] = SnpRecord{
			Kmer:      binary.LittleEndian.Uint64(buf[0:8]),
			Pos:       binary.LittleEndian.Uint32(buf[8:12]),
			SnpInfo:   buf[12],
			AmbigFlag: buf[13],
			RefFreq:   buf[14],
			AltFreq:   buf[15],
		}
	}

	aux := make([]SnpAuxRow, nAux)
	auxBuf := make([]byte, 8+AuxTableCols*7)
	for i := range aux {
		if _, err := io.ReadFull(r, auxBuf); err != nil {
			return nil, nil, errors.Wrap(err, "snp dict: reading aux row")
		}
		aux[i].Kmer = binary.LittleEndian.Uint64(auxBuf[0:8])
		off := 8
		for j := 0; j < AuxTableCols; j++ {
			aux[i].Pos[j] = binary.LittleEndian.Uint32(auxBuf[off : off+4])
			off += 4
		}
		for j := 0; j < AuxTableCols; j++ {
			aux[i].SnpInfo[j] = auxBuf[off]
			off++
		}
		for j := 0; j < AuxTableCols; j++ {
			aux[i].RefFreq[j] = auxBuf[off]
			off++
		}
		for j := 0; j < AuxTableCols; j++ {
			aux[i].AltFreq[j] = auxBuf[off]
			off++
		}
	}

	if checksum {
		if err := cr.verify(src); err != nil {
			return nil, nil, err
		}
	}
	return records, aux, nil
}

// SnappyWriter and SnappyReader wrap the optional compressed-dict-file path
// (the DOMAIN STACK enrichment described in SPEC_FULL.md): a dict file may
// be stored snappy-framed to shrink it on disk, the way bio-pamtool
// optionally snappy-compresses its PAM blocks. The caller (cmd/lava) is
// responsible for recording whether a given file was written this way.
func SnappyWriter(w io.Writer) io.WriteCloser {
	return snappy.NewBufferedWriter(w)
}

func SnappyReader(r io.Reader) io.Reader {
	return snappy.NewReader(r)
}
