/*
lava is a genotype caller for known SNP loci. It has two subcommands:

	lava dict <ref.fasta> <snps.txt> <out.refdict> <out.snpdict>
	lava lava <refdict> <snpdict> <fastq> <chrlens> <out>
	lava help

"dict" builds the reference and SNP k-mer dictionaries from a reference
genome and a known-SNP catalog, and additionally writes <ref.fasta>.chrlens.
"lava" streams a FASTQ file through the dictionaries and writes one
alt/het genotype call line per known SNP locus.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"

	"github.com/arshajii/lava/chrlens"
	"github.com/arshajii/lava/dict"
	"github.com/arshajii/lava/diag"
	"github.com/arshajii/lava/encoding/fasta"
	"github.com/arshajii/lava/encoding/fastq"
	"github.com/arshajii/lava/output"
	"github.com/arshajii/lava/pileup"
	"github.com/arshajii/lava/scan"
	"github.com/arshajii/lava/snpcatalog"
)

// maybeGunzip wraps r in a gzip reader when path ends in ".gz", so every
// text collaborator (fasta, snpcatalog, fastq) transparently accepts a
// compressed input, the way pileup/common.go's LoadFa does for its FASTA
// inputs.
func maybeGunzip(path string, r io.Reader) (io.Reader, error) {
	if !strings.HasSuffix(path, ".gz") {
		return r, nil
	}
	return gzip.NewReader(r)
}

// compressedMagic prefixes a dict file written with -snappy so the loader
// can auto-detect it without a separate out-of-band flag.
const compressedMagic = 0x01
const uncompressedMagic = 0x00

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <command> [args]

Commands:
  dict <ref.fasta> <snps.txt> <out.refdict> <out.snpdict>
        Build the reference and SNP dictionaries, and <ref.fasta>.chrlens.
  lava <refdict> <snpdict> <fastq> <chrlens> <out>
        Run the genotype caller, writing one line per alt/het call.
  help
        Print this message.
`, os.Args[0])
}

func main() {
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
	shutdown := grail.Init()
	defer shutdown()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := vcontext.Background()
	args := os.Args[2:]
	switch os.Args[1] {
	case "dict":
		runDict(ctx, args)
	case "lava":
		runLava(ctx, args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", os.Args[0], os.Args[1])
		usage()
		os.Exit(2)
	}
}

func runDict(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("dict", flag.ExitOnError)
	checksum := fs.Bool("checksum", true, "append a seahash checksum trailer to each dict file")
	snappyCompress := fs.Bool("snappy", false, "snappy-compress the dict files on disk")
	fs.Usage = usage
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	if fs.NArg() != 4 {
		usage()
		os.Exit(2)
	}
	refPath, snpPath, outRefPath, outSnpPath := fs.Arg(0), fs.Arg(1), fs.Arg(2), fs.Arg(3)

	refIn, err := file.Open(ctx, refPath)
	if err != nil {
		log.Fatalf("dict: opening %s: %v", refPath, err)
	}
	refBody, err := maybeGunzip(refPath, refIn.Reader(ctx))
	if err != nil {
		log.Fatalf("dict: gunzipping %s: %v", refPath, err)
	}
	ref, err := fasta.New(refBody)
	if err != nil {
		log.Fatalf("dict: parsing %s: %v", refPath, err)
	}
	if err := refIn.Close(ctx); err != nil {
		log.Fatalf("dict: closing %s: %v", refPath, err)
	}

	snpIn, err := file.Open(ctx, snpPath)
	if err != nil {
		log.Fatalf("dict: opening %s: %v", snpPath, err)
	}
	snpBody, err := maybeGunzip(snpPath, snpIn.Reader(ctx))
	if err != nil {
		log.Fatalf("dict: gunzipping %s: %v", snpPath, err)
	}
	loci, err := snpcatalog.Parse(snpBody)
	if err != nil {
		log.Fatalf("dict: parsing %s: %v", snpPath, err)
	}
	if err := snpIn.Close(ctx); err != nil {
		log.Fatalf("dict: closing %s: %v", snpPath, err)
	}

	log.Debug.Printf("dict: building reference dictionary from %s", refPath)
	refRecords, refAux, err := dict.BuildRefDict(ref)
	if err != nil {
		log.Fatalf("dict: building reference dictionary: %v", err)
	}
	if err := writeDictFile(ctx, outRefPath, *snappyCompress, func(w io.Writer) error {
		return dict.WriteRefDict(w, refRecords, refAux, *checksum)
	}); err != nil {
		log.Fatalf("dict: writing %s: %v", outRefPath, err)
	}

	log.Debug.Printf("dict: building SNP dictionary from %s loci", snpPath)
	snpRecords, snpAux, err := dict.BuildSnpDict(ref, loci)
	if err != nil {
		log.Fatalf("dict: building SNP dictionary: %v", err)
	}
	if err := writeDictFile(ctx, outSnpPath, *snappyCompress, func(w io.Writer) error {
		return dict.WriteSnpDict(w, snpRecords, snpAux, *checksum)
	}); err != nil {
		log.Fatalf("dict: writing %s: %v", outSnpPath, err)
	}

	var entries []chrlens.Entry
	for _, name := range ref.SeqNames() {
		n, lerr := ref.Len(name)
		if lerr != nil {
			log.Fatalf("dict: measuring sequence %s: %v", name, lerr)
		}
		entries = append(entries, chrlens.Entry{Name: name, Len: n})
	}
	chrlensOut, err := file.Create(ctx, refPath+".chrlens")
	if err != nil {
		log.Fatalf("dict: creating chrlens file: %v", err)
	}
	if err := chrlens.Write(chrlensOut.Writer(ctx), entries); err != nil {
		log.Fatalf("dict: writing chrlens file: %v", err)
	}
	if err := chrlensOut.Close(ctx); err != nil {
		log.Fatalf("dict: closing chrlens file: %v", err)
	}
	log.Debug.Printf("dict: done: %d ref entries, %d snp entries, %d chromosomes",
		len(refRecords), len(snpRecords), len(entries))
}

// writeDictFile writes a one-byte compression marker followed by the
// dict file body produced by writeBody, optionally snappy-wrapping the
// body so the loader in runLava can auto-detect it.
func writeDictFile(ctx context.Context, path string, snappyCompress bool, writeBody func(io.Writer) error) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)

	w := out.Writer(ctx)
	if snappyCompress {
		if _, err := w.Write([]byte{compressedMagic}); err != nil {
			return err
		}
		sw := dict.SnappyWriter(w)
		if err := writeBody(sw); err != nil {
			return err
		}
		return sw.Close()
	}
	if _, err := w.Write([]byte{uncompressedMagic}); err != nil {
		return err
	}
	return writeBody(w)
}

// openDictFile reads the compression marker written by writeDictFile and
// returns a reader ready for dict.ReadRefDict/ReadSnpDict.
func openDictFile(r io.Reader) (io.Reader, error) {
	var magic [1]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic[0] == compressedMagic {
		return dict.SnappyReader(r), nil
	}
	return r, nil
}

func runLava(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("lava", flag.ExitOnError)
	checksum := fs.Bool("checksum", true, "verify the seahash checksum trailer on each dict file")
	debug := fs.Bool("debug", false, "dump scanner diagnostic counters when done")
	fs.Usage = usage
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	if fs.NArg() != 5 {
		usage()
		os.Exit(2)
	}
	refDictPath, snpDictPath, fastqPath, chrlensPath, outPath := fs.Arg(0), fs.Arg(1), fs.Arg(2), fs.Arg(3), fs.Arg(4)

	refDict := loadRefDict(ctx, refDictPath, *checksum)
	snpDict := loadSnpDict(ctx, snpDictPath, *checksum)

	chrlensIn, err := file.Open(ctx, chrlensPath)
	if err != nil {
		log.Fatalf("lava: opening %s: %v", chrlensPath, err)
	}
	chrs, err := chrlens.Read(chrlensIn.Reader(ctx))
	if err != nil {
		log.Fatalf("lava: parsing %s: %v", chrlensPath, err)
	}
	if err := chrlensIn.Close(ctx); err != nil {
		log.Fatalf("lava: closing %s: %v", chrlensPath, err)
	}

	var maxPos uint64
	for _, e := range chrs {
		maxPos += e.Len
	}
	table := pileup.NewTable(int(maxPos) + 33)
	dict.PopulatePileup(table, snpDict)

	fastqIn, err := file.Open(ctx, fastqPath)
	if err != nil {
		log.Fatalf("lava: opening %s: %v", fastqPath, err)
	}
	fastqBody, err := maybeGunzip(fastqPath, fastqIn.Reader(ctx))
	if err != nil {
		log.Fatalf("lava: gunzipping %s: %v", fastqPath, err)
	}

	counters := &diag.Counters{}
	session := scan.NewSession(refDict, snpDict, table, counters)

	fqScanner := fastq.NewScanner(fastqBody)
	var rd fastq.Read
	for fqScanner.Scan(&rd) {
		session.ProcessRead([]byte(rd.Seq))
	}
	if err := fqScanner.Err(); err != nil {
		log.Fatalf("lava: reading %s: %v", fastqPath, err)
	}
	if err := fastqIn.Close(ctx); err != nil {
		log.Fatalf("lava: closing %s: %v", fastqPath, err)
	}

	if *debug {
		counters.Dump()
	}

	out, err := file.Create(ctx, outPath)
	if err != nil {
		log.Fatalf("lava: creating %s: %v", outPath, err)
	}
	if err := output.Write(out.Writer(ctx), table, chrs); err != nil {
		log.Fatalf("lava: writing %s: %v", outPath, err)
	}
	if err := out.Close(ctx); err != nil {
		log.Fatalf("lava: closing %s: %v", outPath, err)
	}
	log.Debug.Printf("lava: done, results written to %s", outPath)
}

func loadRefDict(ctx context.Context, path string, checksum bool) *dict.RefDict {
	in, err := file.Open(ctx, path)
	if err != nil {
		log.Fatalf("lava: opening %s: %v", path, err)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil {
			log.Fatalf("lava: closing %s: %v", path, cerr)
		}
	}()
	body, err := openDictFile(in.Reader(ctx))
	if err != nil {
		log.Fatalf("lava: reading %s: %v", path, err)
	}
	d, err := dict.LoadRefDict(body, checksum)
	if err != nil {
		log.Fatalf("lava: loading %s: %v", path, err)
	}
	return d
}

func loadSnpDict(ctx context.Context, path string, checksum bool) *dict.SnpDict {
	in, err := file.Open(ctx, path)
	if err != nil {
		log.Fatalf("lava: opening %s: %v", path, err)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil {
			log.Fatalf("lava: closing %s: %v", path, cerr)
		}
	}()
	body, err := openDictFile(in.Reader(ctx))
	if err != nil {
		log.Fatalf("lava: reading %s: %v", path, err)
	}
	d, err := dict.LoadSnpDict(body, checksum)
	if err != nil {
		log.Fatalf("lava: loading %s: %v", path, err)
	}
	return d
}
