package popgen

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Reference exposes per-chromosome sequence text and metadata, loaded
// from a multi-sequence FASTA file. Chromosome indices are 1-based in
// file declaration order.
type Reference struct {
	seqs []string
	meta GenomeMetadata
}

// LoadReference reads a FASTA file, gzipped when the path ends in .gz.
// Sequence text is uppercased; the MD5 recorded per chromosome is the
// checksum of the uppercased sequence with line breaks removed.
func LoadReference(path string) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening reference: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzipped reference: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return ReadFasta(r)
}

// ReadFasta parses FASTA text from r.
func ReadFasta(r io.Reader) (*Reference, error) {
	ref := &Reference{}
	var id string
	var seq strings.Builder

	flush := func() {
		if id == "" {
			return
		}
		s := strings.ToUpper(seq.String())
		sum := md5.Sum([]byte(s))
		ref.seqs = append(ref.seqs, s)
		ref.meta = append(ref.meta, SequenceMetadata{
			SeqID:  id,
			SeqLen: int64(len(s)),
			SeqMD5: hex.EncodeToString(sum[:]),
		})
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<26)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '>' {
			flush()
			fields := strings.Fields(line[1:])
			if len(fields) == 0 {
				return nil, fmt.Errorf("FASTA header with no sequence id")
			}
			id = fields[0]
			seq.Reset()
			continue
		}
		if id == "" {
			return nil, fmt.Errorf("FASTA sequence data before first header")
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading FASTA: %w", err)
	}
	flush()
	if len(ref.seqs) == 0 {
		return nil, fmt.Errorf("FASTA contains no sequences")
	}
	return ref, nil
}

// Seq returns chromosome chrom's sequence text (1-based index).
func (r *Reference) Seq(chrom int) (string, error) {
	if chrom < 1 || chrom > len(r.seqs) {
		return "", fmt.Errorf("reference has no chromosome %d (have %d)", chrom, len(r.seqs))
	}
	return r.seqs[chrom-1], nil
}

// Metadata returns the per-chromosome metadata in declaration order.
func (r *Reference) Metadata() GenomeMetadata {
	return r.meta
}

// ChromosomeCount returns the number of sequences in the reference.
func (r *Reference) ChromosomeCount() int {
	return len(r.seqs)
}
