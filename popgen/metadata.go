package popgen

import "fmt"

// SequenceMetadata describes one reference chromosome: its identifier in
// the source FASTA/VCF, its length in bases, and the MD5 checksum of its
// sequence text.
type SequenceMetadata struct {
	SeqID  string `db:"seq_id"`
	SeqLen int64  `db:"seq_len"`
	SeqMD5 string `db:"seq_md5"`
}

// GenomeMetadata is the ordered per-chromosome metadata set, indexed by
// chromosome serial (1-based, in declaration order).
type GenomeMetadata []SequenceMetadata

// Validate checks that other describes the same genome: same chromosome
// count, and per chromosome the same id, length and checksum. A zero MD5
// on either side skips the checksum comparison for that chromosome, since
// VCF headers frequently omit it.
func (g GenomeMetadata) Validate(other GenomeMetadata) error {
	if len(g) != len(other) {
		return fmt.Errorf("chromosome count %d vs %d: %w", len(g), len(other), ErrMetadataMismatch)
	}
	for i := range g {
		a, b := g[i], other[i]
		if a.SeqID != b.SeqID || a.SeqLen != b.SeqLen {
			return fmt.Errorf("chromosome %d: (%s, %d) vs (%s, %d): %w",
				i+1, a.SeqID, a.SeqLen, b.SeqID, b.SeqLen, ErrMetadataMismatch)
		}
		if a.SeqMD5 != "" && b.SeqMD5 != "" && a.SeqMD5 != b.SeqMD5 {
			return fmt.Errorf("chromosome %d (%s): md5 %s vs %s: %w",
				i+1, a.SeqID, a.SeqMD5, b.SeqMD5, ErrMetadataMismatch)
		}
	}
	return nil
}
