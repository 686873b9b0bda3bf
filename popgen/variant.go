package popgen

import (
	"fmt"
	"sort"
	"strings"
)

// VariantRecord is one candidate variant on a reference chromosome.
// Positions are 0-indexed; the affected span is [Pos, Stop). Invariant:
// Pos < Stop, the span lies within chromosome bounds and contains no
// masked ('N') reference bases.
type VariantRecord struct {
	Pos  int64   `db:"pos"`
	Stop int64   `db:"stop"`
	Ref  string  `db:"ref"`
	Alt  string  `db:"alt"`
	P    float64 `db:"p"` // probability weight in [0, 1)
}

// IndelLen returns len(Alt) - len(Ref): negative for deletions, positive
// for insertions, zero for SNPs.
func (v VariantRecord) IndelLen() int {
	return len(v.Alt) - len(v.Ref)
}

// Zygosity tags which chromosome copies carry a sampled variant. The
// numeric values are the store's persistent encoding and match the VCF
// genotype convention: 0 = alt on copy 0 only ("1|0"), 1 = alt on copy 1
// only ("0|1"), 2 = both copies ("1|1").
type Zygosity int8

const (
	HetCopy0 Zygosity = 0
	HetCopy1 Zygosity = 1
	Hom      Zygosity = 2
)

// GenotypeEntry references one master-list entry carried by a sample.
type GenotypeEntry struct {
	Index int64    `db:"idx"` // index into the chromosome's frozen master list
	GT    Zygosity `db:"gt"`
}

// SampleGenotype is one sample's variant set for one chromosome, in the
// insertion order produced by the sampling engine.
type SampleGenotype []GenotypeEntry

// MasterVariantList is the per-chromosome catalogue of candidate variants.
// Plugins append five-tuple batches with Add; the assembler sorts and
// freezes the list before it reaches the store. A frozen list rejects all
// further mutation.
type MasterVariantList struct {
	Variants []VariantRecord
	frozen   bool
}

// Add appends one plugin's output batch. The five slices must be equal
// length (the plugin contract); a mismatch is a programming error.
func (ml *MasterVariantList) Add(pos, stop []int64, ref, alt []string, p []float64) {
	if ml.frozen {
		panic("MasterVariantList.Add: list is frozen")
	}
	if len(stop) != len(pos) || len(ref) != len(pos) || len(alt) != len(pos) || len(p) != len(pos) {
		panic(fmt.Sprintf("MasterVariantList.Add: ragged batch (%d, %d, %d, %d, %d)",
			len(pos), len(stop), len(ref), len(alt), len(p)))
	}
	for i := range pos {
		ml.Variants = append(ml.Variants, VariantRecord{
			Pos: pos[i], Stop: stop[i], Ref: ref[i], Alt: alt[i], P: p[i],
		})
	}
}

// Sort orders the list ascending by Pos. The sort is stable: records at
// the same position keep their plugin emission order.
func (ml *MasterVariantList) Sort() {
	if ml.frozen {
		panic("MasterVariantList.Sort: list is frozen")
	}
	sort.SliceStable(ml.Variants, func(i, j int) bool {
		return ml.Variants[i].Pos < ml.Variants[j].Pos
	})
}

// Freeze makes the list immutable. Freezing twice is harmless.
func (ml *MasterVariantList) Freeze() {
	ml.frozen = true
}

// Frozen reports whether the list has been frozen.
func (ml *MasterVariantList) Frozen() bool {
	return ml.frozen
}

// Len returns the number of catalogued variants.
func (ml *MasterVariantList) Len() int {
	return len(ml.Variants)
}

// String renders a short site-frequency summary of the list, used by the
// `db sfs` query.
func (ml *MasterVariantList) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d variants\n", len(ml.Variants))
	counts := probabilityHistogram(ml.Variants, 10)
	for i, c := range counts {
		fmt.Fprintf(&b, "p in [%.2f, %.2f): %d\n", float64(i)/10, float64(i+1)/10, c)
	}
	return b.String()
}

// probabilityHistogram counts records per uniform probability bin on [0,1).
func probabilityHistogram(variants []VariantRecord, bins int) []int {
	counts := make([]int, bins)
	for _, v := range variants {
		b := int(v.P * float64(bins))
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		counts[b]++
	}
	return counts
}
