package popgen

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gopkg.in/yaml.v3"
)

// VariantGenerator places candidate variants on a reference sequence. The
// five returned slices are equal length: positions, exclusive stops,
// reference alleles, alternate alleles and per-variant probability
// weights. Implementations draw exclusively from streams derived from the
// given seed, so identical inputs always yield identical output.
type VariantGenerator interface {
	GetVariants(ref string, pBins, fBins []float64, seed int64) (pos, stop []int64, refs, alts []string, p []float64, err error)
}

// VariantGeneratorFactory builds a VariantGenerator from its YAML
// parameter node. Parameter validation happens here, before any
// generation runs.
type VariantGeneratorFactory func(params *yaml.Node) (VariantGenerator, error)

// variantRegistry maps model names to factories. Populated once at
// process start; no runtime discovery.
var variantRegistry = map[string]VariantGeneratorFactory{
	"snp":    newSNPModel,
	"delete": newDeleteModel,
	"insert": newInsertModel,
}

// NewVariantGenerator instantiates a registered variant model.
func NewVariantGenerator(name string, params *yaml.Node) (VariantGenerator, error) {
	factory, ok := variantRegistry[name]
	if !ok {
		return nil, fmt.Errorf("variant model %q: %w", name, ErrUnknownModel)
	}
	return factory(params)
}

// VariantModelNames returns the registered variant model names, sorted.
func VariantModelNames() []string {
	return registryNames(variantRegistry)
}

func registryNames[T any](registry map[string]T) []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validateSeed(seed int64) error {
	if seed <= 0 || seed >= SeedMax {
		return fmt.Errorf("plugin seed %d out of range: %w", seed, ErrBadSeed)
	}
	return nil
}

// placePoisson walks the reference with geometric inter-arrival gaps at
// rate pEff, realizing a marked Poisson process on the discrete sequence.
// Candidates landing on a masked base are discarded as they are drawn;
// discarding does not stretch the remaining gaps.
func placePoisson(rng *rand.Rand, pEff float64, seq string) []int64 {
	if pEff <= 0 || len(seq) == 0 {
		return nil
	}
	logq := math.Log1p(-pEff)
	var locs []int64
	pos := int64(-1)
	for {
		pos += geometricGap(rng, logq)
		if pos >= int64(len(seq)) {
			return locs
		}
		if masked(seq[pos]) {
			continue
		}
		locs = append(locs, pos)
	}
}

// geometricGap draws a gap >= 1 from Geometric(p) by inverting the CDF.
// logq is log(1-p), precomputed by the caller.
func geometricGap(rng *rand.Rand, logq float64) int64 {
	u := rng.Float64()
	if logq == 0 {
		return math.MaxInt64 // p == 0: no arrivals
	}
	return 1 + int64(math.Log(1-u)/logq)
}

// geometricLength draws a length >= 1 from Geometric(pEnd), the waiting
// time for a termination event.
func geometricLength(rng *rand.Rand, pEnd float64) int64 {
	return geometricGap(rng, math.Log1p(-pEnd))
}

func masked(base byte) bool {
	return base == 'N' || base == 'n'
}

// spanLegal reports whether [pos, stop) lies inside the sequence and
// touches no masked base.
func spanLegal(seq string, pos, stop int64) bool {
	if pos < 0 || stop > int64(len(seq)) || pos >= stop {
		return false
	}
	for i := pos; i < stop; i++ {
		if masked(seq[i]) {
			return false
		}
	}
	return true
}
