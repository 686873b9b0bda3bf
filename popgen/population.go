package popgen

import (
	"fmt"
	"math/rand"

	"gopkg.in/yaml.v3"
)

// SampleBlock is one element of the lazy sample sequence: a named
// sample's genotype for one chromosome, plus how far through the
// population the producer is.
type SampleBlock struct {
	SampleName string
	Genotype   SampleGenotype
	FracDone   float64
}

// SampleSeq is a finite, restartable lazy sequence of SampleBlocks. The
// producer suspends between elements: each Next call computes exactly one
// sample, so the caller can interleave progress reporting or store writes.
// Ceasing to call Next abandons the sequence with nothing to clean up.
type SampleSeq interface {
	Next() (SampleBlock, bool)
}

// PopulationModel draws per-sample genotypes from a frozen master list.
// Samples must be restartable for a fresh seed and must not buffer the
// whole population in memory.
type PopulationModel interface {
	Samples(chrom int, ml *MasterVariantList, seed int64) (SampleSeq, error)

	// SampleCountEstimate reports how many samples one Samples sequence
	// will yield, for progress estimation before any sampling occurs.
	SampleCountEstimate() int
}

// PopulationModelFactory builds a PopulationModel from its YAML parameter
// node.
type PopulationModelFactory func(params *yaml.Node) (PopulationModel, error)

var populationRegistry = map[string]PopulationModelFactory{
	"standard": newStandardModel,
}

// NewPopulationModel instantiates a registered population model.
func NewPopulationModel(name string, params *yaml.Node) (PopulationModel, error) {
	factory, ok := populationRegistry[name]
	if !ok {
		return nil, fmt.Errorf("population model %q: %w", name, ErrUnknownModel)
	}
	return factory(params)
}

// PopulationModelNames returns the registered population model names,
// sorted.
func PopulationModelNames() []string {
	return registryNames(populationRegistry)
}

// StandardModel samples each chromosome copy of each individual
// independently: master-list entry i is included on a copy with
// probability equal to that record's P (i.i.d. Bernoulli draws from one
// stream per invocation). Zygosity follows from the pair of
// copy-inclusion outcomes.
type StandardModel struct {
	SampleSize int
}

type standardParams struct {
	SampleSize int `yaml:"sample_size"`
}

func newStandardModel(params *yaml.Node) (PopulationModel, error) {
	p := standardParams{SampleSize: 1}
	if params != nil {
		if err := params.Decode(&p); err != nil {
			return nil, fmt.Errorf("standard params: %w", err)
		}
	}
	if p.SampleSize < 1 {
		return nil, fmt.Errorf("standard: sample_size must be >= 1, got %d: %w", p.SampleSize, ErrBadModelParams)
	}
	return &StandardModel{SampleSize: p.SampleSize}, nil
}

// SampleCountEstimate implements PopulationModel for StandardModel.
func (m *StandardModel) SampleCountEstimate() int {
	return m.SampleSize
}

// Samples implements PopulationModel for StandardModel. Sample names are
// s0, s1, ... in yield order.
func (m *StandardModel) Samples(chrom int, ml *MasterVariantList, seed int64) (SampleSeq, error) {
	if err := validateSeed(seed); err != nil {
		return nil, err
	}
	return &standardSeq{
		ml:    ml,
		rng:   rand.New(rand.NewSource(seed)),
		total: m.SampleSize,
	}, nil
}

type standardSeq struct {
	ml    *MasterVariantList
	rng   *rand.Rand
	total int
	done  int
}

// Next implements SampleSeq for standardSeq.
func (s *standardSeq) Next() (SampleBlock, bool) {
	if s.done >= s.total {
		return SampleBlock{}, false
	}
	var gt SampleGenotype
	for i, v := range s.ml.Variants {
		copy0 := s.rng.Float64() < v.P
		copy1 := s.rng.Float64() < v.P
		switch {
		case copy0 && copy1:
			gt = append(gt, GenotypeEntry{Index: int64(i), GT: Hom})
		case copy0:
			gt = append(gt, GenotypeEntry{Index: int64(i), GT: HetCopy0})
		case copy1:
			gt = append(gt, GenotypeEntry{Index: int64(i), GT: HetCopy1})
		}
	}
	block := SampleBlock{
		SampleName: fmt.Sprintf("s%d", s.done),
		Genotype:   gt,
		FracDone:   float64(s.done+1) / float64(s.total),
	}
	s.done++
	return block, true
}
