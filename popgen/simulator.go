package popgen

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PopulationSimulator wires the configured models into per-chromosome
// pipelines: run each variant model against the reference, assemble and
// freeze the master list into the store, then stream sampled genotypes
// into the store one sample at a time.
type PopulationSimulator struct {
	cfg           *SimulationConfig
	ref           *Reference
	deriver       *SeedDeriver
	siteModel     SiteModel // nil when no site model configured
	pBins, fBins  []float64
	variantModels []VariantGenerator
	popModel      PopulationModel
	store         *Population

	mu                 sync.Mutex // serializes store writes in parallel runs
	UniqueVariantCount int64
	TotalVariantCount  int64
}

// NewPopulationSimulator validates the configuration and constructs every
// configured model. All configuration errors surface here, before any
// generation runs.
func NewPopulationSimulator(cfg *SimulationConfig, ref *Reference, store *Population) (*PopulationSimulator, error) {
	seed, err := NewMasterSeed(cfg.RNG.MasterSeed)
	if err != nil {
		return nil, err
	}

	s := &PopulationSimulator{
		cfg:     cfg,
		ref:     ref,
		deriver: NewSeedDeriver(seed),
		store:   store,
	}

	if cfg.SiteModel != nil {
		s.siteModel, err = NewSiteModel(cfg.SiteModel.Name, cfg.SiteModel.Params)
		if err != nil {
			return nil, err
		}
		s.pBins, s.fBins = s.siteModel.Spectrum()
	}

	for _, spec := range cfg.VariantModels {
		m, err := NewVariantGenerator(spec.Name, spec.Params)
		if err != nil {
			return nil, err
		}
		s.variantModels = append(s.variantModels, m)
	}

	popSpec := cfg.PopulationModel
	if popSpec == nil {
		popSpec = &ModelSpec{Name: "standard"}
	}
	s.popModel, err = NewPopulationModel(popSpec.Name, popSpec.Params)
	if err != nil {
		return nil, err
	}

	for _, chrom := range cfg.Chromosomes {
		if chrom > ref.ChromosomeCount() {
			return nil, fmt.Errorf("configured chromosome %d exceeds reference (%d sequences)",
				chrom, ref.ChromosomeCount())
		}
	}
	return s, nil
}

// Chromosomes returns the configured chromosome list.
func (s *PopulationSimulator) Chromosomes() []int {
	return s.cfg.Chromosomes
}

// TotalBlocks estimates the number of progress units a full run yields:
// one per (chromosome, sample).
func (s *PopulationSimulator) TotalBlocks() int {
	return len(s.cfg.Chromosomes) * s.popModel.SampleCountEstimate()
}

// Spectrum returns the active spectrum bins (nil, nil without a site
// model).
func (s *PopulationSimulator) Spectrum() ([]float64, []float64) {
	return s.pBins, s.fBins
}

// AssembleMasterList runs every configured variant model, in order,
// against chromosome chrom, merges and sorts the outputs and rebalances
// probabilities against the spectrum. The returned list is not yet
// frozen. Also returns the sampling seed derived for this chromosome.
func (s *PopulationSimulator) AssembleMasterList(chrom int) (*MasterVariantList, int64, error) {
	seq, err := s.ref.Seq(chrom)
	if err != nil {
		return nil, 0, err
	}
	seeds := s.deriver.Derive(chrom, len(s.variantModels)+1)

	ml := &MasterVariantList{}
	for i, m := range s.variantModels {
		pos, stop, refs, alts, p, err := m.GetVariants(seq, s.pBins, s.fBins, seeds[i])
		if err != nil {
			return nil, 0, fmt.Errorf("variant model %s chrom %d: %w", s.cfg.VariantModels[i].Name, chrom, err)
		}
		if len(pos) == 0 {
			logrus.Warnf("variant model %s produced no variants on chrom %d", s.cfg.VariantModels[i].Name, chrom)
		}
		ml.Add(pos, stop, refs, alts, p)
	}
	ml.Sort()
	if s.siteModel != nil {
		BalanceProbabilities(ml, s.pBins, s.fBins)
	}
	return ml, seeds[len(seeds)-1], nil
}

// GenerateChromosome runs one chromosome's full pipeline. progress (may
// be nil) is invoked after each sample lands in the store, which is the
// sampling engine's suspension point.
func (s *PopulationSimulator) GenerateChromosome(chrom int, progress func(fracDone float64)) error {
	ml, samplingSeed, err := s.AssembleMasterList(chrom)
	if err != nil {
		return err
	}

	s.mu.Lock()
	err = s.store.SetMasterList(chrom, ml)
	s.UniqueVariantCount += int64(ml.Len())
	s.mu.Unlock()
	if err != nil {
		return err
	}
	logrus.Debugf("chrom %d: %d variants in master list", chrom, ml.Len())

	seq, err := s.popModel.Samples(chrom, ml, samplingSeed)
	if err != nil {
		return err
	}
	for {
		block, ok := seq.Next()
		if !ok {
			return nil
		}
		s.mu.Lock()
		err = s.store.AddSampleChromosome(chrom, block.SampleName, block.Genotype)
		s.TotalVariantCount += int64(len(block.Genotype))
		s.mu.Unlock()
		if err != nil {
			return err
		}
		if progress != nil {
			progress(block.FracDone)
		}
	}
}

// Run executes every configured chromosome pipeline sequentially.
func (s *PopulationSimulator) Run(progress func(chrom int, fracDone float64)) error {
	for _, chrom := range s.cfg.Chromosomes {
		chrom := chrom
		var cb func(float64)
		if progress != nil {
			cb = func(f float64) { progress(chrom, f) }
		}
		if err := s.GenerateChromosome(chrom, cb); err != nil {
			return err
		}
	}
	return nil
}

// RunParallel executes the chromosome pipelines concurrently. Every seed
// is derived from (master seed, chromosome index), so the result is
// identical to Run regardless of scheduling; store writes are serialized
// internally.
func (s *PopulationSimulator) RunParallel(progress func(chrom int, fracDone float64)) error {
	var g errgroup.Group
	for _, chrom := range s.cfg.Chromosomes {
		chrom := chrom
		var cb func(float64)
		if progress != nil {
			cb = func(f float64) { progress(chrom, f) }
		}
		g.Go(func() error {
			return s.GenerateChromosome(chrom, cb)
		})
	}
	return g.Wait()
}

// DryRunReport describes the configured site model without running
// anything, mirroring what a full run would use.
func DryRunReport(spec *ModelSpec) (string, error) {
	if spec == nil {
		return "No site model\n", nil
	}
	m, err := NewSiteModel(spec.Name, spec.Params)
	if err != nil {
		return "", err
	}
	pBins, fBins := m.Spectrum()
	if len(pBins) == 0 {
		return fmt.Sprintf("Site model %s: degenerate spectrum\n", spec.Name), nil
	}
	return fmt.Sprintf("Site model %s: %d bins, growth estimate 1/sum(p_i*f_i) = %.1f samples\n",
		spec.Name, len(pBins), GrowthEstimate(pBins, fBins)), nil
}
