package popgen

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// SiteModel produces a discretized target allele-frequency distribution:
// equal-length slices (pBins, fBins), pBins ascending, fBins summing to 1
// over non-degenerate configurations. A degenerate or absent configuration
// yields empty slices, never an error.
type SiteModel interface {
	Spectrum() (pBins, fBins []float64)
}

// SiteModelFactory builds a SiteModel from its YAML parameter node.
type SiteModelFactory func(params *yaml.Node) (SiteModel, error)

// siteModelRegistry maps model names to factories. Populated once at
// process start; no runtime discovery.
var siteModelRegistry = map[string]SiteModelFactory{
	"double_exp": newDoubleExpModel,
}

// NewSiteModel instantiates a registered site-frequency-spectrum model.
func NewSiteModel(name string, params *yaml.Node) (SiteModel, error) {
	factory, ok := siteModelRegistry[name]
	if !ok {
		return nil, fmt.Errorf("site model %q: %w", name, ErrUnknownModel)
	}
	return factory(params)
}

// SiteModelNames returns the registered site model names, sorted.
func SiteModelNames() []string {
	return registryNames(siteModelRegistry)
}

// DoubleExpModel is the stock site-frequency-spectrum model: a mixture of
// two exponential decays over log-spaced probability bins between P0 and
// P1. Rare alleles dominate, as in a neutrally evolving population.
type DoubleExpModel struct {
	K1, K2 float64 `yaml:"-"`
	P0, P1 float64 `yaml:"-"`
	BinCnt int     `yaml:"-"`
}

type doubleExpParams struct {
	K1     float64 `yaml:"k1"`
	K2     float64 `yaml:"k2"`
	P0     float64 `yaml:"p0"`
	P1     float64 `yaml:"p1"`
	BinCnt int     `yaml:"bin_cnt"`
}

func newDoubleExpModel(params *yaml.Node) (SiteModel, error) {
	p := doubleExpParams{K1: 0.1, K2: 2.0, P0: 0.001, P1: 0.2, BinCnt: 30}
	if params != nil {
		if err := params.Decode(&p); err != nil {
			return nil, fmt.Errorf("double_exp params: %w", err)
		}
	}
	if p.K1 <= 0 || p.K2 <= 0 {
		return nil, fmt.Errorf("double_exp: k1 and k2 must be positive: %w", ErrBadModelParams)
	}
	if p.P0 < 0 || p.P1 > 1 {
		return nil, fmt.Errorf("double_exp: p0 and p1 must lie in [0, 1]: %w", ErrBadModelParams)
	}
	return &DoubleExpModel{K1: p.K1, K2: p.K2, P0: p.P0, P1: p.P1, BinCnt: p.BinCnt}, nil
}

// Spectrum returns log-spaced probability bins on [P0, P1] with weights
// exp(-p/k1) + exp(-p/k2), normalized to sum 1. Degenerate configurations
// (bin_cnt < 1 or p0 >= p1) yield empty slices.
func (m *DoubleExpModel) Spectrum() ([]float64, []float64) {
	if m.BinCnt < 1 || m.P0 >= m.P1 || m.P0 <= 0 {
		return nil, nil
	}
	pBins := make([]float64, m.BinCnt)
	fBins := make([]float64, m.BinCnt)
	logSpan(pBins, m.P0, m.P1)
	for i, p := range pBins {
		fBins[i] = math.Exp(-p/m.K1) + math.Exp(-p/m.K2)
	}
	floats.Scale(1/floats.Sum(fBins), fBins)
	return pBins, fBins
}

// logSpan fills dst with logarithmically spaced values from lo to hi.
func logSpan(dst []float64, lo, hi float64) {
	if len(dst) == 1 {
		dst[0] = lo
		return
	}
	floats.Span(dst, math.Log(lo), math.Log(hi))
	for i := range dst {
		dst[i] = math.Exp(dst[i])
	}
}

// GrowthEstimate returns 1 / Σ p_i·f_i, the expected number of samples
// needed before every catalogued variant appears at least once. Used by
// the dry-run report; returns 0 for an empty spectrum.
func GrowthEstimate(pBins, fBins []float64) float64 {
	if len(pBins) == 0 {
		return 0
	}
	d := floats.Dot(pBins, fBins)
	if d == 0 {
		return 0
	}
	return 1 / d
}

// ScaleProbability combines a plugin's nominal placement probability with
// the spectrum bins to yield the effective rate for the Poisson placement
// process. With a spectrum configured, downstream rebalancing shrinks the
// expected per-sample density by Σ p·f, so placement is scaled up by its
// inverse to keep the aggregate density at nominal. An empty spectrum
// leaves nominal unchanged. The result is clamped to [0, 1) with a
// warning, since it drives a per-base Bernoulli-gap process.
func ScaleProbability(nominal float64, pBins, fBins []float64) float64 {
	if len(pBins) == 0 {
		return nominal
	}
	d := floats.Dot(pBins, fBins)
	if d <= 0 {
		return nominal
	}
	eff := nominal * floats.Sum(fBins) / d
	if eff >= 1 {
		logrus.Warnf("effective placement probability %.3f clamped below 1; spectrum cannot be matched at this density", eff)
		eff = math.Nextafter(1, 0)
	}
	return eff
}

// BalanceProbabilities remaps each record's P so the empirical histogram
// of P over the whole list approximates fBins at pBins, while preserving
// every record's rank order (a monotone remap). Records are ranked by
// their current P (stable), then ranked runs are assigned bin values in
// proportion to the target weights.
func BalanceProbabilities(ml *MasterVariantList, pBins, fBins []float64) {
	n := len(ml.Variants)
	if n == 0 || len(pBins) == 0 {
		return
	}
	if ml.frozen {
		panic("BalanceProbabilities: list is frozen")
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ml.Variants[order[a]].P < ml.Variants[order[b]].P
	})

	// Cumulative target counts per bin; the final bin absorbs rounding.
	cum := make([]float64, len(fBins))
	floats.CumSum(cum, fBins)
	total := cum[len(cum)-1]

	bin := 0
	for rank, idx := range order {
		for bin < len(cum)-1 && float64(rank+1) > cum[bin]/total*float64(n) {
			bin++
		}
		ml.Variants[idx].P = pBins[bin]
	}
}
