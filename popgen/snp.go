package popgen

import (
	"fmt"
	"math/rand"

	"gopkg.in/yaml.v3"
)

// defaultTMat is the stock base-transition matrix. Rows and columns are
// ordered A, C, G, T; row = reference base. The leading diagonal is
// ignored and the remaining three entries renormalized, so Alt never
// equals Ref.
var defaultTMat = [4][4]float64{
	{0.32654629, 0.17292732, 0.24524503, 0.25528135},
	{0.3489394, 0.25942695, 0.04942584, 0.3422078},
	{0.28778188, 0.21087004, 0.25963262, 0.24171546},
	{0.21644706, 0.20588717, 0.24978216, 0.32788362},
}

const bases = "ACGT"

// SNPModel is the stock SNP plugin. It uses three independent streams
// derived from its seed: one to locate SNPs along the reference, one to
// choose the substituted base, and one to assign each SNP a probability
// weight.
type SNPModel struct {
	P    float64
	TMat [4][4]float64
}

type snpParams struct {
	P    float64      `yaml:"p"`
	TMat *[4][4]float64 `yaml:"t_mat"`
}

func newSNPModel(params *yaml.Node) (VariantGenerator, error) {
	p := snpParams{P: 0.01}
	if params != nil {
		if err := params.Decode(&p); err != nil {
			return nil, fmt.Errorf("snp params: %w", err)
		}
	}
	if p.P < 0 || p.P > 1 {
		return nil, fmt.Errorf("snp: p=%g out of [0, 1]: %w", p.P, ErrBadModelParams)
	}
	m := &SNPModel{P: p.P, TMat: defaultTMat}
	if p.TMat != nil {
		m.TMat = *p.TMat
	}
	return m, nil
}

// GetVariants implements VariantGenerator for SNPModel.
func (m *SNPModel) GetVariants(ref string, pBins, fBins []float64, seed int64) ([]int64, []int64, []string, []string, []float64, error) {
	if err := validateSeed(seed); err != nil {
		return nil, nil, nil, nil, nil, err
	}
	streams := SubStreams(seed, 3)
	locRNG, baseRNG, freqRNG := streams[0], streams[1], streams[2]

	pEff := ScaleProbability(m.P, pBins, fBins)
	locs := placePoisson(locRNG, pEff, ref)

	pos := make([]int64, 0, len(locs))
	stop := make([]int64, 0, len(locs))
	refs := make([]string, 0, len(locs))
	alts := make([]string, 0, len(locs))
	probs := make([]float64, 0, len(locs))
	for _, l := range locs {
		alt, ok := m.substitute(ref[l], baseRNG)
		if !ok {
			continue // non-ACGT reference base
		}
		pos = append(pos, l)
		stop = append(stop, l+1)
		refs = append(refs, string(ref[l]))
		alts = append(alts, alt)
		probs = append(probs, freqRNG.Float64())
	}
	return pos, stop, refs, alts, probs, nil
}

// substitute draws the alternate base for refBase from the transition
// matrix row, with the diagonal entry excluded and the rest renormalized.
func (m *SNPModel) substitute(refBase byte, rng *rand.Rand) (string, bool) {
	row := baseIndex(refBase)
	if row < 0 {
		return "", false
	}
	total := 0.0
	for col := 0; col < 4; col++ {
		if col != row {
			total += m.TMat[row][col]
		}
	}
	u := rng.Float64() * total
	acc := 0.0
	for col := 0; col < 4; col++ {
		if col == row {
			continue
		}
		acc += m.TMat[row][col]
		if u < acc {
			return string(bases[col]), true
		}
	}
	// Floating-point edge: fall back to the last off-diagonal base.
	if row == 3 {
		return string(bases[2]), true
	}
	return string(bases[3]), true
}

func baseIndex(b byte) int {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't':
		return 3
	}
	return -1
}
