package popgen

import (
	"fmt"
	"math/rand"
	"strings"

	"gopkg.in/yaml.v3"
)

// InsertModel is the stock insertion plugin. Inserted sequence lengths
// follow a geometric distribution clamped into [MinLen, MaxLen]; inserted
// bases are drawn uniformly. Three streams: location, inserted sequence,
// probability weight.
type InsertModel struct {
	P      float64
	PEnd   float64
	MinLen int64
	MaxLen int64
}

type insertParams struct {
	P      float64 `yaml:"p"`
	PEnd   float64 `yaml:"p_end"`
	MinLen int64   `yaml:"min_len"`
	MaxLen int64   `yaml:"max_len"`
}

func newInsertModel(params *yaml.Node) (VariantGenerator, error) {
	p := insertParams{P: 0.01, PEnd: 0.1, MinLen: 2, MaxLen: 30}
	if params != nil {
		if err := params.Decode(&p); err != nil {
			return nil, fmt.Errorf("insert params: %w", err)
		}
	}
	if p.P < 0 || p.P > 1 || p.PEnd < 0 || p.PEnd > 1 {
		return nil, fmt.Errorf("insert: probability out of [0, 1]: %w", ErrBadModelParams)
	}
	if p.MinLen <= 0 || p.MinLen >= p.MaxLen {
		return nil, fmt.Errorf("insert: need 0 < min_len < max_len, got [%d, %d]: %w",
			p.MinLen, p.MaxLen, ErrBadModelParams)
	}
	if p.PEnd < 1e-8 {
		p.PEnd = 1e-8
	}
	return &InsertModel{P: p.P, PEnd: p.PEnd, MinLen: p.MinLen, MaxLen: p.MaxLen}, nil
}

// GetVariants implements VariantGenerator for InsertModel. An insertion
// occupies only its anchor base on the reference: [pos, pos+1), with Alt
// carrying the anchor plus the inserted sequence.
func (m *InsertModel) GetVariants(ref string, pBins, fBins []float64, seed int64) ([]int64, []int64, []string, []string, []float64, error) {
	if err := validateSeed(seed); err != nil {
		return nil, nil, nil, nil, nil, err
	}
	streams := SubStreams(seed, 3)
	locRNG, seqRNG, freqRNG := streams[0], streams[1], streams[2]

	pEff := ScaleProbability(m.P, pBins, fBins)
	locs := placePoisson(locRNG, pEff, ref)

	pos := make([]int64, 0, len(locs))
	stop := make([]int64, 0, len(locs))
	refs := make([]string, 0, len(locs))
	alts := make([]string, 0, len(locs))
	probs := make([]float64, 0, len(locs))
	for _, l := range locs {
		length := geometricLength(seqRNG, m.PEnd)
		if length < m.MinLen {
			length = m.MinLen
		}
		if length > m.MaxLen {
			length = m.MaxLen
		}
		pos = append(pos, l)
		stop = append(stop, l+1)
		refs = append(refs, string(ref[l]))
		alts = append(alts, string(ref[l])+randomBases(seqRNG, length))
		probs = append(probs, freqRNG.Float64())
	}
	return pos, stop, refs, alts, probs, nil
}

func randomBases(rng *rand.Rand, n int64) string {
	var b strings.Builder
	b.Grow(int(n))
	for i := int64(0); i < n; i++ {
		b.WriteByte(bases[rng.Intn(4)])
	}
	return b.String()
}
