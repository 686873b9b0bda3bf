package popgen

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DeleteModel is the stock deletion plugin. Deletion lengths follow a
// geometric distribution, as expected from a Poisson point process
// governing deletion termination, clamped into [MinLen, MaxLen].
//
// Each surviving deletion's stored probability is recomputed after
// generation as 1 - length/longest-length-in-this-batch: rarity is
// expressed relative to the longest deletion produced by the same
// invocation rather than a fixed global scale. That batch-relative
// coupling is preserved for compatibility with existing simulations; see
// DESIGN.md for why it is a candidate for revision.
type DeleteModel struct {
	P      float64
	PEnd   float64
	MinLen int64
	MaxLen int64
}

type deleteParams struct {
	P      float64 `yaml:"p"`
	PEnd   float64 `yaml:"p_end"`
	MinLen int64   `yaml:"min_len"`
	MaxLen int64   `yaml:"max_len"`
}

func newDeleteModel(params *yaml.Node) (VariantGenerator, error) {
	p := deleteParams{P: 0.01, PEnd: 0.1, MinLen: 10, MaxLen: 1000}
	if params != nil {
		if err := params.Decode(&p); err != nil {
			return nil, fmt.Errorf("delete params: %w", err)
		}
	}
	if p.P < 0 || p.P > 1 || p.PEnd < 0 || p.PEnd > 1 {
		return nil, fmt.Errorf("delete: probability out of [0, 1]: %w", ErrBadModelParams)
	}
	if p.MinLen <= 0 || p.MinLen >= p.MaxLen {
		return nil, fmt.Errorf("delete: need 0 < min_len < max_len, got [%d, %d]: %w",
			p.MinLen, p.MaxLen, ErrBadModelParams)
	}
	if p.PEnd < 1e-8 {
		p.PEnd = 1e-8 // a zero termination probability never terminates
	}
	return &DeleteModel{P: p.P, PEnd: p.PEnd, MinLen: p.MinLen, MaxLen: p.MaxLen}, nil
}

// GetVariants implements VariantGenerator for DeleteModel. Two streams:
// one locates deletions, one draws their lengths. Deleted spans are
// [pos, pos+len+1): the anchor base at pos survives, as in VCF deletion
// records.
func (m *DeleteModel) GetVariants(ref string, pBins, fBins []float64, seed int64) ([]int64, []int64, []string, []string, []float64, error) {
	if err := validateSeed(seed); err != nil {
		return nil, nil, nil, nil, nil, err
	}
	streams := SubStreams(seed, 2)
	locRNG, lenRNG := streams[0], streams[1]

	pEff := ScaleProbability(m.P, pBins, fBins)
	locs := placePoisson(locRNG, pEff, ref)

	pos := make([]int64, 0, len(locs))
	stop := make([]int64, 0, len(locs))
	refs := make([]string, 0, len(locs))
	alts := make([]string, 0, len(locs))
	for _, l := range locs {
		length := geometricLength(lenRNG, m.PEnd)
		if length < m.MinLen {
			length = m.MinLen
		}
		if length > m.MaxLen {
			length = m.MaxLen
		}
		end := l + length + 1
		if !spanLegal(ref, l, end) {
			continue
		}
		pos = append(pos, l)
		stop = append(stop, end)
		refs = append(refs, ref[l:end])
		alts = append(alts, string(ref[l]))
	}

	// Batch-relative probability: the longest deletion in this batch gets
	// p=0, the shortest the highest weight.
	probs := make([]float64, len(pos))
	var longest int64
	for i := range pos {
		if l := stop[i] - pos[i] - 1; l > longest {
			longest = l
		}
	}
	for i := range pos {
		probs[i] = 1 - float64(stop[i]-pos[i]-1)/float64(longest)
	}
	return pos, stop, refs, alts, probs, nil
}
