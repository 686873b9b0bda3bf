package popgen

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func defaultDoubleExp(t *testing.T) *DoubleExpModel {
	t.Helper()
	m, err := newDoubleExpModel(nil)
	require.NoError(t, err)
	return m.(*DoubleExpModel)
}

func TestDoubleExp_Spectrum(t *testing.T) {
	pBins, fBins := defaultDoubleExp(t).Spectrum()

	require.Len(t, pBins, 30)
	require.Len(t, fBins, 30)
	assert.InDelta(t, 1.0, floats.Sum(fBins), 1e-12, "weights must sum to 1")
	for i := 1; i < len(pBins); i++ {
		assert.Less(t, pBins[i-1], pBins[i], "p bins must ascend")
	}
	for _, f := range fBins {
		assert.GreaterOrEqual(t, f, 0.0)
	}
	assert.InDelta(t, 0.001, pBins[0], 1e-12)
	assert.InDelta(t, 0.2, pBins[len(pBins)-1], 1e-9)
}

func TestDoubleExp_DegenerateConfigurations(t *testing.T) {
	tests := []struct {
		name  string
		model DoubleExpModel
	}{
		{"zero bins", DoubleExpModel{K1: 0.1, K2: 2, P0: 0.001, P1: 0.2, BinCnt: 0}},
		{"inverted range", DoubleExpModel{K1: 0.1, K2: 2, P0: 0.5, P1: 0.2, BinCnt: 10}},
		{"zero p0", DoubleExpModel{K1: 0.1, K2: 2, P0: 0, P1: 0.2, BinCnt: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pBins, fBins := tt.model.Spectrum()
			assert.Empty(t, pBins)
			assert.Empty(t, fBins)
		})
	}
}

func TestScaleProbability(t *testing.T) {
	t.Run("empty spectrum passes nominal through", func(t *testing.T) {
		assert.Equal(t, 0.01, ScaleProbability(0.01, nil, nil))
	})

	t.Run("spectrum scales placement upward", func(t *testing.T) {
		pBins, fBins := defaultDoubleExp(t).Spectrum()
		eff := ScaleProbability(0.001, pBins, fBins)
		assert.Greater(t, eff, 0.001, "rebalanced densities shrink, placement compensates")
		assert.Less(t, eff, 1.0)
	})

	t.Run("clamped below one", func(t *testing.T) {
		pBins, fBins := defaultDoubleExp(t).Spectrum()
		eff := ScaleProbability(0.9, pBins, fBins)
		assert.Less(t, eff, 1.0)
	})
}

func TestBalanceProbabilities_MatchesSpectrum(t *testing.T) {
	pBins, fBins := defaultDoubleExp(t).Spectrum()

	rng := rand.New(rand.NewSource(7))
	ml := &MasterVariantList{}
	for i := 0; i < 5000; i++ {
		ml.Variants = append(ml.Variants, VariantRecord{Pos: int64(i), Stop: int64(i + 1), Ref: "A", Alt: "T", P: rng.Float64()})
	}
	BalanceProbabilities(ml, pBins, fBins)

	// Every probability now sits on a spectrum bin.
	onBin := map[float64]bool{}
	for _, p := range pBins {
		onBin[p] = true
	}
	for _, v := range ml.Variants {
		require.True(t, onBin[v.P], "p=%v is not a spectrum bin", v.P)
	}
}

func TestBalanceProbabilities_PreservesRankOrder(t *testing.T) {
	pBins, fBins := defaultDoubleExp(t).Spectrum()

	rng := rand.New(rand.NewSource(11))
	ml := &MasterVariantList{}
	before := make([]float64, 1000)
	for i := range before {
		before[i] = rng.Float64()
		ml.Variants = append(ml.Variants, VariantRecord{Pos: int64(i), Stop: int64(i + 1), Ref: "A", Alt: "T", P: before[i]})
	}
	BalanceProbabilities(ml, pBins, fBins)

	for i := 0; i < len(before); i++ {
		for j := i + 1; j < len(before); j++ {
			if before[i] < before[j] {
				assert.LessOrEqual(t, ml.Variants[i].P, ml.Variants[j].P,
					"rank order broken between %d and %d", i, j)
			}
		}
	}
}

func TestBalanceProbabilities_EmptyInputsAreNoOps(t *testing.T) {
	ml := &MasterVariantList{}
	BalanceProbabilities(ml, nil, nil) // must not panic

	ml.Add([]int64{1}, []int64{2}, []string{"A"}, []string{"T"}, []float64{0.4})
	BalanceProbabilities(ml, nil, nil)
	assert.Equal(t, 0.4, ml.Variants[0].P, "empty spectrum leaves probabilities alone")
}

func TestGrowthEstimate(t *testing.T) {
	assert.Equal(t, 0.0, GrowthEstimate(nil, nil))

	pBins, fBins := defaultDoubleExp(t).Spectrum()
	got := GrowthEstimate(pBins, fBins)
	assert.InDelta(t, 1/floats.Dot(pBins, fBins), got, 1e-12)
	assert.Greater(t, got, 1.0)
}

func TestNewSiteModel_UnknownName(t *testing.T) {
	_, err := NewSiteModel("no-such-model", nil)
	assert.ErrorIs(t, err, ErrUnknownModel)
}
