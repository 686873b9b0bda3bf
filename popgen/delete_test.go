package popgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteModel_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  string
		wantErr bool
	}{
		{"defaults", "{}", false},
		{"negative p", "p: -0.5", true},
		{"p_end above one", "p_end: 2", true},
		{"min equals max", "{min_len: 10, max_len: 10}", true},
		{"min above max", "{min_len: 20, max_len: 10}", true},
		{"zero min", "{min_len: 0, max_len: 10}", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newDeleteModel(yamlNode(t, tt.params))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadModelParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeleteModel_NoVariantsAtTinyDensity(t *testing.T) {
	// Edge case: nothing generated is a valid outcome, not an error.
	ref := strings.Repeat("ACTG", 37)
	m := &DeleteModel{P: 1e-9, PEnd: 0.1, MinLen: 10, MaxLen: 1000}

	pos, stop, refs, alts, probs, err := m.GetVariants(ref, nil, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, pos)
	assert.Empty(t, stop)
	assert.Empty(t, refs)
	assert.Empty(t, alts)
	assert.Empty(t, probs)
}

func TestDeleteModel_LengthBoundsAndSpans(t *testing.T) {
	ref := strings.Repeat("ACTG", 500)
	m := &DeleteModel{P: 0.05, PEnd: 0.2, MinLen: 2, MaxLen: 10}

	pos, stop, refs, alts, _, err := m.GetVariants(ref, nil, nil, 15)
	require.NoError(t, err)
	require.NotEmpty(t, pos)

	for i := range pos {
		length := stop[i] - pos[i] - 1
		assert.GreaterOrEqual(t, length, int64(2), "length below min_len")
		assert.LessOrEqual(t, length, int64(10), "length above max_len")
		assert.Equal(t, ref[pos[i]:stop[i]], refs[i], "ref allele must match the span")
		assert.Equal(t, string(ref[pos[i]]), alts[i], "alt keeps only the anchor base")
		assert.LessOrEqual(t, stop[i], int64(len(ref)))
	}
}

func TestDeleteModel_DiscardsSpansTouchingMaskedBases(t *testing.T) {
	ref := strings.Repeat("ACTG", 500)
	m := &DeleteModel{P: 0.05, PEnd: 0.2, MinLen: 2, MaxLen: 10}

	pos, _, _, _, _, err := m.GetVariants(ref, nil, nil, 15)
	require.NoError(t, err)
	require.NotEmpty(t, pos)
	target := pos[0]

	// Mask a base strictly inside the first deletion's span. The anchor
	// itself stays clean so the placement stream is undisturbed.
	masked := ref[:target+1] + "N" + ref[target+2:]
	pos2, _, _, _, _, err := m.GetVariants(masked, nil, nil, 15)
	require.NoError(t, err)
	assert.NotContains(t, pos2, target)
}

func TestDeleteModel_BatchRelativeProbabilities(t *testing.T) {
	ref := strings.Repeat("ACTG", 500)
	m := &DeleteModel{P: 0.05, PEnd: 0.5, MinLen: 2, MaxLen: 10}

	pos, stop, _, _, probs, err := m.GetVariants(ref, nil, nil, 21)
	require.NoError(t, err)
	require.NotEmpty(t, pos)

	var longest int64
	for i := range pos {
		if l := stop[i] - pos[i] - 1; l > longest {
			longest = l
		}
	}
	sawZero := false
	for i := range probs {
		length := stop[i] - pos[i] - 1
		assert.InDelta(t, 1-float64(length)/float64(longest), probs[i], 1e-12)
		if probs[i] == 0 {
			sawZero = true
		}
	}
	assert.True(t, sawZero, "the longest deletion in a batch always carries p=0")
}

func TestDeleteModel_Deterministic(t *testing.T) {
	ref := strings.Repeat("ACTG", 200)
	m := &DeleteModel{P: 0.05, PEnd: 0.2, MinLen: 2, MaxLen: 10}

	pos1, stop1, _, _, p1, err := m.GetVariants(ref, nil, nil, 33)
	require.NoError(t, err)
	pos2, stop2, _, _, p2, err := m.GetVariants(ref, nil, nil, 33)
	require.NoError(t, err)

	assert.Equal(t, pos1, pos2)
	assert.Equal(t, stop1, stop2)
	assert.Equal(t, p1, p2)
}
