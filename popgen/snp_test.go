package popgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func yamlNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(text), &doc))
	return doc.Content[0]
}

func TestSNPModel_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  string
		wantErr bool
	}{
		{"defaults", "{}", false},
		{"explicit p", "p: 0.5", false},
		{"negative p", "p: -0.1", true},
		{"p above one", "p: 1.5", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newSNPModel(yamlNode(t, tt.params))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadModelParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSNPModel_BasicInvariants(t *testing.T) {
	ref := strings.Repeat("ACTG", 50)
	m := &SNPModel{P: 0.1, TMat: defaultTMat}

	pos, stop, refs, alts, probs, err := m.GetVariants(ref, nil, nil, 10)
	require.NoError(t, err)
	require.NotEmpty(t, pos, "p=0.1 over 200 bases should place variants")
	require.Len(t, stop, len(pos))
	require.Len(t, refs, len(pos))
	require.Len(t, alts, len(pos))
	require.Len(t, probs, len(pos))

	for i := range pos {
		assert.Equal(t, pos[i]+1, stop[i], "SNP spans exactly one base")
		assert.Equal(t, string(ref[pos[i]]), refs[i], "ref allele must match the sequence")
		assert.NotEqual(t, refs[i], alts[i], "alt must differ from ref")
		assert.Contains(t, "ACGT", alts[i])
		assert.GreaterOrEqual(t, probs[i], 0.0)
		assert.Less(t, probs[i], 1.0)
	}
	for i := 1; i < len(pos); i++ {
		assert.Less(t, pos[i-1], pos[i], "placement walks left to right")
	}
}

func TestSNPModel_Deterministic(t *testing.T) {
	ref := strings.Repeat("ACTG", 100)
	m := &SNPModel{P: 0.05, TMat: defaultTMat}

	pos1, _, _, alts1, p1, err := m.GetVariants(ref, nil, nil, 42)
	require.NoError(t, err)
	pos2, _, _, alts2, p2, err := m.GetVariants(ref, nil, nil, 42)
	require.NoError(t, err)

	assert.Equal(t, pos1, pos2)
	assert.Equal(t, alts1, alts2)
	assert.Equal(t, p1, p2)

	pos3, _, _, _, _, err := m.GetVariants(ref, nil, nil, 43)
	require.NoError(t, err)
	assert.NotEqual(t, pos1, pos3, "different seeds should move variants")
}

func TestSNPModel_SkipsMaskedBases(t *testing.T) {
	ref := strings.Repeat("ACTG", 50)
	m := &SNPModel{P: 0.1, TMat: defaultTMat}

	pos, _, _, _, _, err := m.GetVariants(ref, nil, nil, 15)
	require.NoError(t, err)
	require.NotEmpty(t, pos)
	target := pos[0]

	// Mask the first placed position; it must vanish from the output.
	masked := ref[:target] + "N" + ref[target+1:]
	pos2, _, _, _, _, err := m.GetVariants(masked, nil, nil, 15)
	require.NoError(t, err)
	assert.NotContains(t, pos2, target)
}

func TestSNPModel_BadSeed(t *testing.T) {
	m := &SNPModel{P: 0.1, TMat: defaultTMat}
	_, _, _, _, _, err := m.GetVariants("ACTG", nil, nil, 0)
	assert.ErrorIs(t, err, ErrBadSeed)
}

func TestSubstitute_NeverReturnsRef(t *testing.T) {
	m := &SNPModel{P: 0.1, TMat: defaultTMat}
	for _, base := range []byte{'A', 'C', 'G', 'T'} {
		streams := SubStreams(77, 1)
		for i := 0; i < 200; i++ {
			alt, ok := m.substitute(base, streams[0])
			require.True(t, ok)
			assert.NotEqual(t, string(base), alt)
		}
	}
}
