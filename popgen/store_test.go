package popgen

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMetadata() GenomeMetadata {
	return GenomeMetadata{
		{SeqID: "chr1", SeqLen: 1000, SeqMD5: "aaa"},
		{SeqID: "chr2", SeqLen: 500, SeqMD5: "bbb"},
	}
}

func newMemStore(t *testing.T) *Population {
	t.Helper()
	pop, err := OpenPopulation(StoreOptions{
		InMemory: true,
		Writable: true,
		Metadata: testMetadata(),
	})
	require.NoError(t, err)
	return pop
}

func TestOpenPopulation_RequiresMetadataWhenWritable(t *testing.T) {
	_, err := OpenPopulation(StoreOptions{InMemory: true, Writable: true})
	assert.Error(t, err)
}

func TestPopulation_MasterListWriteOnce(t *testing.T) {
	pop := newMemStore(t)

	require.NoError(t, pop.SetMasterList(1, fixedListUnfrozen(0.5, 0.6)))
	err := pop.SetMasterList(1, fixedListUnfrozen(0.1))
	assert.ErrorIs(t, err, ErrMasterListFrozen)

	// Other chromosomes are unaffected.
	assert.NoError(t, pop.SetMasterList(2, fixedListUnfrozen(0.1)))
}

func fixedListUnfrozen(ps ...float64) *MasterVariantList {
	ml := &MasterVariantList{}
	for i, p := range ps {
		ml.Variants = append(ml.Variants, VariantRecord{
			Pos: int64(i * 10), Stop: int64(i*10 + 1), Ref: "A", Alt: "T", P: p,
		})
	}
	return ml
}

func TestPopulation_SetMasterListFreezes(t *testing.T) {
	pop := newMemStore(t)
	ml := fixedListUnfrozen(0.5)
	require.NoError(t, pop.SetMasterList(1, ml))
	assert.True(t, ml.Frozen())
}

func TestPopulation_AddSampleValidation(t *testing.T) {
	pop := newMemStore(t)

	err := pop.AddSampleChromosome(1, "s0", SampleGenotype{{Index: 0, GT: Hom}})
	assert.ErrorIs(t, err, ErrNoMasterList, "samples need a frozen master list first")

	require.NoError(t, pop.SetMasterList(1, fixedListUnfrozen(0.5, 0.6)))
	err = pop.AddSampleChromosome(1, "s0", SampleGenotype{{Index: 2, GT: Hom}})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	require.NoError(t, pop.AddSampleChromosome(1, "s0",
		SampleGenotype{{Index: 1, GT: HetCopy0}, {Index: 0, GT: Hom}}))
}

func TestPopulation_ReadOnlyEnforcement(t *testing.T) {
	pop := newMemStore(t)
	require.NoError(t, pop.SetMasterList(1, fixedListUnfrozen(0.5)))
	require.NoError(t, pop.Close())

	assert.ErrorIs(t, pop.SetMasterList(2, fixedListUnfrozen(0.1)), ErrStoreReadOnly)
	assert.ErrorIs(t, pop.AddSampleChromosome(1, "s0", nil), ErrStoreReadOnly)

	// Read queries stay valid after Close.
	ml, err := pop.GetVariantMasterList(1)
	require.NoError(t, err)
	assert.Equal(t, 1, ml.Len())
}

func TestPopulation_SampleQueries(t *testing.T) {
	pop := newMemStore(t)
	require.NoError(t, pop.SetMasterList(1, fixedListUnfrozen(0.5, 0.6, 0.7)))
	gt := SampleGenotype{{Index: 2, GT: HetCopy1}, {Index: 0, GT: Hom}}
	require.NoError(t, pop.AddSampleChromosome(1, "s0", gt))

	variants, zyg, err := pop.GetSampleVariantListForChromosome(1, "s0", false)
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, int64(20), variants[0].Pos, "insertion order preserved")
	assert.Equal(t, []Zygosity{HetCopy1, Hom}, zyg)

	variants, zyg, err = pop.GetSampleVariantListForChromosome(1, "s0", true)
	require.NoError(t, err)
	assert.Len(t, variants, 2)
	assert.Nil(t, zyg, "ignoreZygosity drops the zygosity slice")

	names, err := pop.GetSampleNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"s0"}, names)
}

func TestPopulation_Summary(t *testing.T) {
	pop := newMemStore(t)
	require.NoError(t, pop.SetMasterList(1, fixedListUnfrozen(0.5, 0.6)))
	require.NoError(t, pop.AddSampleChromosome(1, "s0", SampleGenotype{{Index: 0, GT: Hom}}))

	text, err := pop.PrettyPrintSummary(nil)
	require.NoError(t, err)
	assert.Contains(t, text, "chr1")
	assert.Contains(t, text, "2 variants")
	assert.Contains(t, text, "sample s0: 1 variants")
}

func TestPopulation_IndelHistogram(t *testing.T) {
	pop := newMemStore(t)
	ml := &MasterVariantList{Variants: []VariantRecord{
		{Pos: 0, Stop: 1, Ref: "A", Alt: "T", P: 0.5},      // SNP, len 0
		{Pos: 10, Stop: 14, Ref: "ACTG", Alt: "A", P: 0.5}, // deletion, len -3
		{Pos: 20, Stop: 21, Ref: "A", Alt: "ACC", P: 0.5},  // insertion, len +2
	}}
	require.NoError(t, pop.SetMasterList(1, ml))

	counts, err := pop.IndelHistogram(1, "", 5)
	require.NoError(t, err)
	require.Len(t, counts, 11)
	assert.Equal(t, 1, counts[5-3], "one deletion of length 3")
	assert.Equal(t, 1, counts[5], "one SNP at length 0")
	assert.Equal(t, 1, counts[5+2], "one insertion of length 2")
}

func TestPopulation_SQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pop.db")

	pop, err := OpenPopulation(StoreOptions{
		Path:     path,
		Writable: true,
		Metadata: testMetadata(),
	})
	require.NoError(t, err)

	ml := fixedListUnfrozen(0.5, 0.6, 0.7)
	require.NoError(t, pop.SetMasterList(1, ml))
	gt := SampleGenotype{{Index: 1, GT: HetCopy0}, {Index: 2, GT: Hom}}
	require.NoError(t, pop.AddSampleChromosome(1, "s0", gt))
	runID := pop.RunID()
	require.NoError(t, pop.Close())

	// Reopen strictly for reads, validating against the same reference.
	pop2, err := OpenPopulation(StoreOptions{Path: path, Metadata: testMetadata()})
	require.NoError(t, err)
	defer pop2.Close()

	assert.Equal(t, runID, pop2.RunID())
	assert.Equal(t, testMetadata(), pop2.Metadata())

	ml2, err := pop2.GetVariantMasterList(1)
	require.NoError(t, err)
	assert.Equal(t, ml.Variants, ml2.Variants)
	assert.True(t, ml2.Frozen())

	gt2, err := pop2.GetSampleGenotype(1, "s0")
	require.NoError(t, err)
	assert.Equal(t, gt, gt2)

	names, err := pop2.GetSampleNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"s0"}, names)

	assert.ErrorIs(t, pop2.SetMasterList(2, fixedListUnfrozen(0.1)), ErrStoreReadOnly)
}

func TestPopulation_MetadataMismatchIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pop.db")

	pop, err := OpenPopulation(StoreOptions{
		Path:     path,
		Writable: true,
		Metadata: testMetadata(),
	})
	require.NoError(t, err)
	require.NoError(t, pop.SetMasterList(1, fixedListUnfrozen(0.5)))
	require.NoError(t, pop.Close())

	other := testMetadata()
	other[0].SeqLen = 999
	_, err = OpenPopulation(StoreOptions{Path: path, Metadata: other})
	assert.ErrorIs(t, err, ErrMetadataMismatch)
}

func TestGenomeMetadata_Validate(t *testing.T) {
	base := testMetadata()

	t.Run("identical", func(t *testing.T) {
		assert.NoError(t, base.Validate(testMetadata()))
	})
	t.Run("missing md5 skips checksum", func(t *testing.T) {
		other := testMetadata()
		other[1].SeqMD5 = ""
		assert.NoError(t, base.Validate(other))
	})
	t.Run("different count", func(t *testing.T) {
		assert.ErrorIs(t, base.Validate(base[:1]), ErrMetadataMismatch)
	})
	t.Run("different md5", func(t *testing.T) {
		other := testMetadata()
		other[0].SeqMD5 = "zzz"
		assert.ErrorIs(t, base.Validate(other), ErrMetadataMismatch)
	})
}
