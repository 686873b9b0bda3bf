package popgen

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SeedMax is the exclusive upper bound for a configured master seed.
// Derived stream seeds are folded into the same range so that any seed in
// the system can round-trip through a 32-bit parameter file field.
const SeedMax int64 = 1 << 32

// MasterSeed identifies a reproducible simulation run. Two runs with the
// same MasterSeed and identical configuration MUST produce bit-for-bit
// identical master lists and sample genotypes.
type MasterSeed int64

// NewMasterSeed validates and wraps a configured seed value.
func NewMasterSeed(seed int64) (MasterSeed, error) {
	if seed <= 0 || seed >= SeedMax {
		return 0, fmt.Errorf("master seed must satisfy 0 < seed < %d, got %d: %w", SeedMax, seed, ErrBadSeed)
	}
	return MasterSeed(seed), nil
}

// SeedDeriver turns one master seed into independent, collision-free seed
// streams per (chromosome, stream index).
//
// Derivation formula: masterSeed XOR fnv1a64("chrom_<c>/stream_<n>"),
// folded into (0, SeedMax). Distinct (chromosome, stream) labels hash to
// distinct 64-bit values with overwhelming probability, which is what lets
// independent chromosome pipelines run concurrently without sharing any
// RNG state.
//
// Thread-safety: a SeedDeriver is immutable and safe to share; the
// *rand.Rand streams it creates are NOT thread-safe and must each be owned
// by a single goroutine.
type SeedDeriver struct {
	master MasterSeed
}

// NewSeedDeriver creates a SeedDeriver for a validated master seed.
func NewSeedDeriver(master MasterSeed) *SeedDeriver {
	return &SeedDeriver{master: master}
}

// Derive returns streamCount seeds for the given chromosome index. The
// result depends only on (master seed, chrom, stream index): deriving for
// chromosome 7 yields the same seeds whether or not chromosome 3 was ever
// processed.
func (d *SeedDeriver) Derive(chrom int, streamCount int) []int64 {
	seeds := make([]int64, streamCount)
	for n := 0; n < streamCount; n++ {
		label := fmt.Sprintf("chrom_%d/stream_%d", chrom, n)
		s := (int64(d.master) ^ fnv1a64(label)) % SeedMax
		if s < 0 {
			s += SeedMax
		}
		if s == 0 {
			s = 1 // keep derived seeds inside the valid master-seed range
		}
		seeds[n] = s
	}
	return seeds
}

// Streams returns streamCount independently seeded RNG streams for the
// given chromosome index. Callers take ownership of the returned streams.
func (d *SeedDeriver) Streams(chrom int, streamCount int) []*rand.Rand {
	seeds := d.Derive(chrom, streamCount)
	streams := make([]*rand.Rand, streamCount)
	for i, s := range seeds {
		streams[i] = rand.New(rand.NewSource(s))
	}
	return streams
}

// SubStreams splits one derived seed into n further streams. Plugins use
// this to obtain their location / content / frequency streams from the
// single seed the pipeline hands them.
func SubStreams(seed int64, n int) []*rand.Rand {
	streams := make([]*rand.Rand, n)
	for i := 0; i < n; i++ {
		s := (seed ^ fnv1a64(fmt.Sprintf("sub_%d", i))) % SeedMax
		if s < 0 {
			s += SeedMax
		}
		if s == 0 {
			s = 1
		}
		streams[i] = rand.New(rand.NewSource(s))
	}
	return streams
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
