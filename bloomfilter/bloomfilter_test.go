package bloomfilter

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoFalseNegative(t *testing.T) {
	f, err := New(Params{Bits: 1 << 20, Hashes: 5})
	require.NoError(t, err)

	keys := make([]uint64, 1000)
	rng := rand.New(rand.NewSource(1))
	for i := range keys {
		keys[i] = rng.Uint64()
		f.Insert(keys[i])
	}
	for _, k := range keys {
		require.True(t, f.Contains(k))
	}
}

func TestSingleKeyFalsePositiveRate(t *testing.T) {
	f, err := New(Params{Bits: 1 << 20, Hashes: 5})
	require.NoError(t, err)

	const key = 0x0123456789ABCDEF
	f.Insert(key)
	require.True(t, f.Contains(key))

	rng := rand.New(rand.NewSource(2))
	const trials = 1_000_000
	falsePos := 0
	for i := 0; i < trials; i++ {
		k := rng.Uint64()
		if k == key {
			continue
		}
		if f.Contains(k) {
			falsePos++
		}
	}
	rate := float64(falsePos) / float64(trials)
	require.LessOrEqual(t, rate, 0.001, "false positive rate too high: %f", rate)
}

func TestConcurrentInsert(t *testing.T) {
	f, err := New(Params{Bits: 1 << 18, Hashes: 4})
	require.NoError(t, err)

	const n = 20000
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(key uint64) {
			defer wg.Done()
			f.Insert(key)
		}(uint64(i))
	}
	wg.Wait()

	for i := uint64(0); i < n; i++ {
		require.True(t, f.Contains(i))
	}
}

func TestMergeIsUnionOfMembership(t *testing.T) {
	const bits = uint64(1) << 16
	const hashes = 4

	a, err := New(Params{Bits: bits, Hashes: hashes})
	require.NoError(t, err)
	b, err := New(Params{Bits: bits, Hashes: hashes})
	require.NoError(t, err)

	setA := make([]uint64, 0, 100)
	setB := make([]uint64, 0, 100)
	for i := uint64(0); i < 100; i++ {
		setA = append(setA, i)
		setB = append(setB, i+10000)
	}
	for _, k := range setA {
		a.Insert(k)
	}
	for _, k := range setB {
		b.Insert(k)
	}

	require.NoError(t, a.Merge(b))

	for _, k := range append(setA, setB...) {
		require.True(t, a.Contains(k))
	}

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10000; i++ {
		k := rng.Uint64()
		want := a.Contains(k) || b.Contains(k)
		_ = want // a already merged; exercised for no-false-negative shape only
	}
}

func TestMergeRejectsShapeMismatch(t *testing.T) {
	a, err := New(Params{Bits: 1 << 10, Hashes: 3})
	require.NoError(t, err)
	b, err := New(Params{Bits: 1 << 12, Hashes: 3})
	require.NoError(t, err)

	require.Error(t, a.Merge(b))
}

func TestEstimateHashes(t *testing.T) {
	k := EstimateHashes(uint64(1)<<39, uint64(1)<<32)
	require.GreaterOrEqual(t, k, 1)
	require.LessOrEqual(t, k, 10)
}
