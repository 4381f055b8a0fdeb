package candidatemap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndGet(t *testing.T) {
	cm := New(8)
	cm.InsertOrOverwrite(42, 7)

	mask, ok := cm.Get(42)
	require.True(t, ok)
	require.Equal(t, uint32(7), mask)

	_, ok = cm.Get(43)
	require.False(t, ok)
	require.EqualValues(t, 1, cm.Len())
}

func TestOverwritePolicy(t *testing.T) {
	cm := New(4)
	cm.InsertOrOverwrite(1, 10)
	cm.InsertOrOverwrite(1, 20)

	mask, ok := cm.Get(1)
	require.True(t, ok)
	require.Equal(t, uint32(20), mask)
	require.EqualValues(t, 1, cm.Len())
}

func TestConcurrentInsertDistinctKeys(t *testing.T) {
	cm := New(16)
	const n = 5000

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(k uint64) {
			defer wg.Done()
			cm.InsertOrOverwrite(k, uint32(k))
		}(uint64(i))
	}
	wg.Wait()

	require.EqualValues(t, n, cm.Len())
	for i := uint64(0); i < n; i++ {
		mask, ok := cm.Get(i)
		require.True(t, ok)
		require.Equal(t, uint32(i), mask)
	}
}

func TestShardCountRoundsToPowerOfTwo(t *testing.T) {
	cm := New(10)
	require.Equal(t, 16, len(cm.shards))
}
