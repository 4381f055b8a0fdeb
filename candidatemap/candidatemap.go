// Package candidatemap implements spec component E: a mapping from
// 64-bit subset product to the 32-bit mask that produced it. Built
// during phase 2 (probe) under concurrent writers, read-only during
// phase 3 (confirm). Expected population is small (target <= 2^22
// entries per spec §3), so a sharded mutex-striped map is plenty -
// insertion contention was never the design's concern, the Bloom
// filter already absorbed that cost in phase 1.
package candidatemap

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/atomic"
)

const defaultShards = 64

// Map is a concurrent key(uint64) -> mask(uint32) map, striped into
// shards so that phase 2 workers probing the same filter don't
// serialize on a single lock.
type Map struct {
	shards []shard
	mask   uint64
	size   atomic.Int64
}

type shard struct {
	mu sync.Mutex
	m  map[uint64]uint32
}

// New builds a Map with the given shard count, rounded up to the next
// power of two. A shard count of 0 selects a sane default.
func New(shards int) *Map {
	if shards <= 0 {
		shards = defaultShards
	}
	n := 1
	for n < shards {
		n <<= 1
	}
	cm := &Map{
		shards: make([]shard, n),
		mask:   uint64(n - 1),
	}
	for i := range cm.shards {
		cm.shards[i].m = make(map[uint64]uint32)
	}
	return cm
}

func (cm *Map) shardFor(key uint64) *shard {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(key >> (8 * i))
	}
	idx := xxhash.Sum64(buf[:]) & cm.mask
	return &cm.shards[idx]
}

// InsertOrOverwrite records mask as the (a, possibly not the only)
// producer of key. Policy is overwrite-on-collision: if two masks of
// the second half both produce the same product, the later write wins
// and the earlier mask is lost. Spec §3/§4.E accepts this: phase 3
// enumerates every mask1 that reaches this product, so a dropped mask2
// only costs one member of the (mask1, mask2) pair space, not
// correctness of what is found.
func (cm *Map) InsertOrOverwrite(key uint64, mask uint32) {
	s := cm.shardFor(key)
	s.mu.Lock()
	_, existed := s.m[key]
	s.m[key] = mask
	s.mu.Unlock()
	if !existed {
		cm.size.Add(1)
	}
}

// Get returns the mask recorded for key, if any.
func (cm *Map) Get(key uint64) (mask uint32, ok bool) {
	s := cm.shardFor(key)
	s.mu.Lock()
	mask, ok = s.m[key]
	s.mu.Unlock()
	return mask, ok
}

// Len reports the number of distinct keys currently stored.
func (cm *Map) Len() int64 {
	return cm.size.Load()
}
