// Package bloomfilter implements spec component D: a fixed-size bit
// array with k independent hash positions, supporting concurrent
// wait-free Insert, single-threaded Contains, and an associative Merge.
//
// The teacher's tempodb/encoding/common bloom.go shards a willf/bloom
// filter by trace ID across small on-disk shards; that shape doesn't
// fit here because willf/bloom's backing bitset isn't safe for
// concurrent writers and our filter must be insertable from many
// goroutines at once while sized for ~2^32 keys. Insert/Contains here
// instead do the atomic word-level OR directly (grounded on
// original_source/bitset/unstable.rs's atomic_or), and the double
// hashing to derive k bit positions from one 64-bit key is grounded on
// forestrie-go-merklelog's bloom/bloom4.go hashPairV1.
package bloomfilter

import (
	"fmt"
	"math/bits"

	"github.com/cespare/xxhash/v2"
)

const wordBits = 64

// Params fixes the shape of a filter: L bits, k hash functions. Sizing
// follows spec §4.D: for L = 2^39 bits and n = 2^32 expected keys,
// k = floor((L/n)*ln2) ~= 5 gives a false-positive rate around 1e-3.
type Params struct {
	Bits  uint64
	Hashes int
}

// EstimateHashes picks k for a filter of the given bit length expected
// to hold n keys, following the same m/n*ln2 estimator the teacher's
// bloom.go delegates to willf/bloom.EstimateParameters, at least 1.
func EstimateHashes(bits_, n uint64) int {
	if n == 0 {
		return 1
	}
	k := int(float64(bits_) / float64(n) * 0.6931471805599453)
	if k < 1 {
		k = 1
	}
	return k
}

// Filter is a bit array of Params.Bits bits, Insert is wait-free via an
// atomic word-level OR, Contains is a plain read (valid only once no
// writer is concurrently inserting), and it holds no key data: mask is
// discarded at insert time, which is the entire point of using a Bloom
// filter instead of a 2^32-entry hashmap in phase 1 (spec §4.G
// rationale).
type Filter struct {
	words  []uint64
	nbits  uint64
	hashes int
}

// New allocates a filter with the given parameters. Bits is rounded up
// to a multiple of 64. The caller is responsible for placing the
// returned Filter's backing store on a specific NUMA node (see
// numatopo.PinCurrentThread / workerpool), matching spec §4.F: the filter itself is
// topology-agnostic, the caller supplies locality.
func New(p Params) (*Filter, error) {
	if p.Bits == 0 {
		return nil, fmt.Errorf("bloomfilter: Bits must be > 0")
	}
	if p.Hashes < 1 {
		return nil, fmt.Errorf("bloomfilter: Hashes must be >= 1, got %d", p.Hashes)
	}
	nwords := (p.Bits + wordBits - 1) / wordBits
	return &Filter{
		words:  make([]uint64, nwords),
		nbits:  nwords * wordBits,
		hashes: p.Hashes,
	}, nil
}

// Bits reports the filter's bit length (rounded up to a word multiple).
func (f *Filter) Bits() uint64 { return f.nbits }

// sum64WithSeed computes the seeded xxhash64 digest of b using the
// library's documented NewWithSeed/Write/Sum64 API (this version of
// github.com/cespare/xxhash/v2 has no one-shot Sum64WithSeed helper).
func sum64WithSeed(b []byte, seed uint64) uint64 {
	d := xxhash.NewWithSeed(seed)
	d.Write(b)
	return d.Sum64()
}

// hashPositions derives f.hashes bit indices from key via double
// hashing: two independent 64-bit lanes mixed from key with xxhash,
// combined as (h1 + i*h2) mod nbits for i in [0, hashes). h2 is forced
// odd so it can never degenerate the sequence to a single repeated
// position.
func (f *Filter) hashPositions(key uint64, yield func(pos uint64)) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(key >> (8 * i))
	}
	h1 := xxhash.Sum64(buf[:])
	h2 := sum64WithSeed(buf[:], 0x9E3779B97F4A7C15) | 1

	for i := 0; i < f.hashes; i++ {
		pos := (h1 + uint64(i)*h2) % f.nbits
		yield(pos)
	}
}

// Insert sets the k bits derived from key. Wait-free: each bit set is a
// single atomic OR on its containing word, a no-op if already set, and
// never blocks another inserter. Safe to call concurrently from any
// number of goroutines.
func (f *Filter) Insert(key uint64) {
	f.hashPositions(key, func(pos uint64) {
		word, bit := pos/wordBits, pos%wordBits
		atomicOr(&f.words[word], uint64(1)<<bit)
	})
}

// Contains reports whether key may be present: true means "maybe
// present" (possible false positive), false means "definitely absent"
// (no false negatives). Intended for single-threaded use once no
// inserter is running concurrently, per spec §4.D.
func (f *Filter) Contains(key uint64) bool {
	present := true
	f.hashPositions(key, func(pos uint64) {
		if !present {
			return
		}
		word, bit := pos/wordBits, pos%wordBits
		if f.words[word]&(uint64(1)<<bit) == 0 {
			present = false
		}
	})
	return present
}

// Merge ORs other into f in place, producing a filter whose membership
// function is the logical OR of both inputs' key sets. Both filters
// must share identical (Bits, Hashes) — mismatched shapes mean the bit
// positions aren't comparable and merging would silently corrupt the
// result. Bitwise OR is commutative and associative, so merge order
// across NUMA nodes doesn't matter (spec §4.D, §5).
func (f *Filter) Merge(other *Filter) error {
	if f.nbits != other.nbits || f.hashes != other.hashes {
		return fmt.Errorf("bloomfilter: merge shape mismatch: (%d,%d) vs (%d,%d)", f.nbits, f.hashes, other.nbits, other.hashes)
	}
	for i := range f.words {
		f.words[i] |= other.words[i]
	}
	return nil
}

// PopCount returns the number of set bits, a cheap sanity/diagnostic
// metric reported after phase 1 (saturation should stay well under
// nbits/2 for the configured false-positive rate to hold).
func (f *Filter) PopCount() uint64 {
	var n uint64
	for _, w := range f.words {
		n += uint64(bits.OnesCount64(w))
	}
	return n
}
