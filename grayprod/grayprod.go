// Package grayprod implements the Gray-code subset enumerator (spec
// component B) and the subset-product stream it drives (spec component
// C). Walking subsets in Gray-code order lets SubsetProduct amortize to
// one modular multiplication per subset, regardless of subset size,
// which is the entire reason the three-phase pipeline is affordable.
package grayprod

import (
	"fmt"
	"math/bits"

	"github.com/grafana/bleichenbacher-fakeprimes/modulus"
)

// ProductSet is the immutable per-half input to the subset-product
// stream: the half's elements, their modular inverses, and the modulus
// they live in. Built once per run and shared (read-only) across
// workers and phases.
type ProductSet struct {
	elems   []uint64
	inverse []uint64
	mod     modulus.Modulus
}

// NewProductSet precomputes the inverse table for elems and returns a
// ProductSet ready to be walked by ProductIter. len(elems) must be < 64:
// a set of exactly 64 elements would require a start/end index space of
// 2^64, which Go's uint64 range indices cannot represent as an exclusive
// upper bound.
func NewProductSet(elems []uint64, mod modulus.Modulus) (*ProductSet, error) {
	if len(elems) >= 64 {
		return nil, fmt.Errorf("grayprod: half must have fewer than 64 elements, got %d", len(elems))
	}
	inv, err := modulus.InverseTable(elems, mod)
	if err != nil {
		return nil, fmt.Errorf("grayprod: inverting half: %w", err)
	}
	cp := make([]uint64, len(elems))
	copy(cp, elems)
	return &ProductSet{elems: cp, inverse: inv, mod: mod}, nil
}

// Len reports the number of elements in the half.
func (ps *ProductSet) Len() int { return len(ps.elems) }

// toGray converts an enumeration index to its Gray codeword: the
// standard binary-reflected Gray code, v ^ (v >> 1).
func toGray(v uint64) uint64 {
	return v ^ (v >> 1)
}

// SubsetProduct computes SSP(H, mask) directly by masking, independent
// of the Gray-code machinery. Used as the reference/self-check in tests
// and to seed a ProductIter at an arbitrary starting index.
func SubsetProduct(mask uint64, ps *ProductSet) uint64 {
	accum := uint64(1)
	for i, e := range ps.elems {
		if mask&(1<<uint(i)) != 0 {
			accum = ps.mod.MulMod(accum, e)
		}
	}
	return accum
}

// ProductIter yields (mask, product) pairs for every subset whose Gray
// codeword index falls in [start, end), visiting each index exactly
// once. It is restartable: callers partition [0, 2^k) into contiguous
// index ranges and hand each worker its own ProductIter, which pays for
// its starting product in O(popcount(start)) multiplications and then
// amortizes to one multiplication per subsequent subset.
type ProductIter struct {
	ps       *ProductSet
	curIndex uint64
	curVal   uint64
	end      uint64
	done     bool
}

// NewProductIter builds an iterator over Gray codeword indices
// [start, end). start must be <= end, and end must be <= 2^ps.Len().
func NewProductIter(ps *ProductSet, start, end uint64) (*ProductIter, error) {
	if start > end {
		return nil, fmt.Errorf("grayprod: start %d > end %d", start, end)
	}
	if end > uint64(1)<<uint(ps.Len()) {
		return nil, fmt.Errorf("grayprod: end %d exceeds 2^%d", end, ps.Len())
	}
	if start == end {
		return &ProductIter{ps: ps, end: end, done: true}, nil
	}
	startGray := toGray(start)
	return &ProductIter{
		ps:       ps,
		curIndex: start,
		curVal:   SubsetProduct(startGray, ps),
		end:      end,
		done:     false,
	}, nil
}

// Next returns the next (gray codeword, subset product) pair and
// advances the iterator. The second return value is false once the
// range is exhausted.
func (it *ProductIter) Next() (mask uint64, product uint64, ok bool) {
	if it.done {
		return 0, 0, false
	}

	curGray := toGray(it.curIndex)
	curVal := it.curVal

	nextIndex := it.curIndex + 1
	if nextIndex >= it.end {
		it.done = true
		return curGray, curVal, true
	}

	nextGray := toGray(nextIndex)
	diff := curGray ^ nextGray
	bit := bits.Len64(diff) - 1

	var twiddle uint64
	if nextGray&diff != 0 {
		twiddle = it.ps.elems[bit]
	} else {
		twiddle = it.ps.inverse[bit]
	}

	it.curVal = it.ps.mod.MulMod(curVal, twiddle)
	it.curIndex = nextIndex

	return curGray, curVal, true
}

// Collect drains the iterator into a slice of (mask, product) pairs.
// Intended for tests over small ranges; production code should stream.
func Collect(it *ProductIter) [][2]uint64 {
	var out [][2]uint64
	for {
		mask, prod, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, [2]uint64{mask, prod})
	}
}
