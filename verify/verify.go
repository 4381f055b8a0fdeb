// Package verify implements the external collaborator spec.md
// deliberately leaves out of the core (§1 "Out of scope", §9 Open
// Question): turning a confirmed (mask1, mask2) pair into a concrete
// 64-bit-factor composite candidate and testing it against the fixed
// Miller-Rabin base set B. The candidate construction - multiply 2 by
// the selected elements of each half, add 1 - is recovered from
// original_source/magic_numbers.rs's get_vals_to_multiply/check_prime,
// per SPEC_FULL.md §5.
package verify

import (
	"math/big"
)

// DefaultBases is the fixed base set B from spec.md §1: a composite
// that is a strong pseudoprime to every one of these bases is a "fake
// prime" in this system's terms.
var DefaultBases = []int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41}

// DefaultMinBits is the minimum bit length a candidate must exceed
// before it's considered interesting, mirroring magic_numbers.rs's
// MIN_N = 2^512 - chosen in the original to exclude small collisions
// that are arithmetically valid but not useful output.
const DefaultMinBits = 512

// Result describes a confirmed fake prime: the composite itself and
// the factors whose product (plus one) produced it.
type Result struct {
	N       *big.Int
	Factors []*big.Int
}

// Verifier reconstructs candidates from (mask1, mask2) pairs against a
// pair of halves, each with fewer than 64 elements - the same shape
// grayprod.ProductSet accepts, so a Verifier can be built directly from
// the Config.T1/T2 a pipeline run already has in hand.
type Verifier struct {
	t1, t2 []*big.Int
	minN   *big.Int
	bases  []*big.Int
}

// New builds a Verifier over halves t1, t2, requiring candidates to
// exceed minBits bits (use DefaultMinBits unless the caller has a
// specific reason to scale it down, e.g. tests against a small M).
func New(t1, t2 []uint64, bases []int64, minBits int) *Verifier {
	conv := func(xs []uint64) []*big.Int {
		out := make([]*big.Int, len(xs))
		for i, x := range xs {
			out[i] = new(big.Int).SetUint64(x)
		}
		return out
	}
	baseInts := make([]*big.Int, len(bases))
	for i, b := range bases {
		baseInts[i] = big.NewInt(b)
	}
	minN := new(big.Int).Lsh(big.NewInt(1), uint(minBits))
	return &Verifier{t1: conv(t1), t2: conv(t2), minN: minN, bases: baseInts}
}

// Candidate reconstructs n = 2 * SSP(T1, mask1) * SSP(T2, mask2) + 1 and
// the list of factors that produced it (including the fixed leading 2).
func (v *Verifier) Candidate(mask1, mask2 uint64) (n *big.Int, factors []*big.Int) {
	factors = []*big.Int{big.NewInt(2)}
	product := big.NewInt(2)

	collect := func(mask uint64, half []*big.Int) {
		for i, f := range half {
			if mask&(1<<uint(i)) != 0 {
				factors = append(factors, f)
				product.Mul(product, f)
			}
		}
	}
	collect(mask1, v.t1)
	collect(mask2, v.t2)

	n = new(big.Int).Add(product, big.NewInt(1))
	return n, factors
}

// Check reconstructs the candidate for (mask1, mask2) and, if it clears
// the minimum size and is a fake prime (composite, strong pseudoprime
// to every base), returns it. This rejects the trivial mask1=mask2=0
// collision (product 1, n=2*1+1=3, far below MinBits) the way spec.md
// §4.G's edge-case policy requires.
func (v *Verifier) Check(mask1, mask2 uint64) (*Result, bool) {
	n, factors := v.Candidate(mask1, mask2)
	if n.Cmp(v.minN) <= 0 {
		return nil, false
	}
	if !IsFakePrime(n, v.bases) {
		return nil, false
	}
	return &Result{N: n, Factors: factors}, true
}

// IsFakePrime reports whether n is composite yet passes the strong
// Miller-Rabin test for every given base - the definition of "fake
// prime" in this system's terms (spec.md GLOSSARY). A genuinely prime n
// is rejected: it isn't a forgery of anything.
func IsFakePrime(n *big.Int, bases []*big.Int) bool {
	if n.ProbablyPrime(20) {
		return false
	}
	for _, base := range bases {
		if !isStrongProbablePrime(n, base) {
			return false
		}
	}
	return true
}

// isStrongProbablePrime runs the single-base Miller-Rabin strong
// probable-prime test: write n-1 = 2^s * d with d odd, and check that
// base^d == 1 or base^(2^r * d) == n-1 for some 0 <= r < s.
func isStrongProbablePrime(n, base *big.Int) bool {
	one := big.NewInt(1)
	two := big.NewInt(2)

	nMinus1 := new(big.Int).Sub(n, one)
	d := new(big.Int).Set(nMinus1)
	s := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		s++
	}

	x := new(big.Int).Exp(base, d, n)
	if x.Cmp(one) == 0 || x.Cmp(nMinus1) == 0 {
		return true
	}

	for r := 1; r < s; r++ {
		x.Exp(x, two, n)
		if x.Cmp(nMinus1) == 0 {
			return true
		}
	}
	return false
}
