// Package residue reconstructs the 64-element residue set R from the
// fixed modulus M, recovering the construction that
// original_source/magic_numbers.rs performs but spec.md treats as an
// external constant input (see SPEC_FULL.md §5). R's 64 members are the
// primes r with 256 < r < 2^60 such that r-1 divides M and r's Legendre
// symbol against 13 fixed small primes matches a fixed sign pattern -
// the Bleichenbacher-paper conditions that make 1+SSP(R, mask) a
// candidate strong pseudoprime to every base in {2,3,5,7,...,41}.
package residue

import (
	"fmt"
	"math/big"
)

// Modulus is the fixed 64-bit run modulus from the Bleichenbacher
// construction used throughout this repository's tests and CLI
// default.
const Modulus uint64 = 11908862398227544750

const (
	minR = 256
	maxR = 1152921504606846976 // 2^60
)

// magicPair is one (base, expected Legendre symbol) constraint that a
// candidate r must satisfy.
type magicPair struct {
	base int64
	sign int
}

// magicPairs is the Legendre-symbol sieve from the Bleichenbacher
// paper, carried over verbatim from magic_numbers.rs's MAGIC_PAIRS.
var magicPairs = []magicPair{
	{2, -1}, {3, 1}, {5, 1}, {7, -1}, {11, -1}, {13, 1}, {17, 1},
	{19, -1}, {23, -1}, {29, 1}, {31, -1}, {37, 1}, {41, 1},
}

// mPrimeFactors are the prime factors of M beyond the fixed 2*5^a*7^b*11^c
// cofactor family folded into cofactors below - together they generate
// every divisor of (Modulus-ish) structure the construction searches.
var mPrimeFactors = []int64{13, 17, 19, 23, 29, 31, 37, 41, 61}

// cofactors enumerates the fixed 5^a * 7^b * 11^c family used alongside
// the prime-factor subset products, per magic_numbers.rs.
func cofactors() []int64 {
	fives := []int64{1, 5, 25, 125}
	sevens := []int64{1, 7, 49}
	elevens := []int64{1, 11, 121}
	out := make([]int64, 0, len(fives)*len(sevens)*len(elevens))
	for _, f := range fives {
		for _, s := range sevens {
			for _, e := range elevens {
				out = append(out, f*s*e)
			}
		}
	}
	return out
}

// Build reconstructs R: 64 primes satisfying the divisor, range, and
// Legendre-symbol conditions described above. It returns an error if
// the construction does not yield exactly 64 results, matching
// magic_numbers.rs's assert_eq!(64, results.len()).
func Build() ([64]uint64, error) {
	var out [64]uint64
	n := 0
	seen := make(map[int64]bool)

	cofs := cofactors()
	nPrimes := len(mPrimeFactors)

	for mask := int64(1); mask < int64(1)<<uint(nPrimes); mask++ {
		primeSSP := int64(1)
		for i := 0; i < nPrimes; i++ {
			if mask&(1<<uint(i)) != 0 {
				primeSSP *= mPrimeFactors[i]
			}
		}
		for _, cof := range cofs {
			candidate := 2*cof*primeSSP + 1
			if !checkDivisor(candidate) {
				continue
			}
			if seen[candidate] {
				continue
			}
			seen[candidate] = true
			if n >= 64 {
				return out, fmt.Errorf("residue: found more than 64 candidates satisfying the construction")
			}
			out[n] = uint64(candidate)
			n++
		}
	}

	if n != 64 {
		return out, fmt.Errorf("residue: expected exactly 64 candidates, found %d", n)
	}
	return out, nil
}

// checkDivisor reports whether r satisfies: 256 < r < 2^60, r is prime,
// and r's Legendre/Jacobi symbol against each magic pair's base matches
// that pair's required sign.
func checkDivisor(r int64) bool {
	if r <= minR || uint64(r) >= maxR {
		return false
	}

	rInt := big.NewInt(r)
	if !rInt.ProbablyPrime(15) {
		return false
	}

	for _, pair := range magicPairs {
		b := big.NewInt(pair.base)
		if big.Jacobi(b, rInt) != pair.sign {
			return false
		}
	}
	return true
}

// Split divides R into its two 32-element halves, T1 and T2, the way
// spec.md §3 defines R1/R2.
func Split(r [64]uint64) (t1, t2 [32]uint64) {
	copy(t1[:], r[:32])
	copy(t2[:], r[32:])
	return t1, t2
}
