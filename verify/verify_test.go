package verify

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestIsFakePrimeAcceptsKnownStrongPseudoprime uses 2047 = 23*89, the
// smallest strong pseudoprime to base 2, as a known-good fixture.
func TestIsFakePrimeAcceptsKnownStrongPseudoprime(t *testing.T) {
	n := big.NewInt(2047)
	require.True(t, IsFakePrime(n, []*big.Int{big.NewInt(2)}))
}

// TestIsFakePrimeRejectsOrdinaryFermatPseudoprime uses 341 = 11*31,
// a base-2 Fermat pseudoprime that fails the stronger Miller-Rabin test.
func TestIsFakePrimeRejectsOrdinaryFermatPseudoprime(t *testing.T) {
	n := big.NewInt(341)
	require.False(t, IsFakePrime(n, []*big.Int{big.NewInt(2)}))
}

// TestIsFakePrimeRejectsActualPrimes ensures a genuine prime is never
// reported as a fake prime, regardless of which bases are tested.
func TestIsFakePrimeRejectsActualPrimes(t *testing.T) {
	n := big.NewInt(1000000007)
	require.False(t, IsFakePrime(n, []*big.Int{big.NewInt(2), big.NewInt(3)}))
}

// TestCandidateReconstructsProductFormula exercises the scenario from
// spec.md §8 scenario 1: M=97, R'=(2,3,5,7,11,13,17,19) split into
// T1=(2,3,5,7) and T2=(11,13,17,19).
func TestCandidateReconstructsProductFormula(t *testing.T) {
	t1 := []uint64{2, 3, 5, 7}
	t2 := []uint64{11, 13, 17, 19}

	v := New(t1, t2, DefaultBases, DefaultMinBits)

	// mask1 selects {2,5} (bits 0,2), mask2 selects {13,19} (bits 1,3).
	n, factors := v.Candidate(0b0101, 0b1010)

	want := new(big.Int).SetInt64(2 * 2 * 5 * 13 * 19)
	want.Add(want, big.NewInt(1))
	require.Equal(t, want, n)
	require.Len(t, factors, 5) // leading 2, plus 2, 5, 13, 19
}

// TestCheckRejectsCollisionBelowMinBits confirms the trivial
// mask1=mask2=0 collision (n=3) never clears the minimum-size gate.
func TestCheckRejectsCollisionBelowMinBits(t *testing.T) {
	t1 := []uint64{2, 3, 5, 7}
	t2 := []uint64{11, 13, 17, 19}
	v := New(t1, t2, DefaultBases, DefaultMinBits)

	_, ok := v.Check(0, 0)
	require.False(t, ok)
}

// TestCheckAcceptsKnownFakePrimeBelowMinSize passes a small minBits to
// exercise the full Check path (Candidate + size gate + IsFakePrime)
// against the 2047 fixture reconstructed as a single-factor product.
func TestCheckAcceptsKnownFakePrimeBelowMinSize(t *testing.T) {
	t1 := []uint64{1023} // 2*1023 + 1 = 2047
	t2 := []uint64{}
	v := New(t1, t2, []int64{2}, 8)

	res, ok := v.Check(0b1, 0)
	require.True(t, ok)
	require.Equal(t, big.NewInt(2047), res.N)
}
