package pseudoprimes

import (
	"fmt"

	"github.com/grafana/bleichenbacher-fakeprimes/verify"
)

// Config fixes one run of the collision search: the group modulus M,
// the two halves of the residue set being searched, and the knobs that
// control how much memory/parallelism the run uses.
type Config struct {
	// M is the run modulus; every subset product is computed mod M.
	M uint64
	// T1, T2 are the two halves of R, each with fewer than 64 elements
	// (see grayprod.NewProductSet).
	T1, T2 []uint64

	// BloomBits is the phase-1 filter size in bits. Zero selects a
	// default sized for 2^len(T1) expected insertions at a ~1e-3
	// false-positive rate, per spec §4.D's sizing guidance.
	BloomBits uint64
	// BloomHashes is k, the number of hash positions per insert. Zero
	// selects bloomfilter.EstimateHashes(BloomBits, 2^len(T1)).
	BloomHashes int

	// Tasks is the number of Gray-code range partitions each phase is
	// split into before being handed to the Executor. Zero selects
	// 4x the discovered CPU count, giving the scheduler slack to keep
	// every slot busy even when ranges finish unevenly.
	Tasks int
	// Pin requests CPU/NUMA-affinity pinning per spec §4.F. Tests and
	// non-Linux platforms should leave this false.
	Pin bool

	// CandidateShards is the shard count for the phase-2/3 candidate
	// map. Zero selects candidatemap's default.
	CandidateShards int

	// Bases is the Miller-Rabin base set a confirmed candidate must
	// pass. Nil selects verify.DefaultBases.
	Bases []int64
	// MinVerifyBits overrides verify.DefaultMinBits for this run. Zero keeps
	// the package default (2^512).
	MinVerifyBits int
}

func (c Config) validate() error {
	if c.M == 0 || c.M%2 == 0 {
		return fmt.Errorf("pseudoprimes: M must be odd and non-zero, got %d", c.M)
	}
	if len(c.T1) == 0 || len(c.T1) >= 64 {
		return fmt.Errorf("pseudoprimes: len(T1) must be in [1, 64), got %d", len(c.T1))
	}
	if len(c.T2) == 0 || len(c.T2) >= 64 {
		return fmt.Errorf("pseudoprimes: len(T2) must be in [1, 64), got %d", len(c.T2))
	}
	return nil
}

func (c Config) bases() []int64 {
	if c.Bases == nil {
		return verify.DefaultBases
	}
	return c.Bases
}

func (c Config) minVerifyBits() int {
	if c.MinVerifyBits > 0 {
		return c.MinVerifyBits
	}
	return verify.DefaultMinBits
}

func (c Config) tasks(concurrency int) int {
	if c.Tasks > 0 {
		return c.Tasks
	}
	return concurrency * 4
}
