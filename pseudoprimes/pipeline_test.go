package pseudoprimes

import (
	"context"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

// scenario1Config reproduces spec.md §8 scenario 1: M=97,
// R'=(2,3,5,7,11,13,17,19) split into T1=(2,3,5,7), T2=(11,13,17,19).
// Bases/MinVerifyBits are relaxed from production defaults because this
// M is far too small to produce an actual 13-base strong pseudoprime;
// the point of the scenario is to exercise the collision mechanics, not
// number-theoretic pseudoprimality.
//
// T2={} and T2={11,13,19} both have product 1 mod 97, so they share one
// candidate-map key and only the mask written last is kept. Tasks is 1
// so each phase walks its masks in Gray-code order in a single task:
// {11,13,19} (Gray index 13) is then always written after {} (index 0).
func scenario1Config() Config {
	return Config{
		M:               97,
		T1:              []uint64{2, 3, 5, 7},
		T2:              []uint64{11, 13, 17, 19},
		Tasks:           1,
		Bases:           []int64{},
		MinVerifyBits:   1,
		CandidateShards: 4,
	}
}

func TestPipelineFindsScenario1Collisions(t *testing.T) {
	p, err := New(scenario1Config(), kitlog.NewNopLogger())
	require.NoError(t, err)

	results, err := p.Run(context.Background())
	require.NoError(t, err)

	// mask1=0 is paired with the retained T2={11,13,19}, giving n=5435;
	// the trivial mask1=mask2=0 pair (n=3, a real prime) never reaches
	// the verifier because its candidate-map entry was overwritten.
	require.GreaterOrEqual(t, len(results), 3)

	found := make(map[int64]bool)
	for _, r := range results {
		found[r.N.Int64()] = true
	}
	require.True(t, found[5435], "expected n=5435 from T1={}, T2={11,13,19}")
	require.True(t, found[391], "expected n=391 from T1={3,5}, T2={13}")
	require.True(t, found[248711], "expected n=248711 from T1={5,7}, T2={11,17,19}")
}

func TestPipelineIsDeterministic(t *testing.T) {
	cfg := scenario1Config()

	p1, err := New(cfg, kitlog.NewNopLogger())
	require.NoError(t, err)
	r1, err := p1.Run(context.Background())
	require.NoError(t, err)

	p2, err := New(cfg, kitlog.NewNopLogger())
	require.NoError(t, err)
	r2, err := p2.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, len(r1), len(r2))

	set1 := make(map[string]bool)
	for _, r := range r1 {
		set1[r.N.String()] = true
	}
	for _, r := range r2 {
		require.True(t, set1[r.N.String()], "run 2 produced n=%s not seen in run 1", r.N.String())
	}
}

func TestPipelineRejectsOversizedHalves(t *testing.T) {
	cfg := scenario1Config()
	cfg.T1 = make([]uint64, 64)
	_, err := New(cfg, kitlog.NewNopLogger())
	require.Error(t, err)
}
