// Package pseudoprimes orchestrates the three-phase meet-in-the-middle
// collision search (spec component G) over modulus.go/grayprod.go's
// arithmetic primitives, bloomfilter.go's phase-1 filter,
// candidatemap.go's phase-2 map, and workerpool.go's NUMA-aware task
// runner. The phase-boundary fan-out/barrier shape is grounded on the
// teacher's retentionLoop/RetainWithConfig (tempodb/retention.go),
// generalized from "one goroutine per tenant" to "one goroutine per
// Gray-code range".
package pseudoprimes

import (
	"context"
	"fmt"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/grafana/bleichenbacher-fakeprimes/bloomfilter"
	"github.com/grafana/bleichenbacher-fakeprimes/candidatemap"
	"github.com/grafana/bleichenbacher-fakeprimes/grayprod"
	"github.com/grafana/bleichenbacher-fakeprimes/modulus"
	"github.com/grafana/bleichenbacher-fakeprimes/numatopo"
	"github.com/grafana/bleichenbacher-fakeprimes/progress"
	"github.com/grafana/bleichenbacher-fakeprimes/verify"
	"github.com/grafana/bleichenbacher-fakeprimes/workerpool"
)

// Pipeline runs one collision-search job end to end: phase 1 builds a
// Bloom filter over T1's subset products, phase 2 probes it with T2's
// inverse subset products and records hits, phase 3 re-walks T1 against
// the recorded hits and hands confirmed (mask1, mask2) pairs to an
// external Verifier.
type Pipeline struct {
	cfg      Config
	mod      modulus.Opti
	t1Set    *grayprod.ProductSet
	t2invSet *grayprod.ProductSet
	exec     *workerpool.Executor
	verifier *verify.Verifier
	logger   kitlog.Logger
	runID    uuid.UUID
}

// New validates cfg and builds a Pipeline ready to Run. It discovers
// NUMA topology itself (numatopo.Discover never fails; it falls back to
// a synthetic single node).
func New(cfg Config, logger kitlog.Logger) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}

	mod := modulus.NewOpti(cfg.M)

	t1Set, err := grayprod.NewProductSet(cfg.T1, mod)
	if err != nil {
		return nil, fmt.Errorf("pseudoprimes: building T1 product set: %w", err)
	}

	t2inv, err := modulus.InverseTable(cfg.T2, mod)
	if err != nil {
		return nil, fmt.Errorf("pseudoprimes: inverting T2: %w", err)
	}
	t2invSet, err := grayprod.NewProductSet(t2inv, mod)
	if err != nil {
		return nil, fmt.Errorf("pseudoprimes: building T2^-1 product set: %w", err)
	}

	topo, err := numatopo.Discover()
	if err != nil {
		return nil, fmt.Errorf("pseudoprimes: discovering NUMA topology: %w", err)
	}
	exec := workerpool.New(topo, cfg.Pin)

	return &Pipeline{
		cfg:      cfg,
		mod:      mod,
		t1Set:    t1Set,
		t2invSet: t2invSet,
		exec:     exec,
		verifier: verify.New(cfg.T1, cfg.T2, cfg.bases(), cfg.minVerifyBits()),
		logger:   logger,
		runID:    uuid.New(),
	}, nil
}

// bloomParams sizes the phase-1 filter. The production default mirrors
// spec §4.D: L/n ~= 128 (2^39 bits for 2^32 expected keys) gives a
// false-positive rate around 1e-3 at k~=5; that same ratio is used to
// scale the filter down for smaller T1 halves in tests.
func (p *Pipeline) bloomParams() bloomfilter.Params {
	expected := uint64(1) << uint(p.t1Set.Len())

	nbits := p.cfg.BloomBits
	if nbits == 0 {
		nbits = expected * 128
		if nbits < 1024 {
			nbits = 1024
		}
	}
	nhashes := p.cfg.BloomHashes
	if nhashes == 0 {
		nhashes = bloomfilter.EstimateHashes(nbits, expected)
	}
	return bloomfilter.Params{Bits: nbits, Hashes: nhashes}
}

// Run executes PHASE1_BUILD, PHASE1_MERGE, PHASE2_PROBE and
// PHASE3_CONFIRM in sequence and returns every confirmed fake prime.
// Each phase is a barrier: Run does not start phase N+1 until every
// worker in phase N has returned, matching spec §4.G's state machine.
func (p *Pipeline) Run(ctx context.Context) ([]*verify.Result, error) {
	level.Info(p.logger).Log("msg", "starting pseudoprime search", "run_id", p.runID, "m", p.cfg.M, "t1_len", len(p.cfg.T1), "t2_len", len(p.cfg.T2))

	filter, err := p.phase1Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("pseudoprimes: phase 1 (build): %w", err)
	}
	metricBloomPopcount.Set(float64(filter.PopCount()))

	cmap := candidatemap.New(p.cfg.CandidateShards)
	if err := p.phase2Probe(ctx, filter, cmap); err != nil {
		return nil, fmt.Errorf("pseudoprimes: phase 2 (probe): %w", err)
	}

	results, err := p.phase3Confirm(ctx, cmap)
	if err != nil {
		return nil, fmt.Errorf("pseudoprimes: phase 3 (confirm): %w", err)
	}

	level.Info(p.logger).Log("msg", "search complete", "run_id", p.runID, "fake_primes_found", len(results))
	return results, nil
}

// phase1Build inserts every T1 subset product into a per-NUMA-node
// Bloom filter, then merges the per-node filters into one (spec §4.G:
// "each worker inserts into its own node's filter; filters are OR-merged
// at the phase boundary", matching bloomfilter.Merge's commutativity).
func (p *Pipeline) phase1Build(ctx context.Context) (*bloomfilter.Filter, error) {
	start := time.Now()
	defer func() { metricPhaseDuration.WithLabelValues("build").Observe(time.Since(start).Seconds()) }()

	total := uint64(1) << uint(p.t1Set.Len())
	ranges := workerpool.Partition(total, p.cfg.tasks(p.exec.Concurrency()))
	reporter := progress.New(p.logger, "phase1_build", total)

	params := p.bloomParams()
	var mu sync.Mutex
	perNode := make(map[int]*bloomfilter.Filter)

	getNodeFilter := func(node int) (*bloomfilter.Filter, error) {
		mu.Lock()
		defer mu.Unlock()
		if f, ok := perNode[node]; ok {
			return f, nil
		}
		f, err := bloomfilter.New(params)
		if err != nil {
			return nil, err
		}
		perNode[node] = f
		return f, nil
	}

	err := p.exec.RunTasks(ranges, func(slot int, r workerpool.Range) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		node := p.exec.NodeForSlot(slot)
		f, err := getNodeFilter(node)
		if err != nil {
			return err
		}

		it, err := grayprod.NewProductIter(p.t1Set, r.Start, r.End)
		if err != nil {
			return err
		}
		h := reporter.Handle()
		for {
			_, product, ok := it.Next()
			if !ok {
				break
			}
			f.Insert(product)
			h.Report(1)
		}
		h.Flush()
		return nil
	})
	if err != nil {
		return nil, err
	}
	reporter.Done()

	merged, err := bloomfilter.New(params)
	if err != nil {
		return nil, err
	}
	for _, f := range perNode {
		if err := merged.Merge(f); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// phase2Probe walks every T2^-1 subset product, and for each one the
// filter reports as possibly-present, records (product, mask2) in the
// candidate map: a later phase-3 hit on that same product means
// SSP(T1, mask1) * SSP(T2, mask2) == 1 mod M.
func (p *Pipeline) phase2Probe(ctx context.Context, filter *bloomfilter.Filter, cmap *candidatemap.Map) error {
	start := time.Now()
	defer func() { metricPhaseDuration.WithLabelValues("probe").Observe(time.Since(start).Seconds()) }()

	total := uint64(1) << uint(p.t2invSet.Len())
	ranges := workerpool.Partition(total, p.cfg.tasks(p.exec.Concurrency()))
	reporter := progress.New(p.logger, "phase2_probe", total)

	err := p.exec.RunTasks(ranges, func(_ int, r workerpool.Range) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		it, err := grayprod.NewProductIter(p.t2invSet, r.Start, r.End)
		if err != nil {
			return err
		}
		h := reporter.Handle()
		for {
			mask, product, ok := it.Next()
			if !ok {
				break
			}
			if filter.Contains(product) {
				cmap.InsertOrOverwrite(product, uint32(mask))
				metricCandidatesInserted.Inc()
			}
			h.Report(1)
		}
		h.Flush()
		return nil
	})
	reporter.Done()
	return err
}

// phase3Confirm re-walks every T1 subset product and looks each one up
// in the candidate map built by phase 2. A hit is an exact product match
// (Bloom false positives from phase 2 never match here) and yields a
// (mask1, mask2) pair, which is handed to the external Verifier to rule
// out candidates below the minimum size or that are not fake primes.
func (p *Pipeline) phase3Confirm(ctx context.Context, cmap *candidatemap.Map) ([]*verify.Result, error) {
	start := time.Now()
	defer func() { metricPhaseDuration.WithLabelValues("confirm").Observe(time.Since(start).Seconds()) }()

	total := uint64(1) << uint(p.t1Set.Len())
	ranges := workerpool.Partition(total, p.cfg.tasks(p.exec.Concurrency()))
	reporter := progress.New(p.logger, "phase3_confirm", total)

	var mu sync.Mutex
	var results []*verify.Result

	err := p.exec.RunTasks(ranges, func(_ int, r workerpool.Range) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		it, err := grayprod.NewProductIter(p.t1Set, r.Start, r.End)
		if err != nil {
			return err
		}
		h := reporter.Handle()
		for {
			mask1, product, ok := it.Next()
			if !ok {
				break
			}
			metricPhase3Probes.Inc()
			mask2, found := cmap.Get(product)
			if found {
				metricPhase3Hits.Inc()
				res, ok := p.verifier.Check(mask1, uint64(mask2))
				if ok {
					metricFakePrimesFound.Inc()
					level.Info(p.logger).Log("msg", "fake prime found", "run_id", p.runID, "mask1", mask1, "mask2", mask2, "n_bit_len", res.N.BitLen())
					mu.Lock()
					results = append(results, res)
					mu.Unlock()
				} else {
					metricVerifyRejected.Inc()
				}
			}
			h.Report(1)
		}
		h.Flush()
		return nil
	})
	reporter.Done()
	if err != nil {
		return nil, err
	}
	return results, nil
}
