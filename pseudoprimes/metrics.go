package pseudoprimes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names and registration follow the teacher's tempodb.go
// promauto block: one promauto.New* call per metric, namespaced, no
// hand-rolled registry bookkeeping.
var (
	metricPhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pseudosearch",
		Name:      "phase_duration_seconds",
		Help:      "Time spent in each pipeline phase.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16),
	}, []string{"phase"})

	metricBloomPopcount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pseudosearch",
		Name:      "bloom_popcount",
		Help:      "Number of set bits in the merged phase-1 Bloom filter.",
	})

	metricCandidatesInserted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pseudosearch",
		Name:      "candidates_inserted_total",
		Help:      "Number of (product, mask2) pairs inserted into the candidate map during phase 2.",
	})

	metricPhase3Probes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pseudosearch",
		Name:      "phase3_probes_total",
		Help:      "Number of candidate-map lookups performed during phase 3.",
	})

	metricPhase3Hits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pseudosearch",
		Name:      "phase3_hits_total",
		Help:      "Number of candidate-map hits during phase 3, before external verification.",
	})

	metricVerifyRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pseudosearch",
		Name:      "verify_rejected_total",
		Help:      "Phase-3 hits that failed external verification (below the minimum candidate size, or not a fake prime).",
	})

	metricFakePrimesFound = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pseudosearch",
		Name:      "fake_primes_found_total",
		Help:      "Confirmed fake primes emitted by the pipeline.",
	})
)
