// Package progress reports throughput of a long-running phase, ported
// from original_source/progress.rs: each worker holds a lightweight
// per-worker Handle that batches its increments locally and periodically
// flushes into a shared counter, with the flush interval adapting to
// the observed reporting rate. Where the Rust source calls println!
// directly, this reports through a go-kit/log logger instead, matching
// the teacher's logging convention (pkg/log).
package progress

import (
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"
)

const (
	initialInterval = 1000
	minInterval     = 100
)

// Reporter tracks progress toward a known total amount of work and logs
// periodic rate updates.
type Reporter struct {
	logger    kitlog.Logger
	desc      string
	total     uint64
	start     time.Time
	counter   atomic.Uint64
	interval  atomic.Uint64
}

// New creates a Reporter for a phase named desc expected to process
// total units of work.
func New(logger kitlog.Logger, desc string, total uint64) *Reporter {
	r := &Reporter{logger: logger, desc: desc, total: total, start: time.Now()}
	r.interval.Store(initialInterval)
	return r
}

// Handle returns a per-worker handle. Workers must call Report on their
// own handle and Flush when done; handles are not safe to share across
// goroutines.
func (r *Reporter) Handle() *Handle {
	return &Handle{reporter: r, lastReport: time.Now(), interval: initialInterval}
}

// Count returns the total work reported so far.
func (r *Reporter) Count() uint64 { return r.counter.Load() }

// Done logs the final summary, mirroring the Rust ProgressReporter's
// Drop impl.
func (r *Reporter) Done() {
	level.Info(r.logger).Log(
		"msg", "phase completed",
		"phase", r.desc,
		"count", r.counter.Load(),
		"elapsed_ms", time.Since(r.start).Milliseconds(),
	)
}

func (r *Reporter) reportUp(count uint64) {
	interval := r.interval.Load()
	prior := r.counter.Add(count) - count
	newVal := prior + count

	if prior/interval != newVal/interval {
		r.display(interval)
	}
}

func (r *Reporter) display(oldInterval uint64) {
	cur := r.counter.Load()
	elapsedMs := uint64(time.Since(r.start).Milliseconds())
	if elapsedMs == 0 {
		elapsedMs = 1
	}
	rate := float64(cur) / float64(elapsedMs) * 1000.0

	newInterval := uint64(rate)
	if newInterval > oldInterval*4 {
		newInterval = oldInterval * 4
	}
	if newInterval < minInterval {
		newInterval = minInterval
	}
	r.interval.CompareAndSwap(oldInterval, newInterval)

	var remain float64
	if rate > 0 {
		remain = float64(r.total-cur) / rate
	}
	level.Info(r.logger).Log(
		"msg", "progress",
		"phase", r.desc,
		"count", cur,
		"rate_per_s", rate,
		"remaining_s", remain,
	)
}

// Handle is a per-worker batched counter. Report accumulates local
// progress and flushes into the shared Reporter when the local batch
// crosses the current (self-tuning) interval.
type Handle struct {
	reporter     *Reporter
	lastReport   time.Time
	interval     uint64
	localCounter uint64
}

// Report records that increment units of work were completed.
func (h *Handle) Report(increment uint64) {
	h.localCounter += increment
	if h.localCounter >= h.interval {
		h.push()
	}
}

func (h *Handle) push() {
	elapsedMs := time.Since(h.lastReport).Milliseconds()
	ratio := 1.0
	if elapsedMs > 0 {
		ratio = 1000.0 / float64(elapsedMs)
	}
	if ratio < 0.25 {
		ratio = 0.25
	} else if ratio > 4.0 {
		ratio = 4.0
	}
	h.interval = uint64(float64(h.interval) * ratio)
	if h.interval < 1 {
		h.interval = 1
	}

	h.reporter.reportUp(h.localCounter)
	h.localCounter = 0
	h.lastReport = time.Now()
}

// Flush reports any remaining local progress. Workers must call this
// when they finish their assigned range, the way the Rust
// ProgressHandle's Drop impl does it automatically.
func (h *Handle) Flush() {
	if h.localCounter > 0 {
		h.reporter.reportUp(h.localCounter)
		h.localCounter = 0
	}
}
