// Package workerpool provides the execution half of spec component F
// (NUMA Executor): partitioning a [0, total) range into contiguous
// tasks and running them with bounded concurrency, optionally pinned to
// specific CPUs/NUMA nodes. The bounded-fan-out-then-barrier shape is
// grounded on the teacher's retention.go (tempodb/retention.go, a
// boundedwaitgroup.New(n) fan-out with a single Wait barrier) and
// cmd/tempo-cli/shared.go's loadBucket (the same shape, channel
// instead of shared slice); pinning to CPUs is layered in from
// numatopo, itself grounded on kubernetes-kubernetes's cpumanager.
package workerpool

import (
	"fmt"
	"sync"

	"github.com/grafana/bleichenbacher-fakeprimes/numatopo"
)

// Range is a contiguous, half-open slice of the [0, total) Gray-code
// index space assigned to one task.
type Range struct {
	Start, End uint64
}

// Partition splits [0, total) into ntasks contiguous, near-equal
// ranges. The orchestrator (Pipeline) uses this once per phase to
// divide the 2^32-mask space across a fixed task count, independent of
// however many CPUs end up running those tasks (spec §4.F: "distribute
// a Gray-code range partition of [0, 2^32) across workers").
func Partition(total uint64, ntasks int) []Range {
	if ntasks <= 0 {
		ntasks = 1
	}
	per := total / uint64(ntasks)
	if per == 0 {
		per = 1
		ntasks = int(total)
		if ntasks == 0 {
			return nil
		}
	}
	ranges := make([]Range, 0, ntasks)
	var start uint64
	for i := 0; i < ntasks; i++ {
		end := start + per
		if i == ntasks-1 || end > total {
			end = total
		}
		ranges = append(ranges, Range{Start: start, End: end})
		start = end
		if start >= total {
			break
		}
	}
	return ranges
}

// Executor runs per-task work with bounded concurrency across a
// discovered (or synthetic) NUMA topology. Slots are numbered node by
// node (all of node 0's CPUs, then node 1's, ...) and each slot belongs
// to the node of its CPU, so callers can allocate node-local
// state (e.g. a bloomfilter.Filter) once per slot and reuse it across
// every task that slot runs.
type Executor struct {
	topo      *numatopo.Topology
	pin       bool
	slotCPUs  []pinTarget
}

type pinTarget struct {
	nodeID int
	cpu    int
}

// New builds an Executor with concurrency equal to the total CPU count
// in topo (one slot per logical CPU, matching spec §5: "one [thread]
// per logical CPU, pinned to NUMA nodes"). If pin is false, slots are
// not bound to specific CPUs - useful for tests and non-Linux
// platforms where SchedSetaffinity isn't available.
func New(topo *numatopo.Topology, pin bool) *Executor {
	var slots []pinTarget
	for _, n := range topo.Nodes {
		for _, cpu := range n.CPUs {
			slots = append(slots, pinTarget{nodeID: n.ID, cpu: cpu})
		}
	}
	if len(slots) == 0 {
		slots = []pinTarget{{nodeID: 0, cpu: 0}}
	}
	return &Executor{topo: topo, pin: pin, slotCPUs: slots}
}

// Concurrency reports the number of worker slots (logical CPUs) this
// executor will run at once.
func (e *Executor) Concurrency() int { return len(e.slotCPUs) }

// NodeForSlot reports which NUMA node owns the given slot index, for
// callers that need to place node-local allocations (the Bloom filter
// backing store) before dispatching work to that slot.
func (e *Executor) NodeForSlot(slot int) int {
	return e.slotCPUs[slot%len(e.slotCPUs)].nodeID
}

// RunTasks runs fn(slot, range) for every range in ranges, bounding
// in-flight goroutines to Concurrency() the way the teacher's
// boundedwaitgroup.New(n) bounds tenant retention fan-out. It is a
// barrier: RunTasks does not return until every task has completed,
// even after one has returned an error, and then returns one of the
// errors (nil if none), matching spec §4.G's "barrier-synchronous"
// phase transitions and §7.4's "worker panic... is fatal" (a panic in
// fn propagates by crashing the process, consistent with "no
// partial-result recovery").
func (e *Executor) RunTasks(ranges []Range, fn func(slot int, r Range) error) error {
	sem := make(chan struct{}, e.Concurrency())
	var wg sync.WaitGroup
	errs := make(chan error, len(ranges))

	for i, r := range ranges {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot int, r Range) {
			defer wg.Done()
			defer func() { <-sem }()

			if e.pin {
				if err := numatopo.PinCurrentThread(e.slotCPUs[slot%len(e.slotCPUs)].cpu); err != nil {
					errs <- fmt.Errorf("workerpool: pinning slot %d: %w", slot, err)
					return
				}
			}
			if err := fn(slot, r); err != nil {
				errs <- err
			}
		}(i%e.Concurrency(), r)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
