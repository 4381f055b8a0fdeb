package workerpool

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/bleichenbacher-fakeprimes/numatopo"
)

func TestPartitionCoversWholeRangeExactlyOnce(t *testing.T) {
	ranges := Partition(1<<16, 37)

	var total uint64
	for i, r := range ranges {
		require.LessOrEqual(t, r.Start, r.End)
		if i > 0 {
			require.Equal(t, ranges[i-1].End, r.Start, "ranges must be contiguous")
		}
		total += r.End - r.Start
	}
	require.Equal(t, uint64(1<<16), total)
	require.Equal(t, uint64(0), ranges[0].Start)
	require.Equal(t, uint64(1<<16), ranges[len(ranges)-1].End)
}

func TestPartitionSmallTotal(t *testing.T) {
	ranges := Partition(3, 8)
	var total uint64
	for _, r := range ranges {
		total += r.End - r.Start
	}
	require.Equal(t, uint64(3), total)
}

func TestRunTasksExecutesEveryRangeUnpinned(t *testing.T) {
	topo := &numatopo.Topology{Nodes: []numatopo.Node{{ID: 0, CPUs: []int{0, 1, 2, 3}}}}
	ex := New(topo, false)

	ranges := Partition(1000, 20)
	var count atomic.Int64

	err := ex.RunTasks(ranges, func(slot int, r Range) error {
		count.Add(int64(r.End - r.Start))
		return nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 1000, count.Load())
}

func TestRunTasksPropagatesError(t *testing.T) {
	topo := &numatopo.Topology{Nodes: []numatopo.Node{{ID: 0, CPUs: []int{0, 1}}}}
	ex := New(topo, false)

	ranges := Partition(100, 10)
	sentinel := fmt.Errorf("boom")

	err := ex.RunTasks(ranges, func(slot int, r Range) error {
		if r.Start == 0 {
			return sentinel
		}
		return nil
	})
	require.ErrorIs(t, err, sentinel)
}

func TestNodeForSlotCyclesAcrossNodes(t *testing.T) {
	topo := &numatopo.Topology{Nodes: []numatopo.Node{
		{ID: 0, CPUs: []int{0, 1}},
		{ID: 1, CPUs: []int{2, 3}},
	}}
	ex := New(topo, false)
	require.Equal(t, 4, ex.Concurrency())
	require.Equal(t, 0, ex.NodeForSlot(0))
	require.Equal(t, 0, ex.NodeForSlot(1))
	require.Equal(t, 1, ex.NodeForSlot(2))
	require.Equal(t, 1, ex.NodeForSlot(3))
}
