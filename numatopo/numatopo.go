// Package numatopo discovers NUMA topology and pins OS threads to CPU
// sets, the topology-discovery half of spec component F (NUMA
// Executor). The representation of a node (ID + CPU list) is modeled on
// cadvisorapi.Node, the same shape kubernetes-kubernetes's
// pkg/kubelet/cm/topologymanager takes a []cadvisorapi.Node from; CPU
// pinning is done with golang.org/x/sys/unix's SchedSetaffinity, the
// same primitive kubernetes-kubernetes's cpumanager reaches for (there,
// via a cpuset abstraction over the same syscall).
package numatopo

import (
	"fmt"
	"os"
	"runtime"

	cadvisorapi "github.com/google/cadvisor/info/v1"
	"golang.org/x/sys/unix"
)

// Node describes one NUMA node: its ID and the CPU IDs local to it.
type Node struct {
	ID   int
	CPUs []int
}

// Topology is the discovered (or synthesized) set of NUMA nodes this
// process can run workers on.
type Topology struct {
	Nodes []Node
}

// Discover reads /sys/devices/system/node to build a Topology. If NUMA
// information isn't available (container without /sys, single-socket
// dev box, non-Linux), it falls back to a single synthetic node
// spanning every logical CPU runtime.NumCPU reports, so tests and small
// runs work on any machine. Discover never returns an error, and the
// returned Topology does not say whether it is the synthetic fallback:
// an undiscoverable topology is not reported as fatal, not even when
// the caller pins workers.
func Discover() (*Topology, error) {
	nodes, err := discoverFromCadvisor()
	if err != nil || len(nodes) == 0 {
		return &Topology{Nodes: []Node{singleNode()}}, nil
	}
	return &Topology{Nodes: nodes}, nil
}

func singleNode() Node {
	cpus := make([]int, runtime.NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return Node{ID: 0, CPUs: cpus}
}

// discoverFromCadvisor walks /sys/devices/system/node/node*, returning
// one numatopo.Node per discovered cadvisor-shaped node. Absence of the
// directory (non-NUMA machine, sandboxed environment) is not an error
// here; Discover treats zero nodes as "fall back to synthetic".
func discoverFromCadvisor() ([]Node, error) {
	const base = "/sys/devices/system/node"
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, nil //nolint:nilerr // absence of NUMA sysfs is not fatal, see Discover's doc comment
	}

	var nodes []Node
	for _, e := range entries {
		var id int
		if n, _ := fmt.Sscanf(e.Name(), "node%d", &id); n != 1 {
			continue
		}
		cpus, err := cpusForNode(base, e.Name())
		if err != nil || len(cpus) == 0 {
			continue
		}
		nodes = append(nodes, Node{ID: id, CPUs: cpus})
	}
	return nodes, nil
}

func cpusForNode(base, nodeDir string) ([]int, error) {
	entries, err := os.ReadDir(base + "/" + nodeDir)
	if err != nil {
		return nil, err
	}
	var cpus []int
	for _, e := range entries {
		var cpu int
		if n, _ := fmt.Sscanf(e.Name(), "cpu%d", &cpu); n == 1 {
			cpus = append(cpus, cpu)
		}
	}
	return cpus, nil
}

// AsCadvisorNodes renders the discovered topology in the upstream
// cadvisor shape, useful when wiring into tooling (metrics exporters,
// dashboards) that already understands cadvisorapi.Node.
func (t *Topology) AsCadvisorNodes() []cadvisorapi.Node {
	out := make([]cadvisorapi.Node, len(t.Nodes))
	for i, n := range t.Nodes {
		cores := make([]cadvisorapi.Core, len(n.CPUs))
		for j, cpu := range n.CPUs {
			cores[j] = cadvisorapi.Core{Id: cpu}
		}
		out[i] = cadvisorapi.Node{Id: n.ID, Cores: cores}
	}
	return out
}

// PinCurrentThread locks the calling goroutine to its current OS thread
// and restricts that thread's scheduling affinity to cpu. It calls
// runtime.LockOSThread itself, so it is safe to call directly from a
// freshly spawned worker goroutine before it touches node-local memory.
func PinCurrentThread(cpu int) error {
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("numatopo: SchedSetaffinity(cpu=%d): %w", cpu, err)
	}
	return nil
}
