package numatopo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoverAlwaysReturnsAtLeastOneNode(t *testing.T) {
	topo, err := Discover()
	require.NoError(t, err)
	require.NotEmpty(t, topo.Nodes)
	for _, n := range topo.Nodes {
		require.NotEmpty(t, n.CPUs)
	}
}

func TestAsCadvisorNodesPreservesCounts(t *testing.T) {
	topo := &Topology{Nodes: []Node{{ID: 0, CPUs: []int{0, 1, 2}}, {ID: 1, CPUs: []int{3, 4}}}}
	cav := topo.AsCadvisorNodes()

	require.Len(t, cav, 2)
	require.Len(t, cav[0].Cores, 3)
	require.Len(t, cav[1].Cores, 2)
}
