package mesh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAndGetNode(t *testing.T) {
	m := NewStateManager()
	reg := &SanitizedRegistry{Node: SanitizedNode{Hostname: "hostb", GatewayPort: 9000}}
	m.UpdateNode("hostb", reg)

	n := m.GetNode("hostb")
	require.NotNil(t, n)
	assert.True(t, n.Online)
	assert.Equal(t, "hostb", n.Registry.Node.Hostname)
}

func TestSetOfflineUnknownHostIsNoop(t *testing.T) {
	m := NewStateManager()
	m.SetOffline("ghost")
	assert.Nil(t, m.GetNode("ghost"))
}

func TestSetOfflineKnownHost(t *testing.T) {
	m := NewStateManager()
	m.UpdateNode("hostb", &SanitizedRegistry{})
	m.SetOffline("hostb")
	n := m.GetNode("hostb")
	require.NotNil(t, n)
	assert.False(t, n.Online)
}

func TestAllNodesExcludesStaleByDefault(t *testing.T) {
	m := NewStateManager()
	m.nodes["fresh"] = &RemoteNode{LastSeen: time.Now(), Online: true, Registry: &SanitizedRegistry{}}
	m.nodes["old"] = &RemoteNode{LastSeen: time.Now().Add(-time.Hour), Online: true, Registry: &SanitizedRegistry{}}

	live := m.AllNodes(false)
	assert.Contains(t, live, "fresh")
	assert.NotContains(t, live, "old")

	all := m.AllNodes(true)
	assert.Contains(t, all, "fresh")
	assert.Contains(t, all, "old")
}

func TestPruneStaleRemovesOnlyStale(t *testing.T) {
	m := NewStateManager()
	m.nodes["fresh"] = &RemoteNode{LastSeen: time.Now(), Registry: &SanitizedRegistry{}}
	m.nodes["old"] = &RemoteNode{LastSeen: time.Now().Add(-time.Hour), Registry: &SanitizedRegistry{}}

	pruned := m.PruneStale()
	assert.Equal(t, []string{"old"}, pruned)
	assert.Nil(t, m.GetNode("old"))
	assert.NotNil(t, m.GetNode("fresh"))
}
