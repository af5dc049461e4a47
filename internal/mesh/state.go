// Package mesh coordinates cluster membership over a retained MQTT pub/sub
// layer plus advisory mDNS discovery, assembling the cross-node view C3 and
// C5 read (spec.md §4.4).
package mesh

import (
	"sync"
	"time"
)

// staleTTL is how old a remote node's last_seen may get before is_stale
// reports true. IsStale computes this on each read; no background sweep
// runs.
const staleTTL = 5 * time.Minute

// RemoteNode is a peer's sanitized registry plus liveness bookkeeping.
type RemoteNode struct {
	Registry *SanitizedRegistry
	LastSeen time.Time
	Online   bool
}

// IsStale reports whether this node's last registry/status update is older
// than staleTTL. Per spec.md §4.4, is_stale is advisory only: it is never
// used to drop peers eagerly from a snapshot that asks to include stale
// nodes.
func (n *RemoteNode) IsStale() bool {
	return time.Since(n.LastSeen) > staleTTL
}

// StateManager holds every peer observed over the mesh. Writes come only
// from the MQTT inbound bridge and explicit PruneStale calls; every other reader
// goes through the snapshot-returning accessors below so iteration never
// races a concurrent update (spec.md §5 "Shared state").
type StateManager struct {
	mu    sync.RWMutex
	nodes map[string]*RemoteNode
}

// NewStateManager returns an empty state manager.
func NewStateManager() *StateManager {
	return &StateManager{nodes: map[string]*RemoteNode{}}
}

// UpdateNode replaces hostname's registry and marks it online, stamping
// last_seen to now.
func (m *StateManager) UpdateNode(hostname string, reg *SanitizedRegistry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[hostname] = &RemoteNode{Registry: reg, LastSeen: time.Now(), Online: true}
}

// SetOffline marks hostname offline if it is known. Unknown hosts are a
// no-op: an LWT for a node we've never heard a registry from carries
// nothing to route.
func (m *StateManager) SetOffline(hostname string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[hostname]; ok {
		n.Online = false
	}
}

// RemoveNode drops hostname entirely.
func (m *StateManager) RemoveNode(hostname string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, hostname)
}

// GetNode returns a copy of hostname's state, or nil if unknown.
func (m *StateManager) GetNode(hostname string) *RemoteNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[hostname]
	if !ok {
		return nil
	}
	cp := *n
	return &cp
}

// AllNodes returns a snapshot copy of every known peer. When
// includeStale is false, stale peers are filtered out of the copy (the
// live set still retains them — see IsStale's doc comment).
func (m *StateManager) AllNodes(includeStale bool) map[string]*RemoteNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*RemoteNode, len(m.nodes))
	for h, n := range m.nodes {
		if !includeStale && n.IsStale() {
			continue
		}
		cp := *n
		out[h] = &cp
	}
	return out
}

// PruneStale removes every currently-stale peer and returns their
// hostnames. Callers invoke this on demand (spec.md §4.4); nothing prunes
// eagerly on its own.
func (m *StateManager) PruneStale() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pruned []string
	for h, n := range m.nodes {
		if n.IsStale() {
			pruned = append(pruned, h)
			delete(m.nodes, h)
		}
	}
	return pruned
}

// SanitizedNode is the only node-identity shape that travels over the
// mesh: hostname and gateway_port. castle_root never leaves the process.
type SanitizedNode struct {
	Hostname    string `json:"hostname"`
	GatewayPort int    `json:"gateway_port"`
}

// SanitizedRegistry is the mesh-safe projection of a NodeRegistry:
// env, run_cmd and castle_root never leave the process (spec.md §4.4).
type SanitizedRegistry struct {
	Node     SanitizedNode                 `json:"node"`
	Deployed map[string]SanitizedComponent `json:"deployed"`
}

// SanitizedComponent is one entry of a SanitizedRegistry.
type SanitizedComponent struct {
	Runner      string `json:"runner"`
	Behavior    string `json:"behavior"`
	Stack       string `json:"stack,omitempty"`
	Description string `json:"description,omitempty"`
	Port        int    `json:"port,omitempty"`
	HealthPath  string `json:"health_path,omitempty"`
	ProxyPath   string `json:"proxy_path,omitempty"`
	Schedule    string `json:"schedule,omitempty"`
	Managed     bool   `json:"managed,omitempty"`
}
