package mesh

import "github.com/payneio/castle/internal/registry"

// Sanitize strips everything spec.md §4.4 forbids from leaving the
// process (env, run_cmd, castle_root) and returns the wire-safe shape
// that gets published to castle/<host>/registry.
func Sanitize(reg *registry.NodeRegistry) *SanitizedRegistry {
	out := &SanitizedRegistry{
		Node: SanitizedNode{
			Hostname:    reg.Node.Hostname,
			GatewayPort: reg.Node.GatewayPort,
		},
		Deployed: make(map[string]SanitizedComponent, len(reg.Deployed)),
	}
	for name, dc := range reg.Deployed {
		out.Deployed[name] = SanitizedComponent{
			Runner:      dc.Runner,
			Behavior:    string(dc.Behavior),
			Stack:       dc.Stack,
			Description: dc.Description,
			Port:        dc.Port,
			HealthPath:  dc.HealthPath,
			ProxyPath:   dc.ProxyPath,
			Schedule:    dc.Schedule,
			Managed:     dc.Managed,
		}
	}
	return out
}
