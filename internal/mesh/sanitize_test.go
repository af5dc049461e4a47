package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/payneio/castle/internal/registry"
)

func TestSanitizeStripsEnvRunCmdAndCastleRoot(t *testing.T) {
	reg := &registry.NodeRegistry{
		Node: registry.NodeIdentity{Hostname: "hosta", GatewayPort: 9000, CastleRoot: "/home/me/castle"},
		Deployed: map[string]*registry.DeployedComponent{
			"api": {
				Runner:  "python",
				RunCmd:  []string{"/usr/bin/api"},
				Env:     map[string]string{"SECRET": "x"},
				Port:    9001,
				Managed: true,
			},
		},
	}

	out := Sanitize(reg)
	assert.Equal(t, "hosta", out.Node.Hostname)
	assert.Equal(t, 9000, out.Node.GatewayPort)

	comp, ok := out.Deployed["api"]
	assert.True(t, ok)
	assert.Equal(t, 9001, comp.Port)
	assert.Equal(t, "python", comp.Runner)
}
