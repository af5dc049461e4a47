package api

import (
	"testing"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/payneio/castle/internal/eventbus"
	"github.com/payneio/castle/internal/mesh"
	"github.com/payneio/castle/internal/registry"
	"github.com/payneio/castle/internal/secrets"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	store, err := secrets.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := New(Deps{
		Identity: registry.NodeIdentity{Hostname: "devbox", GatewayPort: 9000},
		Secrets:  store,
		Mesh:     mesh.NewStateManager(),
		Bus:      eventbus.New(hclog.NewNullLogger()),
		Logger:   hclog.NewNullLogger(),
	})
	return s
}
