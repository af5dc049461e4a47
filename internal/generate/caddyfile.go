package generate

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/payneio/castle/internal/registry"
)

// Route is one reverse_proxy block: a claim on proxyPath by a component
// listening on host:port, local or remote (mesh-sourced).
type Route struct {
	ProxyPath string
	Host      string
	Port      int
}

type caddyfileView struct {
	GatewayPort int
	Routes      []Route
}

// RemoteRoute is a proxy-path claim observed on a peer node, supplied by
// the mesh coordinator's assembled view (spec.md §4.3's "remote" clause).
type RemoteRoute struct {
	ProxyPath string
	Hostname  string
	Port      int
}

// Caddyfile renders the gateway config for reg's local deployments plus
// remote claims that don't collide with a local one on the same proxy
// path. Local claims always take precedence; routes are sorted by path
// for determinism (spec.md §4.3).
func Caddyfile(gatewayPort int, reg *registry.NodeRegistry, remote []RemoteRoute) (string, error) {
	claimed := map[string]bool{}
	var routes []Route

	var localPaths []string
	for _, dc := range reg.Deployed {
		if dc.ProxyPath == "" || dc.Port == 0 {
			continue
		}
		localPaths = append(localPaths, dc.ProxyPath)
	}
	sort.Strings(localPaths)
	for _, path := range localPaths {
		if claimed[path] {
			continue
		}
		claimed[path] = true
		for _, dc := range reg.Deployed {
			if dc.ProxyPath == path {
				routes = append(routes, Route{ProxyPath: path, Host: "localhost", Port: dc.Port})
				break
			}
		}
	}

	var remoteSorted []RemoteRoute
	remoteSorted = append(remoteSorted, remote...)
	sort.Slice(remoteSorted, func(i, j int) bool { return remoteSorted[i].ProxyPath < remoteSorted[j].ProxyPath })
	for _, r := range remoteSorted {
		if claimed[r.ProxyPath] {
			continue
		}
		claimed[r.ProxyPath] = true
		routes = append(routes, Route{ProxyPath: r.ProxyPath, Host: r.Hostname, Port: r.Port})
	}

	sort.Slice(routes, func(i, j int) bool { return routes[i].ProxyPath < routes[j].ProxyPath })

	v := caddyfileView{GatewayPort: gatewayPort, Routes: routes}
	var buf bytes.Buffer
	if err := caddyfileTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render caddyfile: %w", err)
	}
	return buf.String(), nil
}
