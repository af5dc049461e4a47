package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// rawCatalog is the on-disk shape of castle.yaml: gateway, then the three
// ordered maps, in that order (spec.md §4.1 "writes back using a stable
// ordering: gateway, programs, services, jobs").
type rawCatalog struct {
	Gateway  GatewayConfig       `yaml:"gateway"`
	Programs yaml.Node           `yaml:"programs,omitempty"`
	Services yaml.Node           `yaml:"services,omitempty"`
	Jobs     yaml.Node           `yaml:"jobs,omitempty"`
}

// Load parses a castle.yaml file into a Catalog, validating it and
// resolving the `type`→`stack` alias. Returns ErrInvalidCatalog (YAML
// parse error or schema violation) or ErrDuplicateID (cross-namespace id
// collision).
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes raw YAML bytes into a validated Catalog.
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCatalog, err)
	}

	c := New()
	if raw.Gateway.Port != 0 {
		c.Gateway.Port = raw.Gateway.Port
	}

	verrs := &ValidationError{}

	if err := decodeOrderedMap(&raw.Programs, func(name string, node *yaml.Node) error {
		var p Program
		if err := node.Decode(&p); err != nil {
			verrs.add("programs."+name, "%s", err)
			return nil
		}
		p.ID = name
		p.resolveStackAlias()
		c.Programs[name] = &p
		c.programOrder = append(c.programOrder, name)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := decodeOrderedMap(&raw.Services, func(name string, node *yaml.Node) error {
		var s Service
		if err := node.Decode(&s); err != nil {
			if errors.Is(err, ErrUnsupportedRunner) {
				return fmt.Errorf("%w: services.%s: %w", ErrInvalidCatalog, name, err)
			}
			verrs.add("services."+name, "%s", err)
			return nil
		}
		s.ID = name
		c.Services[name] = &s
		c.serviceOrder = append(c.serviceOrder, name)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := decodeOrderedMap(&raw.Jobs, func(name string, node *yaml.Node) error {
		var j Job
		if err := node.Decode(&j); err != nil {
			if errors.Is(err, ErrUnsupportedRunner) {
				return fmt.Errorf("%w: jobs.%s: %w", ErrInvalidCatalog, name, err)
			}
			verrs.add("jobs."+name, "%s", err)
			return nil
		}
		j.ID = name
		if j.Timezone == "" {
			j.Timezone = defaultTimezone
		}
		c.Jobs[name] = &j
		c.jobOrder = append(c.jobOrder, name)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := verrs.asError(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// decodeOrderedMap walks a YAML mapping node in document order, which
// yaml.v3 preserves, calling fn for every key/value pair.
func decodeOrderedMap(node *yaml.Node, fn func(name string, value *yaml.Node) error) error {
	if node == nil || node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: expected a mapping", ErrInvalidCatalog)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if err := fn(key, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the catalog back to path, preceded by a `.yaml.bak` sibling
// of the existing file (spec.md §4.1).
func (c *Catalog) Save(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := backupFile(path); err != nil {
			return err
		}
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return os.WriteFile(path, data, 0o644)
}

func backupFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog for backup %s: %w", path, err)
	}
	return os.WriteFile(path+".bak", data, 0o644)
}

// Marshal renders the catalog to YAML bytes using the stable key ordering
// recorded at load time (or insertion order for a freshly-built catalog).
func (c *Catalog) Marshal() ([]byte, error) {
	var root yaml.Node
	root.Kind = yaml.MappingNode

	appendKV := func(key string, val interface{}) error {
		var kn yaml.Node
		if err := kn.Encode(key); err != nil {
			return err
		}
		var vn yaml.Node
		if err := vn.Encode(val); err != nil {
			return err
		}
		root.Content = append(root.Content, &kn, &vn)
		return nil
	}

	if err := appendKV("gateway", c.Gateway); err != nil {
		return nil, err
	}

	if len(c.Programs) > 0 {
		node, err := mapNodeInOrder(c.orderedProgramNames(), func(name string) (interface{}, bool) {
			p, ok := c.Programs[name]
			return p, ok
		})
		if err != nil {
			return nil, err
		}
		if err := appendNode("programs", node, &root); err != nil {
			return nil, err
		}
	}

	if len(c.Services) > 0 {
		node, err := mapNodeInOrder(c.orderedServiceNames(), func(name string) (interface{}, bool) {
			s, ok := c.Services[name]
			return s, ok
		})
		if err != nil {
			return nil, err
		}
		if err := appendNode("services", node, &root); err != nil {
			return nil, err
		}
	}

	if len(c.Jobs) > 0 {
		node, err := mapNodeInOrder(c.orderedJobNames(), func(name string) (interface{}, bool) {
			j, ok := c.Jobs[name]
			return j, ok
		})
		if err != nil {
			return nil, err
		}
		if err := appendNode("jobs", node, &root); err != nil {
			return nil, err
		}
	}

	var doc yaml.Node
	doc.Kind = yaml.DocumentNode
	doc.Content = []*yaml.Node{&root}

	return yaml.Marshal(&doc)
}

func appendNode(key string, value *yaml.Node, root *yaml.Node) error {
	var kn yaml.Node
	if err := kn.Encode(key); err != nil {
		return err
	}
	root.Content = append(root.Content, &kn, value)
	return nil
}

func mapNodeInOrder(names []string, get func(string) (interface{}, bool)) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range names {
		v, ok := get(name)
		if !ok {
			continue
		}
		var kn yaml.Node
		if err := kn.Encode(name); err != nil {
			return nil, err
		}
		var vn yaml.Node
		if err := vn.Encode(v); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &kn, &vn)
	}
	return node, nil
}

// orderedProgramNames returns load order followed by any names added since
// (e.g. by create operations), so Save always covers every entry.
func (c *Catalog) orderedProgramNames() []string { return orderedNames(c.programOrder, c.Programs) }
func (c *Catalog) orderedServiceNames() []string { return orderedNames(c.serviceOrder, c.Services) }
func (c *Catalog) orderedJobNames() []string     { return orderedNames(c.jobOrder, c.Jobs) }

func orderedNames[V any](order []string, m map[string]V) []string {
	seen := make(map[string]bool, len(order))
	out := make([]string, 0, len(m))
	for _, n := range order {
		if _, ok := m[n]; ok && !seen[n] {
			out = append(out, n)
			seen[n] = true
		}
	}
	for n := range m {
		if !seen[n] {
			out = append(out, n)
			seen[n] = true
		}
	}
	return out
}
