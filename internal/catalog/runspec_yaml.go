package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML implements the discriminated-union decode for RunSpec: peek
// at `runner`, then decode the whole node into the matching concrete type.
// An unrecognized runner value fails closed per spec.md §4.1 ("unknown
// runner discriminator values fail closed").
func (r *RunSpec) UnmarshalYAML(value *yaml.Node) error {
	var head struct {
		Runner RunnerKind `yaml:"runner"`
	}
	if err := value.Decode(&head); err != nil {
		return err
	}

	r.Runner = head.Runner
	switch head.Runner {
	case RunnerCommand:
		var v RunCommand
		if err := value.Decode(&v); err != nil {
			return err
		}
		r.Command = &v
	case RunnerPython:
		var v RunPython
		if err := value.Decode(&v); err != nil {
			return err
		}
		r.Python = &v
	case RunnerContainer:
		var v RunContainer
		if err := value.Decode(&v); err != nil {
			return err
		}
		r.Container = &v
	case RunnerNode:
		var v RunNode
		if err := value.Decode(&v); err != nil {
			return err
		}
		r.Node = &v
	case RunnerRemote:
		var v RunRemote
		if err := value.Decode(&v); err != nil {
			return err
		}
		r.Remote = &v
	default:
		return fmt.Errorf("%w: runner %q", ErrUnsupportedRunner, head.Runner)
	}
	return nil
}

// MarshalYAML flattens the active variant back alongside the `runner`
// discriminator key.
func (r RunSpec) MarshalYAML() (interface{}, error) {
	out := yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(k string, v interface{}) error {
		var kn, vn yaml.Node
		if err := kn.Encode(k); err != nil {
			return err
		}
		if err := vn.Encode(v); err != nil {
			return err
		}
		out.Content = append(out.Content, &kn, &vn)
		return nil
	}

	if err := add("runner", r.Runner); err != nil {
		return nil, err
	}

	var variant interface{}
	switch r.Runner {
	case RunnerCommand:
		variant = r.Command
	case RunnerPython:
		variant = r.Python
	case RunnerContainer:
		variant = r.Container
	case RunnerNode:
		variant = r.Node
	case RunnerRemote:
		variant = r.Remote
	default:
		return nil, fmt.Errorf("%w: runner %q", ErrUnsupportedRunner, r.Runner)
	}

	var body yaml.Node
	if err := body.Encode(variant); err != nil {
		return nil, err
	}
	if body.Kind == yaml.MappingNode {
		out.Content = append(out.Content, body.Content...)
	}
	return &out, nil
}
