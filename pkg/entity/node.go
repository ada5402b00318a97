package entity

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Node is an in-memory Entity. Graphs of nodes can be built in code, loaded from YAML
// with LoadYAML, or fetched from an entity server with Client.Fetch.
//
// Example YAML document:
//
//	type: AssetVersion
//	id: v1
//	attributes:
//	  version: 7
//	relations:
//	  asset:
//	    type: Asset
//	    attributes: {name: Crate}
//	links:
//	  - type: Project
//	    attributes: {name: film}
type Node struct {
	Kind       string           `yaml:"type" json:"type"`
	Key        string           `yaml:"id,omitempty" json:"id,omitempty"`
	Attributes map[string]any   `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Relations  map[string]*Node `yaml:"relations,omitempty" json:"relations,omitempty"`
	Ancestors  []*Node          `yaml:"links,omitempty" json:"links,omitempty"`
}

var (
	_ Entity = (*Node)(nil)
	_ Linked = (*Node)(nil)
)

func (n *Node) Type() string { return n.Kind }

func (n *Node) ID() string { return n.Key }

func (n *Node) Attribute(name string) (any, bool) {
	value, ok := n.Attributes[name]
	return value, ok
}

func (n *Node) Related(name string) (Entity, bool) {
	related, ok := n.Relations[name]
	if !ok || related == nil {
		return nil, false
	}
	return related, true
}

func (n *Node) Links() []Entity {
	links := make([]Entity, 0, len(n.Ancestors))
	for _, ancestor := range n.Ancestors {
		if ancestor != nil {
			links = append(links, ancestor)
		}
	}
	return links
}

// Relate sets a relationship and returns n for chaining.
func (n *Node) Relate(name string, related *Node) *Node {
	if n.Relations == nil {
		n.Relations = make(map[string]*Node)
	}
	n.Relations[name] = related
	return n
}

func (n *Node) validate() error {
	if n.Kind == "" {
		return fmt.Errorf("'type' is required")
	}
	for name, related := range n.Relations {
		if related == nil {
			continue
		}
		if err := related.validate(); err != nil {
			return fmt.Errorf("relation %q: %w", name, err)
		}
	}
	for i, ancestor := range n.Ancestors {
		if ancestor == nil {
			continue
		}
		if err := ancestor.validate(); err != nil {
			return fmt.Errorf("link %d: %w", i, err)
		}
	}
	return nil
}

// LoadYAML decodes a Node graph from r.
func LoadYAML(r io.Reader) (*Node, error) {
	var node Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}
	if err := node.validate(); err != nil {
		return nil, fmt.Errorf("invalid entity: %w", err)
	}
	return &node, nil
}

// LoadYAMLFile decodes a Node graph from the YAML file at path.
func LoadYAMLFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadYAML(f)
}
