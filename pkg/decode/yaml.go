package decode

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sdejongh/diffnorris/pkg/graph"
)

// YAML decodes YAML documents through the yaml.v3 node tree,
// preserving mapping key order
type YAML struct{}

// Name returns "yaml"
func (YAML) Name() string { return "yaml" }

// Decode parses the first document of the stream
func (YAML) Decode(data []byte) (*graph.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	if root.Kind == 0 {
		return graph.Null(), nil
	}
	n, err := convertYAML(&root, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	return n, nil
}

// maxYAMLDepth bounds alias expansion
const maxYAMLDepth = 512

func convertYAML(n *yaml.Node, depth int) (*graph.Node, error) {
	if depth > maxYAMLDepth {
		return nil, fmt.Errorf("document nested deeper than %d levels", maxYAMLDepth)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return graph.Null(), nil
		}
		return convertYAML(n.Content[0], depth+1)
	case yaml.AliasNode:
		return convertYAML(n.Alias, depth+1)
	case yaml.MappingNode:
		fields := make([]graph.Field, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := convertYAML(n.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			fields = append(fields, graph.F(n.Content[i].Value, v))
		}
		return graph.Object(fields...), nil
	case yaml.SequenceNode:
		items := make([]*graph.Node, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := convertYAML(c, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return graph.List(items...), nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return graph.Null(), nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, err
			}
			return graph.Bool(b), nil
		case "!!int", "!!float":
			return graph.Number(n.Value), nil
		case "!!timestamp":
			return graph.Date(n.Value), nil
		default:
			return graph.String(n.Value), nil
		}
	}
	return nil, fmt.Errorf("unsupported yaml node kind %d at line %d", n.Kind, n.Line)
}
