package catalog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	dynamicKey = "$dynamic"
	calcKey    = "$calc"
)

// Property is one configured value: static, dynamic or calculated.
type Property struct {
	Static  any
	Dynamic *DynamicSpec
	Calc    string
}

// DynamicSpec configures a value supplied by the caller.
type DynamicSpec struct {
	Required bool `yaml:"required"`
	Default  any  `yaml:"default"`
}

func (p *Property) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode && len(node.Content) == 2 {
		key, value := node.Content[0].Value, node.Content[1]
		switch key {
		case dynamicKey:
			var spec DynamicSpec
			if err := value.Decode(&spec); err != nil {
				return fmt.Errorf("line %d: %s: %w", node.Line, dynamicKey, err)
			}
			p.Dynamic = &spec
			return nil
		case calcKey:
			var src string
			if err := value.Decode(&src); err != nil {
				return fmt.Errorf("line %d: %s: %w", node.Line, calcKey, err)
			}
			if strings.TrimSpace(src) == "" {
				return fmt.Errorf("line %d: %s needs an expression", node.Line, calcKey)
			}
			p.Calc = src
			return nil
		}
	}
	return node.Decode(&p.Static)
}
