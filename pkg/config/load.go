package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kart-io/easysms/pkg/errors"
)

// LoadFile reads a YAML or JSON configuration file, then applies opts on top.
func LoadFile(path string, opts ...Option) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidConfig, "read %s", path)
	}
	return Parse(data, opts...)
}

// Parse decodes a YAML or JSON document. The gateways mapping is decoded node
// by node so that declaration order survives.
func Parse(data []byte, opts ...Option) (*Options, error) {
	o := &Options{}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidConfig, "decode config")
	}
	if len(doc.Content) > 0 {
		if err := o.decodeRoot(doc.Content[0]); err != nil {
			return nil, err
		}
	}

	if err := o.apply(opts...); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Options) decodeRoot(root *yaml.Node) error {
	if root.Kind != yaml.MappingNode {
		return errors.Newf(errors.ErrInvalidConfig, "config root must be a mapping, got %s", kindName(root.Kind))
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i].Value, root.Content[i+1]
		switch key {
		case "timeout":
			var raw any
			if err := value.Decode(&raw); err != nil {
				return errors.Wrap(err, errors.ErrInvalidConfig, "decode timeout")
			}
			d, ok := toDuration(raw)
			if !ok {
				return errors.Newf(errors.ErrInvalidConfig, "invalid timeout %v", raw)
			}
			o.Timeout = d
		case "default":
			if err := o.decodeDefault(value); err != nil {
				return err
			}
		case "gateways":
			gateways, err := decodeGateways(value)
			if err != nil {
				return err
			}
			o.Gateways = gateways
		}
	}
	return nil
}

func (o *Options) decodeDefault(node *yaml.Node) error {
	var section struct {
		Strategy string   `yaml:"strategy"`
		Gateways []string `yaml:"gateways"`
	}
	if err := node.Decode(&section); err != nil {
		return errors.Wrap(err, errors.ErrInvalidConfig, "decode default section")
	}
	o.DefaultStrategy = section.Strategy
	o.DefaultGateways = section.Gateways
	return nil
}

func decodeGateways(node *yaml.Node) (*Gateways, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errors.Newf(errors.ErrInvalidConfig, "gateways must be a mapping, got %s", kindName(node.Kind))
	}

	gateways := NewGateways()
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		settings := map[string]any{}
		if err := node.Content[i+1].Decode(&settings); err != nil {
			return nil, errors.Wrapf(err, errors.ErrInvalidConfig, "decode gateway %q", name)
		}
		gateways.Add(name, NewConfig(settings))
	}
	return gateways, nil
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return fmt.Sprintf("kind(%d)", kind)
	}
}
