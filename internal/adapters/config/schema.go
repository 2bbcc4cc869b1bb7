package config

import (
	"gopkg.in/yaml.v3"

	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/zerr"
)

// Weftfile represents the structure of the weft.yaml configuration file.
type Weftfile struct {
	Version  string                 `yaml:"version"`
	General  GeneralDTO             `yaml:"general"`
	Profiles map[string]*ProfileDTO `yaml:"profiles"`
	Groups   map[string][]string    `yaml:"groups"`
	Steps    map[string]*StepDTO    `yaml:"steps"`
}

// GeneralDTO holds the process-wide variables and the default parameter tier.
type GeneralDTO struct {
	Vars       *VarsDTO              `yaml:"vars"`
	Parameters map[string]*ParamsDTO `yaml:"parameters"`
}

// ProfileDTO represents a profile definition in the configuration.
type ProfileDTO struct {
	InputDirectory string                `yaml:"input_directory"`
	InputFiles     []string              `yaml:"input_files"`
	Vars           *VarsDTO              `yaml:"vars"`
	Parameters     map[string]*ParamsDTO `yaml:"parameters"`
}

// StepDTO represents a step definition in the configuration.
type StepDTO struct {
	Output              string     `yaml:"output"`
	Requires            []string   `yaml:"requires"`
	Inputs              []string   `yaml:"inputs"`
	PositionalFilenames []string   `yaml:"positional_filenames"`
	Parameters          *ParamsDTO `yaml:"parameters"`
	Rule                RuleDTO    `yaml:"rule"`
}

// RuleDTO represents a rule definition in the configuration. InputQuoted is a
// pointer so that an absent key can default to true.
type RuleDTO struct {
	Name                string   `yaml:"name"`
	Command             string   `yaml:"command"`
	Dash                *string  `yaml:"dash"`
	InputStyle          string   `yaml:"input_style"`
	InputQuoted         *bool    `yaml:"input_quoted"`
	InputSwitchName     string   `yaml:"input_switch_name"`
	UnquotedParams      []string `yaml:"unquoted_params"`
	UnquotedPositionals bool     `yaml:"unquoted_positionals"`
}

// VarsDTO decodes a YAML mapping into an ordered domain Context. Plain
// map[string]string decoding would lose declaration order, which the
// formatted output depends on.
type VarsDTO struct {
	Context *domain.Context
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *VarsDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return zerr.With(zerr.New("vars must be a mapping"), "line", node.Line)
	}
	v.Context = domain.NewContext()
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value, err := decodeValue(node.Content[i+1])
		if err != nil {
			return err
		}
		v.Context.Set(key, value)
	}
	return nil
}

// ParamsDTO decodes a YAML mapping into an ordered parameter map.
type ParamsDTO struct {
	Params *domain.ParamMap
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *ParamsDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return zerr.With(zerr.New("parameters must be a mapping"), "line", node.Line)
	}
	p.Params = domain.NewParamMap()
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value, err := decodeValue(node.Content[i+1])
		if err != nil {
			return err
		}
		p.Params.Set(key, value)
	}
	return nil
}

// decodeValue maps a YAML node onto the tagged Value variant: booleans keep
// their kind, sequences become lists, every other scalar stays a string.
func decodeValue(node *yaml.Node) (domain.Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!bool" {
			var b bool
			if err := node.Decode(&b); err != nil {
				return domain.Value{}, zerr.With(zerr.Wrap(err, "invalid boolean"), "line", node.Line)
			}
			return domain.BoolValue(b), nil
		}
		return domain.StringValue(node.Value), nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return domain.Value{}, zerr.With(zerr.New("list values must be scalars"), "line", item.Line)
			}
			items = append(items, item.Value)
		}
		return domain.ListValue(items...), nil
	default:
		return domain.Value{}, zerr.With(zerr.New("unsupported value type"), "line", node.Line)
	}
}
