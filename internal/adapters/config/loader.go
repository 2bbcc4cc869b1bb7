// Package config provides the configuration loader for weft.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// DefaultFilename is the configuration file looked up in the working
// directory when no --config override is given.
const DefaultFilename = "weft.yaml"

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Filename string
	logger   ports.Logger
}

// NewLoader creates a Loader reading DefaultFilename.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Filename: DefaultFilename, logger: logger}
}

// Load reads and validates the configuration from the given working
// directory, returning the fully typed config with a validated graph.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	path := l.Filename
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}

	var file Weftfile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse config file"), "path", path)
	}

	if file.Version != "" && file.Version != "1" {
		l.logger.Warn("unknown config version " + file.Version + ", proceeding as version 1")
	}

	return buildConfig(&file)
}

func buildConfig(file *Weftfile) (*domain.Config, error) {
	cfg := &domain.Config{
		General: domain.General{
			Vars:       contextOf(file.General.Vars),
			Parameters: paramTiers(file.General.Parameters),
		},
		Profiles: make(map[string]*domain.Profile, len(file.Profiles)),
		Groups:   file.Groups,
		Graph:    domain.NewGraph(),
	}

	for name, dto := range file.Profiles {
		cfg.Profiles[name] = &domain.Profile{
			Name:           domain.NewInternedString(name),
			InputDirectory: dto.InputDirectory,
			InputFiles:     dto.InputFiles,
			Vars:           contextOf(dto.Vars),
			Parameters:     paramTiers(dto.Parameters),
		}
	}

	for name, members := range file.Groups {
		if _, clash := file.Profiles[name]; clash {
			return nil, zerr.With(zerr.New("group name collides with profile"), "name", name)
		}
		for _, member := range members {
			if _, ok := file.Profiles[member]; !ok {
				return nil, zerr.With(zerr.With(domain.ErrUnknownProfile,
					"profile", member),
					"group", name)
			}
		}
	}

	for name, dto := range file.Steps {
		step, err := buildStep(name, dto)
		if err != nil {
			return nil, err
		}
		if err := cfg.Graph.AddStep(step); err != nil {
			return nil, err
		}
	}

	if err := cfg.Graph.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func buildStep(name string, dto *StepDTO) (*domain.Step, error) {
	if dto.Output == "" {
		return nil, missingField(name, "output")
	}
	if dto.Rule.Name == "" {
		return nil, missingField(name, "rule.name")
	}
	if dto.Rule.Command == "" {
		return nil, missingField(name, "rule.command")
	}

	rule, err := buildRule(name, &dto.Rule)
	if err != nil {
		return nil, err
	}

	params := domain.NewParamMap()
	if dto.Parameters != nil {
		params = dto.Parameters.Params
	}

	return &domain.Step{
		Name:                domain.NewInternedString(name),
		Output:              dto.Output,
		Requires:            domain.NewInternedStrings(dto.Requires),
		Inputs:              dto.Inputs,
		PositionalFilenames: dto.PositionalFilenames,
		Parameters:          params,
		Rule:                *rule,
	}, nil
}

func buildRule(step string, dto *RuleDTO) (*domain.Rule, error) {
	dash := domain.DefaultDash
	if dto.Dash != nil {
		dash = *dto.Dash
	}

	style := domain.InputStylePositional
	switch dto.InputStyle {
	case "", string(domain.InputStylePositional):
	case string(domain.InputStyleSwitch):
		style = domain.InputStyleSwitch
		if dto.InputSwitchName == "" {
			return nil, zerr.With(domain.ErrMissingInputSwitch, "step", step)
		}
	default:
		return nil, zerr.With(zerr.With(zerr.New("unknown input_style"),
			"input_style", dto.InputStyle),
			"step", step)
	}

	quoted := true
	if dto.InputQuoted != nil {
		quoted = *dto.InputQuoted
	}

	unquoted := make(map[string]bool, len(dto.UnquotedParams))
	for _, key := range dto.UnquotedParams {
		unquoted[key] = true
	}

	return &domain.Rule{
		Name:                domain.NewInternedString(dto.Name),
		Command:             dto.Command,
		Dash:                dash,
		InputStyle:          style,
		InputQuoted:         quoted,
		InputSwitchName:     dto.InputSwitchName,
		UnquotedParams:      unquoted,
		UnquotedPositionals: dto.UnquotedPositionals,
	}, nil
}

func contextOf(dto *VarsDTO) *domain.Context {
	if dto == nil || dto.Context == nil {
		return domain.NewContext()
	}
	return dto.Context
}

func paramTiers(dtos map[string]*ParamsDTO) map[string]*domain.ParamMap {
	tiers := make(map[string]*domain.ParamMap, len(dtos))
	for rule, dto := range dtos {
		if dto != nil && dto.Params != nil {
			tiers[rule] = dto.Params
		}
	}
	return tiers
}

func missingField(step, field string) error {
	return zerr.With(zerr.With(domain.ErrMissingField,
		"field", field),
		"step", step)
}
