package domain

import "go.trai.ch/zerr"

// InputStyle selects how a rule formats the {INPUTS} substitution.
type InputStyle string

const (
	// InputStylePositional joins the input files with spaces.
	InputStylePositional InputStyle = "positional"
	// InputStyleSwitch repeats "<switch> <file>" for each input.
	InputStyleSwitch InputStyle = "switch"
)

// DefaultDash is the flag prefix used when a rule does not declare one.
const DefaultDash = "-"

// Rule holds the command template and formatting directives shared by the
// steps that declare the same rule name. The name is the merge key for
// parameter tiers: two steps sharing it intentionally share merge identity.
type Rule struct {
	Name                InternedString
	Command             string
	Dash                string
	InputStyle          InputStyle
	InputQuoted         bool
	InputSwitchName     string
	UnquotedParams      map[string]bool
	UnquotedPositionals bool
}

// Step is the atomic unit of work: exactly one output file, explicit
// predecessors, and an owned rule. All string fields are templates until the
// planner resolves them for a concrete profile.
type Step struct {
	Name                InternedString
	Output              string
	Requires            []InternedString
	Inputs              []string
	PositionalFilenames []string
	Parameters          *ParamMap
	Rule                Rule
}

// Profile is a named file-set and parameter variant of the workflow.
type Profile struct {
	Name           InternedString
	InputDirectory string
	InputFiles     []string
	Vars           *Context
	Parameters     map[string]*ParamMap
}

// General holds the process-wide variables and the lowest-precedence
// parameter tier, both keyed the same way profiles are.
type General struct {
	Vars       *Context
	Parameters map[string]*ParamMap
}

// Config is the fully typed configuration the core operates on, produced by
// the config adapter from the raw document tree.
type Config struct {
	General  General
	Profiles map[string]*Profile
	Groups   map[string][]string
	Graph    *Graph
}

// ResolveProfiles expands a list of profile or group names into an ordered
// profile list. Group entries expand in declared order; duplicates are kept
// in first-seen position only.
func (c *Config) ResolveProfiles(names []string) ([]*Profile, error) {
	var out []*Profile
	seen := make(map[string]bool)

	add := func(name string) error {
		if seen[name] {
			return nil
		}
		p, ok := c.Profiles[name]
		if !ok {
			return zerr.With(ErrUnknownProfile, "profile", name)
		}
		seen[name] = true
		out = append(out, p)
		return nil
	}

	for _, name := range names {
		if members, ok := c.Groups[name]; ok {
			for _, member := range members {
				if err := add(member); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := add(name); err != nil {
			return nil, err
		}
	}

	if len(out) == 0 {
		if len(c.Profiles) > 0 {
			return nil, ErrNoProfileSpecified
		}
		// Parameterized build: no profiles declared, run once anonymously.
		out = append(out, &Profile{Vars: NewContext()})
	}
	return out, nil
}
