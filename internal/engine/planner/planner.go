// Package planner resolves the declared steps of a profile into an executable
// build plan: contexts, merged parameters, input/output paths, and assembled
// shell commands, in topological order.
package planner

import (
	"errors"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/zerr"
)

// Overrides carries the command-line-supplied layers: general variable
// overrides and the parameter tier sitting between general defaults and
// profile parameters.
type Overrides struct {
	// Vars overrides general context variables ("--vars KEY=value").
	Vars map[string]string
	// Params is the CLI parameter tier, rule name -> key -> value
	// ("--set rule.key=value").
	Params map[string]map[string]string
}

// Planner turns a validated configuration into per-profile build plans.
// Producing a plan mutates no state, so it doubles as the dry-run surface.
type Planner struct {
	cfg *domain.Config
}

// New creates a Planner for the given configuration.
func New(cfg *domain.Config) *Planner {
	return &Planner{cfg: cfg}
}

var (
	requiresToken = regexp.MustCompile(`^\{REQUIRES\[([0-9]+)\]\}$`)
	inputsIndex   = regexp.MustCompile(`\{INPUTS\[([0-9]+)\]\}`)
	bareVariable  = regexp.MustCompile(`^\{([A-Za-z_][A-Za-z0-9_]*)\}$`)
	multiSpace    = regexp.MustCompile(`  +`)
)

// inputFilesToken expands to the profile's directory-prefixed file list.
const inputFilesToken = "{INPUT_FILES}"

// Plan resolves every step for one profile. upTo, when non-empty, restricts
// the plan to that step and its transitive requires. Configuration errors
// (unresolved variables, forbidden placeholders, malformed templates) abort
// the plan; per-step resolution errors are recorded on the step and surface
// at execution time as step failures.
func (p *Planner) Plan(profile *domain.Profile, overrides Overrides, upTo string) (*domain.Plan, error) {
	var subset map[domain.InternedString]bool
	if upTo != "" {
		var err error
		subset, err = p.cfg.Graph.Ancestors(domain.NewInternedString(upTo))
		if err != nil {
			return nil, err
		}
	}

	globalCtx := p.buildGlobalContext(profile, overrides)
	cliParams := cliParameterTier(overrides.Params)

	plan := domain.NewPlan(profile.Name.String())
	resolvedOutputs := make(map[domain.InternedString]string)

	for step := range p.cfg.Graph.Walk() {
		if subset != nil && !subset[step.Name] {
			continue
		}
		rs, err := p.resolveStep(&step, profile, globalCtx, cliParams, resolvedOutputs)
		if err != nil {
			return nil, err
		}
		plan.Add(rs)
	}

	return plan, nil
}

// buildGlobalContext layers general variables, command-line overrides, and
// profile variables, then adds the synthetic profile_name/target_name entry
// and the directory-prefixed input file list.
func (p *Planner) buildGlobalContext(profile *domain.Profile, overrides Overrides) *domain.Context {
	ctx := domain.NewContext()

	if p.cfg.General.Vars != nil {
		for _, k := range p.cfg.General.Vars.Keys() {
			v, _ := p.cfg.General.Vars.Get(k)
			ctx.Set(k, v)
		}
	}

	keys := make([]string, 0, len(overrides.Vars))
	for k := range overrides.Vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ctx.Set(k, domain.StringValue(overrides.Vars[k]))
	}

	if profile.Vars != nil {
		for _, k := range profile.Vars.Keys() {
			v, _ := profile.Vars.Get(k)
			ctx.Set(k, v)
		}
	}

	name := profile.Name.String()
	ctx.Set("profile_name", domain.StringValue(name))
	ctx.Set("target_name", domain.StringValue(name))

	inputDir := profile.InputDirectory
	if inputDir == "" {
		if v, ok := ctx.Get("INPUT_DIRECTORY"); ok {
			inputDir = v.String()
		}
	}
	if inputDir != "" {
		ctx.Set("INPUT_DIRECTORY", domain.StringValue(inputDir))
	}

	if len(profile.InputFiles) > 0 {
		files := make([]string, len(profile.InputFiles))
		for i, f := range profile.InputFiles {
			if inputDir != "" {
				files[i] = filepath.Join(inputDir, f)
			} else {
				files[i] = f
			}
		}
		ctx.Set("INPUT_FILES", domain.ListValue(files...))
	}

	return ctx
}

func cliParameterTier(params map[string]map[string]string) map[string]*domain.ParamMap {
	tier := make(map[string]*domain.ParamMap, len(params))
	for rule, kv := range params {
		m := domain.NewParamMap()
		keys := make([]string, 0, len(kv))
		for k := range kv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, domain.StringValue(kv[k]))
		}
		tier[rule] = m
	}
	return tier
}

func (p *Planner) resolveStep(
	step *domain.Step,
	profile *domain.Profile,
	globalCtx *domain.Context,
	cliParams map[string]*domain.ParamMap,
	resolvedOutputs map[domain.InternedString]string,
) (*domain.ResolvedStep, error) {
	name := step.Name.String()
	rule := &step.Rule

	rs := &domain.ResolvedStep{
		Name:            step.Name,
		Profile:         profile.Name.String(),
		Requires:        step.Requires,
		CommandTemplate: rule.Command,
	}

	if !strings.Contains(rule.Command, "{OUTPUT}") {
		return nil, zerr.With(zerr.With(domain.ErrMissingOutputPlaceholder,
			"step", name),
			"rule", rule.Name.String())
	}

	// Merge the four tiers, lowest precedence first, then template the merged
	// values against the Global Context only.
	ruleName := rule.Name.String()
	merged := domain.MergeParameters(
		p.cfg.General.Parameters[ruleName],
		cliParams[ruleName],
		profile.Parameters[ruleName],
		step.Parameters,
	)
	templated, err := p.templateParameters(name, merged, globalCtx)
	if err != nil {
		return nil, err
	}
	rs.Parameters = templated

	if templated.Len() > 0 && !strings.Contains(rule.Command, "{PARAMETERS}") {
		return nil, zerr.With(zerr.With(domain.ErrMissingParametersPlaceholder,
			"step", name),
			"rule", ruleName)
	}
	if len(step.PositionalFilenames) > 0 && !strings.Contains(rule.Command, "{POSITIONAL_FILENAMES}") {
		return nil, zerr.With(domain.ErrMissingPositionalsPlaceholder, "step", name)
	}

	output, err := globalCtx.Resolve(name+".output", step.Output)
	if err != nil {
		return nil, err
	}
	rs.Output = output
	resolvedOutputs[step.Name] = output

	inputs, resErr := p.resolveInputs(step, globalCtx, resolvedOutputs)
	if resErr != nil {
		rs.Err = resErr
		return rs, nil
	}
	rs.Inputs = inputs

	inputsStr, resErr := formatInputs(rule, inputs)
	if resErr != nil {
		rs.Err = resErr
		return rs, nil
	}

	localCtx := globalCtx.Clone()
	localCtx.Set("OUTPUT", domain.StringValue(output))
	localCtx.Set("INPUTS", domain.ListValue(inputs...))

	positionals, err := resolvePositionals(name, step, localCtx)
	if err != nil {
		return nil, err
	}
	rs.PositionalFilenames = positionals
	rs.ParameterString = templated.Format(rule)

	command, assembleErr := assembleCommand(name, rule, rs, inputsStr, localCtx)
	if assembleErr != nil {
		// Leftover or malformed placeholders in the command template are
		// configuration mistakes; a bad {INPUTS[n]} index is a per-step
		// resolution failure.
		if errors.Is(assembleErr, domain.ErrIndexOutOfRange) {
			rs.Err = assembleErr
			return rs, nil
		}
		return nil, assembleErr
	}
	rs.Command = command

	return rs, nil
}

// templateParameters rejects late-bound placeholders in the merged values,
// then resolves each value against the Global Context.
func (p *Planner) templateParameters(step string, merged *domain.ParamMap, ctx *domain.Context) (*domain.ParamMap, error) {
	out := domain.NewParamMap()
	for _, key := range merged.Keys() {
		v, _ := merged.Get(key)
		switch v.Kind() {
		case domain.KindBool:
			out.Set(key, v)
		case domain.KindList:
			items := v.List()
			resolved := make([]string, len(items))
			for i, item := range items {
				if err := domain.CheckParameterTemplate(step, key, item); err != nil {
					return nil, err
				}
				r, err := ctx.Resolve(step+".parameters."+key, item)
				if err != nil {
					return nil, err
				}
				resolved[i] = r
			}
			out.Set(key, domain.ListValue(resolved...))
		default:
			if err := domain.CheckParameterTemplate(step, key, v.String()); err != nil {
				return nil, err
			}
			r, err := ctx.Resolve(step+".parameters."+key, v.String())
			if err != nil {
				return nil, err
			}
			out.Set(key, domain.StringValue(r))
		}
	}
	return out, nil
}

// resolveInputs expands the step's input templates in declared order:
// {REQUIRES[n]} substitutes the resolved output of the n-th requires entry,
// {INPUT_FILES} expands the profile file list, a bare reference to a
// list-valued variable expands element-wise, and anything else resolves as a
// literal path template.
func (p *Planner) resolveInputs(
	step *domain.Step,
	globalCtx *domain.Context,
	resolvedOutputs map[domain.InternedString]string,
) ([]string, error) {
	var inputs []string
	name := step.Name.String()

	for _, tmpl := range step.Inputs {
		if m := requiresToken.FindStringSubmatch(tmpl); m != nil {
			idx := atoi(m[1])
			if idx >= len(step.Requires) {
				return nil, zerr.With(zerr.With(zerr.With(domain.ErrIndexOutOfRange,
					"key", "REQUIRES"),
					"index", idx),
					"step", name)
			}
			inputs = append(inputs, resolvedOutputs[step.Requires[idx]])
			continue
		}

		if tmpl == inputFilesToken {
			if v, ok := globalCtx.Get("INPUT_FILES"); ok {
				inputs = append(inputs, v.List()...)
			}
			continue
		}

		if m := bareVariable.FindStringSubmatch(tmpl); m != nil {
			if v, ok := globalCtx.Get(m[1]); ok && v.Kind() == domain.KindList {
				inputs = append(inputs, v.List()...)
				continue
			}
		}

		resolved, err := globalCtx.Resolve(name+".inputs", tmpl)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, resolved)
	}

	return inputs, nil
}

// formatInputs renders the {INPUTS} substitution per the rule's input style.
func formatInputs(rule *domain.Rule, inputs []string) (string, error) {
	formatted := make([]string, len(inputs))
	for i, in := range inputs {
		if rule.InputQuoted {
			formatted[i] = domain.ShellQuote(in)
		} else {
			formatted[i] = in
		}
	}

	switch rule.InputStyle {
	case domain.InputStyleSwitch:
		if rule.InputSwitchName == "" {
			return "", zerr.With(domain.ErrMissingInputSwitch, "rule", rule.Name.String())
		}
		parts := make([]string, 0, len(formatted)*2)
		for _, f := range formatted {
			parts = append(parts, rule.InputSwitchName, f)
		}
		return strings.Join(parts, " "), nil
	default:
		return strings.Join(formatted, " "), nil
	}
}

// resolvePositionals resolves positional filename templates against the Local
// Context, so they may reference {OUTPUT} and {INPUTS[n]}.
func resolvePositionals(name string, step *domain.Step, localCtx *domain.Context) ([]string, error) {
	if len(step.PositionalFilenames) == 0 {
		return nil, nil
	}
	out := make([]string, len(step.PositionalFilenames))
	for i, tmpl := range step.PositionalFilenames {
		resolved, err := localCtx.Resolve(name+".positional_filenames", tmpl)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// assembleCommand performs the final substitution pass over the rule's
// command template, producing the literal shell string.
func assembleCommand(
	name string,
	rule *domain.Rule,
	rs *domain.ResolvedStep,
	inputsStr string,
	localCtx *domain.Context,
) (string, error) {
	// Indexed input references substitute the quoted n-th input before the
	// context pass, since INPUTS is rebound to the formatted string below.
	var indexErr error
	template := inputsIndex.ReplaceAllStringFunc(rule.Command, func(tok string) string {
		m := inputsIndex.FindStringSubmatch(tok)
		idx := atoi(m[1])
		if idx >= len(rs.Inputs) {
			if indexErr == nil {
				indexErr = zerr.With(zerr.With(zerr.With(domain.ErrIndexOutOfRange,
					"key", "INPUTS"),
					"index", idx),
					"step", name)
			}
			return tok
		}
		return domain.ShellQuote(rs.Inputs[idx])
	})
	if indexErr != nil {
		return "", indexErr
	}

	positionals := rs.PositionalFilenames
	if !rule.UnquotedPositionals {
		positionals = domain.ShellQuoteAll(positionals)
	}

	assembleCtx := localCtx.Clone()
	assembleCtx.Set("INPUTS", domain.StringValue(inputsStr))
	assembleCtx.Set("PARAMETERS", domain.StringValue(rs.ParameterString))
	assembleCtx.Set("POSITIONAL_FILENAMES", domain.StringValue(strings.Join(positionals, " ")))

	command, err := assembleCtx.ResolveCommand(name+".command", template)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(multiSpace.ReplaceAllString(command, " ")), nil
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
