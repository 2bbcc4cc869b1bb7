package planner

import (
	"errors"
	"strings"
	"testing"

	"go.trai.ch/weft/internal/core/domain"
)

func mustGraph(t *testing.T, steps ...*domain.Step) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	for _, s := range steps {
		if err := g.AddStep(s); err != nil {
			t.Fatalf("AddStep: %v", err)
		}
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return g
}

func rule(name, command string) domain.Rule {
	return domain.Rule{
		Name:        domain.NewInternedString(name),
		Command:     command,
		Dash:        domain.DefaultDash,
		InputStyle:  domain.InputStylePositional,
		InputQuoted: true,
	}
}

func params(pairs ...any) *domain.ParamMap {
	m := domain.NewParamMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		key := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case bool:
			m.Set(key, domain.BoolValue(v))
		case []string:
			m.Set(key, domain.ListValue(v...))
		default:
			m.Set(key, domain.StringValue(v.(string)))
		}
	}
	return m
}

// exampleConfig mirrors the canonical VRTFile/DEMFile hillshade workflow.
func exampleConfig(t *testing.T) *domain.Config {
	t.Helper()

	generalVars := domain.NewContext()
	generalVars.Set("BUILD_DIR", domain.StringValue("build"))

	vrt := &domain.Step{
		Name:   domain.NewInternedString("VRTFile"),
		Output: "{BUILD_DIR}/{profile_name}.vrt",
		Inputs: []string{"{INPUT_FILES}"},
		Rule:   rule("build_vrt", "gdalbuildvrt {PARAMETERS} {OUTPUT} {INPUTS}"),
	}
	dem := &domain.Step{
		Name:     domain.NewInternedString("DEMFile"),
		Output:   "{BUILD_DIR}/{profile_name}.tif",
		Requires: []domain.InternedString{domain.NewInternedString("VRTFile")},
		Inputs:   []string{"{REQUIRES[0]}"},
		Rule:     rule("create_hillshade", "gdaldem hillshade {PARAMETERS} {INPUTS} {OUTPUT}"),
	}

	profileVars := domain.NewContext()
	profileVars.Set("REGION", domain.StringValue("west"))

	return &domain.Config{
		General: domain.General{
			Vars: generalVars,
			Parameters: map[string]*domain.ParamMap{
				"create_hillshade": params("z", "1"),
			},
		},
		Profiles: map[string]*domain.Profile{
			"USWest": {
				Name:           domain.NewInternedString("USWest"),
				InputDirectory: "dem/west",
				InputFiles:     []string{"n38.hgt", "n39.hgt"},
				Vars:           profileVars,
				Parameters: map[string]*domain.ParamMap{
					"create_hillshade": params("z", "2"),
				},
			},
		},
		Graph: mustGraph(t, vrt, dem),
	}
}

func planExample(t *testing.T, overrides Overrides, upTo string) *domain.Plan {
	t.Helper()
	cfg := exampleConfig(t)
	plan, err := New(cfg).Plan(cfg.Profiles["USWest"], overrides, upTo)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return plan
}

func step(t *testing.T, plan *domain.Plan, name string) *domain.ResolvedStep {
	t.Helper()
	rs, ok := plan.Get(domain.NewInternedString(name))
	if !ok {
		t.Fatalf("step %s missing from plan", name)
	}
	if rs.Err != nil {
		t.Fatalf("step %s: unexpected resolution error: %v", name, rs.Err)
	}
	return rs
}

func TestPlan_InputFileExpansion(t *testing.T) {
	plan := planExample(t, Overrides{}, "")

	vrt := step(t, plan, "VRTFile")
	if vrt.Output != "build/USWest.vrt" {
		t.Errorf("output = %q", vrt.Output)
	}
	want := []string{"dem/west/n38.hgt", "dem/west/n39.hgt"}
	if len(vrt.Inputs) != 2 || vrt.Inputs[0] != want[0] || vrt.Inputs[1] != want[1] {
		t.Errorf("inputs = %v, want %v", vrt.Inputs, want)
	}
}

func TestPlan_RequiresTokenResolvesToUpstreamOutput(t *testing.T) {
	plan := planExample(t, Overrides{}, "")

	dem := step(t, plan, "DEMFile")
	if len(dem.Inputs) != 1 || dem.Inputs[0] != "build/USWest.vrt" {
		t.Errorf("inputs = %v, want [build/USWest.vrt]", dem.Inputs)
	}
}

func TestPlan_ProfileParameterBeatsGeneral(t *testing.T) {
	plan := planExample(t, Overrides{}, "")

	dem := step(t, plan, "DEMFile")
	if dem.ParameterString != "-z 2" {
		t.Errorf("parameters = %q, want -z 2", dem.ParameterString)
	}
}

func TestPlan_CLITierSitsBetweenGeneralAndProfile(t *testing.T) {
	// Profile still wins over a CLI override for the same key.
	plan := planExample(t, Overrides{
		Params: map[string]map[string]string{"create_hillshade": {"z": "9"}},
	}, "")
	if got := step(t, plan, "DEMFile").ParameterString; got != "-z 2" {
		t.Errorf("parameters = %q, want -z 2 (profile beats cli)", got)
	}

	// Without a profile value the CLI override beats the general default.
	cfg := exampleConfig(t)
	delete(cfg.Profiles["USWest"].Parameters, "create_hillshade")
	plan2, err := New(cfg).Plan(cfg.Profiles["USWest"], Overrides{
		Params: map[string]map[string]string{"create_hillshade": {"z": "9"}},
	}, "")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := step(t, plan2, "DEMFile").ParameterString; got != "-z 9" {
		t.Errorf("parameters = %q, want -z 9 (cli beats general)", got)
	}
}

func TestPlan_VarsOverrideSitsBetweenGeneralAndProfile(t *testing.T) {
	plan := planExample(t, Overrides{Vars: map[string]string{"BUILD_DIR": "out"}}, "")

	if got := step(t, plan, "VRTFile").Output; got != "out/USWest.vrt" {
		t.Errorf("output = %q, want out/USWest.vrt", got)
	}
}

func TestPlan_CommandAssembly(t *testing.T) {
	plan := planExample(t, Overrides{}, "")

	dem := step(t, plan, "DEMFile")
	want := `gdaldem hillshade -z 2 build/USWest.vrt build/USWest.tif`
	if dem.Command != want {
		t.Errorf("command = %q, want %q", dem.Command, want)
	}

	vrt := step(t, plan, "VRTFile")
	// build_vrt has no parameters: the empty {PARAMETERS} slot collapses.
	wantVrt := `gdalbuildvrt build/USWest.vrt dem/west/n38.hgt dem/west/n39.hgt`
	if vrt.Command != wantVrt {
		t.Errorf("command = %q, want %q", vrt.Command, wantVrt)
	}
}

func TestPlan_FormattingExample(t *testing.T) {
	s := &domain.Step{
		Name:   domain.NewInternedString("Render"),
		Output: "out.tif",
		Parameters: params(
			"compute_edges", true,
			"co", []string{"COMPRESS=JPEG", "JPEG_QUALITY=85"},
			"z", "2",
		),
		Rule: rule("render", "render {PARAMETERS} {OUTPUT}"),
	}
	cfg := &domain.Config{Graph: mustGraph(t, s)}

	plan, err := New(cfg).Plan(&domain.Profile{Vars: domain.NewContext()}, Overrides{}, "")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	want := `-compute_edges -co "COMPRESS=JPEG" -co "JPEG_QUALITY=85" -z 2`
	if got := step(t, plan, "Render").ParameterString; got != want {
		t.Errorf("parameters = %q, want %q", got, want)
	}
}

func TestPlan_UpToRestrictsToAncestors(t *testing.T) {
	plan := planExample(t, Overrides{}, "VRTFile")

	if plan.Contains(domain.NewInternedString("DEMFile")) {
		t.Error("DEMFile should be excluded when building up to VRTFile")
	}
	if !plan.Contains(domain.NewInternedString("VRTFile")) {
		t.Error("VRTFile missing")
	}
}

func TestPlan_UpToUnknownStep(t *testing.T) {
	cfg := exampleConfig(t)
	_, err := New(cfg).Plan(cfg.Profiles["USWest"], Overrides{}, "Ghost")
	if !errors.Is(err, domain.ErrStepNotFound) {
		t.Errorf("err = %v, want ErrStepNotFound", err)
	}
}

func TestPlan_MissingOutputPlaceholderIsFatal(t *testing.T) {
	s := &domain.Step{
		Name:   domain.NewInternedString("Bad"),
		Output: "out.tif",
		Rule:   rule("bad", "command-without-output-token"),
	}
	cfg := &domain.Config{Graph: mustGraph(t, s)}

	_, err := New(cfg).Plan(&domain.Profile{Vars: domain.NewContext()}, Overrides{}, "")
	if !errors.Is(err, domain.ErrMissingOutputPlaceholder) {
		t.Errorf("err = %v, want ErrMissingOutputPlaceholder", err)
	}
}

func TestPlan_ParametersWithoutPlaceholderIsFatal(t *testing.T) {
	s := &domain.Step{
		Name:       domain.NewInternedString("Bad"),
		Output:     "out.tif",
		Parameters: params("z", "2"),
		Rule:       rule("bad", "cmd {OUTPUT}"),
	}
	cfg := &domain.Config{Graph: mustGraph(t, s)}

	_, err := New(cfg).Plan(&domain.Profile{Vars: domain.NewContext()}, Overrides{}, "")
	if !errors.Is(err, domain.ErrMissingParametersPlaceholder) {
		t.Errorf("err = %v, want ErrMissingParametersPlaceholder", err)
	}
}

func TestPlan_ForbiddenPlaceholderInParameters(t *testing.T) {
	s := &domain.Step{
		Name:       domain.NewInternedString("Bad"),
		Output:     "out.tif",
		Parameters: params("target", "{OUTPUT}"),
		Rule:       rule("bad", "cmd {PARAMETERS} {OUTPUT}"),
	}
	cfg := &domain.Config{Graph: mustGraph(t, s)}

	_, err := New(cfg).Plan(&domain.Profile{Vars: domain.NewContext()}, Overrides{}, "")
	if !errors.Is(err, domain.ErrForbiddenPlaceholder) {
		t.Errorf("err = %v, want ErrForbiddenPlaceholder", err)
	}
}

func TestPlan_UnresolvedVariableIsFatal(t *testing.T) {
	s := &domain.Step{
		Name:   domain.NewInternedString("Bad"),
		Output: "{NOT_DEFINED}/out.tif",
		Rule:   rule("bad", "cmd {OUTPUT}"),
	}
	cfg := &domain.Config{Graph: mustGraph(t, s)}

	_, err := New(cfg).Plan(&domain.Profile{Vars: domain.NewContext()}, Overrides{}, "")
	if !errors.Is(err, domain.ErrUnresolvedVariable) {
		t.Errorf("err = %v, want ErrUnresolvedVariable", err)
	}
}

func TestPlan_RequiresIndexOutOfRangeIsPerStep(t *testing.T) {
	a := &domain.Step{
		Name:   domain.NewInternedString("A"),
		Output: "a.out",
		Rule:   rule("r", "cmd {OUTPUT}"),
	}
	b := &domain.Step{
		Name:     domain.NewInternedString("B"),
		Output:   "b.out",
		Requires: []domain.InternedString{domain.NewInternedString("A")},
		Inputs:   []string{"{REQUIRES[3]}"},
		Rule:     rule("r", "cmd {INPUTS} {OUTPUT}"),
	}
	cfg := &domain.Config{Graph: mustGraph(t, a, b)}

	plan, err := New(cfg).Plan(&domain.Profile{Vars: domain.NewContext()}, Overrides{}, "")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	rs, _ := plan.Get(domain.NewInternedString("B"))
	if !errors.Is(rs.Err, domain.ErrIndexOutOfRange) {
		t.Errorf("B.Err = %v, want ErrIndexOutOfRange", rs.Err)
	}
	if a, _ := plan.Get(domain.NewInternedString("A")); a.Err != nil {
		t.Errorf("A should resolve cleanly, got %v", a.Err)
	}
}

func TestPlan_SwitchInputStyle(t *testing.T) {
	s := &domain.Step{
		Name:   domain.NewInternedString("Tiles"),
		Output: "tiles.out",
		Inputs: []string{"a.tif", "b 2.tif"},
		Rule: domain.Rule{
			Name:            domain.NewInternedString("tiler"),
			Command:         "tile {INPUTS} {OUTPUT}",
			Dash:            domain.DefaultDash,
			InputStyle:      domain.InputStyleSwitch,
			InputQuoted:     true,
			InputSwitchName: "-i",
		},
	}
	cfg := &domain.Config{Graph: mustGraph(t, s)}

	plan, err := New(cfg).Plan(&domain.Profile{Vars: domain.NewContext()}, Overrides{}, "")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	want := `tile -i a.tif -i "b 2.tif" tiles.out`
	if got := step(t, plan, "Tiles").Command; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestPlan_IndexedInputInCommand(t *testing.T) {
	s := &domain.Step{
		Name:   domain.NewInternedString("Merge"),
		Output: "merged.out",
		Inputs: []string{"first.tif", "second part.tif"},
		Rule:   rule("merge", "merge {INPUTS[1]} {INPUTS[0]} {OUTPUT}"),
	}
	cfg := &domain.Config{Graph: mustGraph(t, s)}

	plan, err := New(cfg).Plan(&domain.Profile{Vars: domain.NewContext()}, Overrides{}, "")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	want := `merge "second part.tif" first.tif merged.out`
	if got := step(t, plan, "Merge").Command; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestPlan_PositionalFilenamesUseLocalContext(t *testing.T) {
	s := &domain.Step{
		Name:                domain.NewInternedString("Report"),
		Output:              "report.out",
		PositionalFilenames: []string{"{OUTPUT}.log"},
		Rule:                rule("report", "report {POSITIONAL_FILENAMES} {OUTPUT}"),
	}
	cfg := &domain.Config{Graph: mustGraph(t, s)}

	plan, err := New(cfg).Plan(&domain.Profile{Vars: domain.NewContext()}, Overrides{}, "")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	got := step(t, plan, "Report").Command
	if !strings.Contains(got, "report.out.log") {
		t.Errorf("command = %q, want positional report.out.log", got)
	}
}

func TestPlan_ShellBracesSurviveAssembly(t *testing.T) {
	s := &domain.Step{
		Name:   domain.NewInternedString("Awk"),
		Output: "stats.out",
		Inputs: []string{"data.csv"},
		Rule:   rule("awkstats", `awk '{print $1}' {INPUTS} > {OUTPUT}`),
	}
	cfg := &domain.Config{Graph: mustGraph(t, s)}

	plan, err := New(cfg).Plan(&domain.Profile{Vars: domain.NewContext()}, Overrides{}, "")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if got := step(t, plan, "Awk").Command; !strings.Contains(got, "{print $1}") {
		t.Errorf("awk braces must survive: %q", got)
	}
}
