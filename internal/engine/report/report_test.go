package report

import (
	"strings"
	"testing"

	"go.trai.ch/weft/internal/core/domain"
)

func examplePlan() *domain.Plan {
	plan := domain.NewPlan("USWest")
	plan.Add(&domain.ResolvedStep{
		Name:    domain.NewInternedString("VRTFile"),
		Output:  "build/USWest.vrt",
		Inputs:  []string{"dem/west/n38.hgt", "dem/west/n39.hgt"},
		Command: `gdalbuildvrt "build/USWest.vrt" "dem/west/n38.hgt" "dem/west/n39.hgt"`,
	})
	plan.Add(&domain.ResolvedStep{
		Name:            domain.NewInternedString("DEMFile"),
		Requires:        []domain.InternedString{domain.NewInternedString("VRTFile")},
		Output:          "build/USWest.tif",
		Inputs:          []string{"build/USWest.vrt"},
		ParameterString: "-z 2",
		Command:         `gdaldem hillshade -z 2 "build/USWest.vrt" "build/USWest.tif"`,
	})
	return plan
}

func TestMermaid(t *testing.T) {
	got := Mermaid(examplePlan())

	if !strings.Contains(got, "graph TD") {
		t.Errorf("expected mermaid header, got:\n%s", got)
	}
	if !strings.Contains(got, "VRTFile --> DEMFile") {
		t.Errorf("expected dependency edge, got:\n%s", got)
	}
}

func TestMermaid_IsolatedStep(t *testing.T) {
	plan := domain.NewPlan("")
	plan.Add(&domain.ResolvedStep{Name: domain.NewInternedString("Lonely")})

	got := Mermaid(plan)
	if !strings.Contains(got, "Lonely") {
		t.Errorf("expected isolated node, got:\n%s", got)
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(examplePlan())

	for _, want := range []string{
		"# Build plan: USWest",
		"### VRTFile",
		"### DEMFile",
		"- Output: `build/USWest.tif`",
		"- Requires: VRTFile",
		"- Parameters: `-z 2`",
		"gdaldem hillshade -z 2",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in markdown, got:\n%s", want, got)
		}
	}
}

func TestMarkdown_ResolutionError(t *testing.T) {
	plan := domain.NewPlan("")
	plan.Add(&domain.ResolvedStep{
		Name: domain.NewInternedString("Broken"),
		Err:  domain.ErrMissingInputSwitch,
	})

	got := Markdown(plan)
	if !strings.Contains(got, "Resolution failed") {
		t.Errorf("expected resolution failure note, got:\n%s", got)
	}
}
