package domain

import (
	"errors"
	"strings"
	"testing"
)

func graphStep(name string, requires ...string) *Step {
	s := &Step{
		Name:   NewInternedString(name),
		Output: name + ".out",
		Rule:   Rule{Name: NewInternedString("r"), Command: "cmd {OUTPUT}", Dash: DefaultDash},
	}
	for _, r := range requires {
		s.Requires = append(s.Requires, NewInternedString(r))
	}
	return s
}

func validGraph(t *testing.T, steps ...*Step) *Graph {
	t.Helper()
	g := NewGraph()
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

func TestGraphDuplicateStep(t *testing.T) {
	g := NewGraph()
	if err := g.AddStep(graphStep("A")); err != nil {
		t.Fatalf("AddStep: %v", err)
	}
	if err := g.AddStep(graphStep("A")); !errors.Is(err, ErrStepAlreadyExists) {
		t.Errorf("err = %v, want ErrStepAlreadyExists", err)
	}
}

func TestGraphValidateUnknownRequires(t *testing.T) {
	g := NewGraph()
	if err := g.AddStep(graphStep("A", "Ghost")); err != nil {
		t.Fatalf("AddStep: %v", err)
	}
	if err := g.Validate(); !errors.Is(err, ErrUnknownStep) {
		t.Errorf("err = %v, want ErrUnknownStep", err)
	}
}

func TestGraphValidateCycleNamesPath(t *testing.T) {
	g := NewGraph()
	for _, s := range []*Step{graphStep("A", "B"), graphStep("B", "A")} {
		if err := g.AddStep(s); err != nil {
			t.Fatalf("AddStep: %v", err)
		}
	}

	err := g.Validate()
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("err = %v, want ErrCycleDetected", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "A -> B -> A") && !strings.Contains(msg, "B -> A -> B") {
		t.Errorf("cycle path missing from error: %v", err)
	}
}

func TestGraphWalkIsTopological(t *testing.T) {
	g := validGraph(t,
		graphStep("D", "B", "C"),
		graphStep("B", "A"),
		graphStep("C", "A"),
		graphStep("A"),
	)

	pos := make(map[string]int)
	i := 0
	for s := range g.Walk() {
		pos[s.Name.String()] = i
		i++
	}
	if i != 4 {
		t.Fatalf("walked %d steps", i)
	}
	for _, edge := range [][2]string{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"}} {
		if pos[edge[0]] > pos[edge[1]] {
			t.Errorf("%s must come before %s: %v", edge[0], edge[1], pos)
		}
	}
}

func TestGraphDependents(t *testing.T) {
	g := validGraph(t, graphStep("A"), graphStep("B", "A"), graphStep("C", "A"))

	deps := g.Dependents(NewInternedString("A"))
	names := make(map[string]bool)
	for _, d := range deps {
		names[d.String()] = true
	}
	if len(deps) != 2 || !names["B"] || !names["C"] {
		t.Errorf("dependents = %v", deps)
	}
	if got := g.Dependents(NewInternedString("C")); len(got) != 0 {
		t.Errorf("leaf dependents = %v", got)
	}
}

func TestGraphAncestors(t *testing.T) {
	g := validGraph(t, graphStep("A"), graphStep("B", "A"), graphStep("C", "B"), graphStep("X"))

	anc, err := g.Ancestors(NewInternedString("C"))
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	for _, want := range []string{"A", "B", "C"} {
		if !anc[NewInternedString(want)] {
			t.Errorf("%s missing from ancestors", want)
		}
	}
	if anc[NewInternedString("X")] {
		t.Error("unrelated step included")
	}

	if _, err := g.Ancestors(NewInternedString("Ghost")); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("err = %v, want ErrStepNotFound", err)
	}
}
