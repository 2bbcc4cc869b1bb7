// Package domain contains the core domain models for the step dependency graph.
package domain

import (
	"iter"
	"sort"
	"strings"

	"go.trai.ch/zerr"
)

// Graph is the dependency graph of steps. Edges run from each dependency to
// its dependents; the graph is read-only once Validate succeeds.
type Graph struct {
	steps          map[InternedString]Step
	dependents     map[InternedString][]InternedString
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		steps:      make(map[InternedString]Step),
		dependents: make(map[InternedString][]InternedString),
	}
}

// AddStep adds a step to the graph.
// It returns an error if a step with the same identifier already exists.
func (g *Graph) AddStep(s *Step) error {
	if _, exists := g.steps[s.Name]; exists {
		return zerr.With(ErrStepAlreadyExists, "step", s.Name.String())
	}
	g.steps[s.Name] = *s
	return nil
}

// Get returns the step with the given identifier.
func (g *Graph) Get(name InternedString) (Step, bool) {
	s, ok := g.steps[name]
	return s, ok
}

// StepCount returns the number of steps in the graph.
func (g *Graph) StepCount() int {
	return len(g.steps)
}

// Validate checks that every requires entry names a declared step and that
// the requires relation is acyclic, via depth-first traversal with a
// recursion-stack check. On success it populates the topological execution
// order and the dependents index.
func (g *Graph) Validate() error {
	g.executionOrder = make([]InternedString, 0, len(g.steps))
	g.dependents = make(map[InternedString][]InternedString, len(g.steps))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		step := g.steps[u]
		for _, dep := range step.Requires {
			if _, exists := g.steps[dep]; !exists {
				return zerr.With(zerr.With(ErrUnknownStep,
					"requires", dep.String()),
					"step", u.String())
			}
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	// Iterate names sorted so the execution order of disconnected components
	// is deterministic across runs.
	names := make([]string, 0, len(g.steps))
	for name := range g.steps {
		names = append(names, name.String())
	}
	sort.Strings(names)

	for _, name := range names {
		n := NewInternedString(name)
		if visited[n] == 0 {
			if err := visit(n); err != nil {
				return err
			}
		}
	}

	for name, step := range g.steps {
		for _, dep := range step.Requires {
			g.dependents[dep] = append(g.dependents[dep], name)
		}
	}

	return nil
}

// buildCycleError constructs an error carrying the full cycle path.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	startIdx := 0
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}

	var sb strings.Builder
	for i := startIdx; i < len(path); i++ {
		sb.WriteString(path[i].String())
		sb.WriteString(" -> ")
	}
	sb.WriteString(dep.String())
	return zerr.With(ErrCycleDetected, "cycle", sb.String())
}

// Walk returns an iterator that yields steps in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Step] {
	return func(yield func(Step) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.steps[name]) {
				return
			}
		}
	}
}

// Dependents returns the steps that directly require the given step.
func (g *Graph) Dependents(name InternedString) []InternedString {
	return g.dependents[name]
}

// Ancestors returns the set containing the given step and every step it
// transitively requires. Used for partial builds that stop at one step.
func (g *Graph) Ancestors(name InternedString) (map[InternedString]bool, error) {
	if _, ok := g.steps[name]; !ok {
		return nil, zerr.With(ErrStepNotFound, "step", name.String())
	}

	result := make(map[InternedString]bool)
	queue := []InternedString{name}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if result[current] {
			continue
		}
		result[current] = true
		step := g.steps[current]
		queue = append(queue, step.Requires...)
	}
	return result, nil
}
