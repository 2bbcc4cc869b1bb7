// Package scheduler executes a resolved plan: staleness checks, bounded
// parallel execution in dependency order, and failure propagation.
package scheduler

import (
	"context"
	"time"

	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options control one run of the scheduler.
type Options struct {
	// Parallelism is the maximum number of concurrently running steps.
	Parallelism int
	// Force bypasses the staleness check and runs every step.
	Force bool
}

// Scheduler runs the steps of a plan against the dependency graph.
type Scheduler struct {
	graph     *domain.Graph
	executor  ports.Executor
	hasher    ports.Hasher
	store     ports.RecordStore
	telemetry ports.Telemetry
	logger    ports.Logger
}

// New creates a Scheduler.
func New(
	graph *domain.Graph,
	executor ports.Executor,
	hasher ports.Hasher,
	store ports.RecordStore,
	telemetry ports.Telemetry,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		graph:     graph,
		executor:  executor,
		hasher:    hasher,
		store:     store,
		telemetry: telemetry,
		logger:    logger,
	}
}

// Run executes the plan and returns the per-step outcomes in plan order.
// Step failures are reported in the result, not as the returned error; the
// error covers context cancellation only.
func (s *Scheduler) Run(ctx context.Context, plan *domain.Plan, opts Options) (*domain.BuildResult, error) {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	state := s.newRunState(ctx, plan, opts)

	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			return state.buildResult(), state.ctx.Err()
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
			// Workers observe the cancellation through the executor; wait for
			// the in-flight ones instead of spinning on the closed Done channel.
			for state.active > 0 {
				state.handleResult(<-state.resultsCh)
			}
		}
	}

	return state.buildResult(), state.ctx.Err()
}

type result struct {
	step    domain.InternedString
	outcome domain.StepOutcome
}

type schedulerRunState struct {
	plan        *domain.Plan
	inDegree    map[domain.InternedString]int
	ready       []domain.InternedString
	active      int
	resultsCh   chan result
	outcomes    map[domain.InternedString]domain.StepOutcome
	ran         map[domain.InternedString]bool
	ctx         context.Context
	parallelism int
	force       bool
	s           *Scheduler
}

func (s *Scheduler) newRunState(ctx context.Context, plan *domain.Plan, opts Options) *schedulerRunState {
	inDegree := make(map[domain.InternedString]int, len(plan.Steps))
	for _, rs := range plan.Steps {
		degree := 0
		for _, req := range rs.Requires {
			// Requires outside the plan were satisfied by a previous run of a
			// wider plan; they gate nothing here.
			if plan.Contains(req) {
				degree++
			}
		}
		inDegree[rs.Name] = degree
	}

	var ready []domain.InternedString
	for _, rs := range plan.Steps {
		if inDegree[rs.Name] == 0 {
			ready = append(ready, rs.Name)
		}
	}

	return &schedulerRunState{
		plan:        plan,
		inDegree:    inDegree,
		ready:       ready,
		resultsCh:   make(chan result, opts.Parallelism),
		outcomes:    make(map[domain.InternedString]domain.StepOutcome, len(plan.Steps)),
		ran:         make(map[domain.InternedString]bool),
		ctx:         ctx,
		parallelism: opts.Parallelism,
		force:       opts.Force,
		s:           s,
	}
}

func (state *schedulerRunState) isDone() bool {
	return state.active == 0 && len(state.outcomes) == len(state.plan.Steps)
}

func (state *schedulerRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		name := state.ready[0]
		state.ready = state.ready[1:]

		if _, settled := state.outcomes[name]; settled {
			continue
		}

		rs, _ := state.plan.Get(name)
		depRan := false
		for _, req := range rs.Requires {
			if state.ran[req] {
				depRan = true
				break
			}
		}

		state.active++
		go func(rs *domain.ResolvedStep, depRan bool) {
			state.resultsCh <- result{step: rs.Name, outcome: state.runStep(state.ctx, rs, depRan)}
		}(rs, depRan)
	}
}

// runStep decides whether the step is stale and, if so, executes its command.
// It runs on a worker goroutine and touches no shared run state.
func (state *schedulerRunState) runStep(ctx context.Context, rs *domain.ResolvedStep, depRan bool) domain.StepOutcome {
	name := rs.Name.String()

	if rs.Err != nil {
		return domain.StepOutcome{
			Step:   name,
			Status: domain.StatusFailed,
			Err:    rs.Err,
		}
	}

	fingerprint, reason := state.staleness(rs, depRan)
	if reason == domain.ReasonFresh {
		_, vertex := state.s.telemetry.Record(ctx, name)
		vertex.Cached()
		vertex.Complete(nil)
		return domain.StepOutcome{
			Step:   name,
			Status: domain.StatusSkippedFresh,
			Reason: domain.ReasonFresh,
		}
	}

	ctx, vertex := state.s.telemetry.Record(ctx, name)
	err := state.s.executor.Execute(ctx, rs.Command, vertex.Stdout(), vertex.Stderr())
	vertex.Complete(err)
	if err != nil {
		return domain.StepOutcome{
			Step:   name,
			Status: domain.StatusFailed,
			Reason: reason,
			Err: zerr.With(zerr.Wrap(err, "step execution failed"),
				"step", name),
		}
	}

	state.persistRecord(rs, fingerprint)

	return domain.StepOutcome{
		Step:   name,
		Status: domain.StatusSucceeded,
		Reason: reason,
	}
}

// staleness returns the step's fingerprint and the reason it must (or need
// not) run. Store read failures degrade to a rebuild, never abort the run.
func (state *schedulerRunState) staleness(rs *domain.ResolvedStep, depRan bool) (string, domain.StaleReason) {
	fingerprint, fpErr := state.s.hasher.Fingerprint(rs)

	if state.force {
		return fingerprint, domain.ReasonForced
	}
	if depRan {
		return fingerprint, domain.ReasonDependencyRan
	}
	if fpErr != nil {
		return fingerprint, domain.ReasonFingerprint
	}

	record, err := state.s.store.Get(rs.Name.String(), rs.Profile)
	if err != nil {
		state.s.logger.Warn("state store unreadable, rebuilding: " + err.Error())
		return fingerprint, domain.ReasonStoreError
	}
	if record == nil {
		return fingerprint, domain.ReasonFirstBuild
	}
	if record.Fingerprint != fingerprint {
		return fingerprint, domain.ReasonFingerprint
	}

	signature, err := state.s.hasher.OutputSignature(rs.Output)
	if err != nil {
		return fingerprint, domain.ReasonMissingOutput
	}
	if signature != record.OutputSignature {
		return fingerprint, domain.ReasonOutputChanged
	}

	return fingerprint, domain.ReasonFresh
}

// persistRecord writes the success record. A write failure only costs the
// cache entry, so it is logged and swallowed.
func (state *schedulerRunState) persistRecord(rs *domain.ResolvedStep, fingerprint string) {
	signature, err := state.s.hasher.OutputSignature(rs.Output)
	if err != nil {
		state.s.logger.Warn("output signature unavailable for " + rs.Name.String() + ": " + err.Error())
		return
	}

	record := domain.Record{
		Step:            rs.Name.String(),
		Profile:         rs.Profile,
		Fingerprint:     fingerprint,
		OutputSignature: signature,
		Timestamp:       time.Now(),
	}
	if err := state.s.store.Put(record); err != nil {
		state.s.logger.Warn("state store write failed for " + rs.Name.String() + ": " + err.Error())
	}
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--
	state.outcomes[res.step] = res.outcome

	switch res.outcome.Status {
	case domain.StatusFailed:
		state.skipDependents(res.step)
	case domain.StatusSucceeded:
		state.ran[res.step] = true
		state.release(res.step)
	default:
		state.release(res.step)
	}
}

// release unblocks the direct dependents of a settled step.
func (state *schedulerRunState) release(step domain.InternedString) {
	for _, dep := range state.s.graph.Dependents(step) {
		if !state.plan.Contains(dep) {
			continue
		}
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}

// skipDependents marks every transitive dependent of a failed step as
// SkippedFailed so the rest of the graph keeps building.
func (state *schedulerRunState) skipDependents(step domain.InternedString) {
	queue := []domain.InternedString{step}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range state.s.graph.Dependents(current) {
			if !state.plan.Contains(dep) {
				continue
			}
			if _, settled := state.outcomes[dep]; settled {
				continue
			}
			state.outcomes[dep] = domain.StepOutcome{
				Step:   dep.String(),
				Status: domain.StatusSkippedFailed,
				Err: zerr.With(zerr.With(domain.ErrStepExecutionFailed,
					"failed", step.String()),
					"step", dep.String()),
			}
			queue = append(queue, dep)
		}
	}
}

// buildResult assembles outcomes in plan (topological) order. Steps the run
// never reached, e.g. after cancellation, report as Pending.
func (state *schedulerRunState) buildResult() *domain.BuildResult {
	result := &domain.BuildResult{Profile: state.plan.Profile}
	for _, rs := range state.plan.Steps {
		outcome, ok := state.outcomes[rs.Name]
		if !ok {
			outcome = domain.StepOutcome{
				Step:   rs.Name.String(),
				Status: domain.StatusPending,
			}
		}
		result.Steps = append(result.Steps, outcome)
	}
	return result
}
