package domain

// ResolvedStep is one step fully resolved for a concrete profile: output
// path, ordered input files, merged parameters, and the assembled command.
// Instances live for a single build run; only the Record survives it.
type ResolvedStep struct {
	Name                InternedString
	Profile             string
	Requires            []InternedString
	Output              string
	Inputs              []string
	PositionalFilenames []string
	Parameters          *ParamMap
	ParameterString     string
	CommandTemplate     string
	Command             string

	// Err carries a per-step resolution failure (index out of range, missing
	// switch name). The step is treated like an execution failure: it never
	// runs and its dependents are skipped.
	Err error
}

// Plan is the resolved build for one profile: every step in topological
// order, ready for staleness checks and execution. It is also the dry-run
// surface; producing a Plan mutates no state.
type Plan struct {
	Profile string
	Steps   []*ResolvedStep
	byName  map[InternedString]*ResolvedStep
}

// NewPlan creates an empty plan for a profile.
func NewPlan(profile string) *Plan {
	return &Plan{
		Profile: profile,
		byName:  make(map[InternedString]*ResolvedStep),
	}
}

// Add appends a resolved step in topological position.
func (p *Plan) Add(rs *ResolvedStep) {
	p.Steps = append(p.Steps, rs)
	p.byName[rs.Name] = rs
}

// Get returns the resolved step with the given name.
func (p *Plan) Get(name InternedString) (*ResolvedStep, bool) {
	rs, ok := p.byName[name]
	return rs, ok
}

// Contains reports whether the plan includes the given step.
func (p *Plan) Contains(name InternedString) bool {
	_, ok := p.byName[name]
	return ok
}

// StepStatus is the lifecycle state of a step during a build run.
type StepStatus string

const (
	// StatusPending indicates the step is waiting for its requires.
	StatusPending StepStatus = "Pending"
	// StatusRunning indicates the step's command is executing.
	StatusRunning StepStatus = "Running"
	// StatusSucceeded indicates the command exited zero.
	StatusSucceeded StepStatus = "Succeeded"
	// StatusFailed indicates the command exited non-zero or resolution failed.
	StatusFailed StepStatus = "Failed"
	// StatusSkippedFresh indicates the step was up to date and did not run.
	StatusSkippedFresh StepStatus = "SkippedFresh"
	// StatusSkippedFailed indicates an upstream failure prevented the step
	// from running.
	StatusSkippedFailed StepStatus = "SkippedFailed"
)

// Terminal reports whether the status is an end state.
func (s StepStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkippedFresh, StatusSkippedFailed:
		return true
	}
	return false
}

// StaleReason explains why a step was (or was not) considered stale.
type StaleReason string

const (
	// ReasonFresh means fingerprint and output matched the stored record.
	ReasonFresh StaleReason = "up-to-date"
	// ReasonFirstBuild means no record existed for the (step, profile) pair.
	ReasonFirstBuild StaleReason = "first build"
	// ReasonMissingOutput means the output file is absent.
	ReasonMissingOutput StaleReason = "output missing"
	// ReasonFingerprint means command, parameters, or inputs changed.
	ReasonFingerprint StaleReason = "fingerprint changed"
	// ReasonOutputChanged means the output file differs from the recorded one.
	ReasonOutputChanged StaleReason = "output changed"
	// ReasonDependencyRan means an upstream step re-executed this run.
	ReasonDependencyRan StaleReason = "dependency rebuilt"
	// ReasonStoreError means the stored record was unreadable and the step is
	// rebuilt as a cache miss.
	ReasonStoreError StaleReason = "state unreadable"
	// ReasonForced means the run bypassed the staleness check.
	ReasonForced StaleReason = "forced"
)

// StepOutcome is the reported result for one step of a run.
type StepOutcome struct {
	Step   string
	Status StepStatus
	Reason StaleReason
	Err    error
}

// BuildResult summarizes one profile's run, steps in topological order.
type BuildResult struct {
	Profile string
	Steps   []StepOutcome
}

// Failed reports whether any step failed or was skipped due to a failure.
func (r *BuildResult) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StatusFailed || s.Status == StatusSkippedFailed {
			return true
		}
	}
	return false
}

// BuildReport aggregates the results of all profiles in a run.
type BuildReport struct {
	Results []*BuildResult
}

// Failed reports whether any profile's build failed.
func (r *BuildReport) Failed() bool {
	for _, res := range r.Results {
		if res.Failed() {
			return true
		}
	}
	return false
}
