// Package app implements the application layer for weft: it loads the
// configuration, resolves plans, and drives the scheduler for each requested
// profile.
package app

import (
	"context"
	"runtime"

	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/core/ports"
	"go.trai.ch/weft/internal/engine/planner"
	"go.trai.ch/weft/internal/engine/report"
	"go.trai.ch/weft/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// Options carries the command-line inputs shared by run, plan, and describe.
type Options struct {
	// Profiles are profile or group names; empty means the anonymous profile
	// when the config declares none.
	Profiles []string
	// Vars are --vars overrides for general context variables.
	Vars map[string]string
	// Params is the --set parameter tier, rule name -> key -> value.
	Params map[string]map[string]string
	// Jobs bounds parallel step execution; 0 means runtime.NumCPU().
	Jobs int
	// Force bypasses the staleness check.
	Force bool
	// UpTo restricts the build to one step and its transitive requires.
	UpTo string
}

func (o Options) jobs() int {
	if o.Jobs > 0 {
		return o.Jobs
	}
	return runtime.NumCPU()
}

func (o Options) overrides() planner.Overrides {
	return planner.Overrides{Vars: o.Vars, Params: o.Params}
}

// App exposes the tool's operations over the wired ports.
type App struct {
	loader    ports.ConfigLoader
	executor  ports.Executor
	hasher    ports.Hasher
	store     ports.RecordStore
	telemetry ports.Telemetry
	logger    ports.Logger
}

// New creates an App.
func New(
	loader ports.ConfigLoader,
	executor ports.Executor,
	hasher ports.Hasher,
	store ports.RecordStore,
	telemetry ports.Telemetry,
	logger ports.Logger,
) *App {
	return &App{
		loader:    loader,
		executor:  executor,
		hasher:    hasher,
		store:     store,
		telemetry: telemetry,
		logger:    logger,
	}
}

// Run builds every requested profile and returns the per-profile report.
// Step failures live in the report; the returned error covers configuration
// problems and cancellation.
func (a *App) Run(ctx context.Context, cwd string, opts Options) (*domain.BuildReport, error) {
	cfg, plans, err := a.plans(cwd, opts)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(cfg.Graph, a.executor, a.hasher, a.store, a.telemetry, a.logger)
	schedOpts := scheduler.Options{Parallelism: opts.jobs(), Force: opts.Force}

	result := &domain.BuildReport{}
	for _, plan := range plans {
		buildResult, err := sched.Run(ctx, plan, schedOpts)
		if buildResult != nil {
			result.Results = append(result.Results, buildResult)
		}
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// Plan resolves every requested profile without executing or touching state.
func (a *App) Plan(cwd string, opts Options) ([]*domain.Plan, error) {
	_, plans, err := a.plans(cwd, opts)
	return plans, err
}

// Describe renders the markdown report, with mermaid diagram, for one
// profile's resolved plan.
func (a *App) Describe(cwd string, opts Options) (string, error) {
	_, plans, err := a.plans(cwd, opts)
	if err != nil {
		return "", err
	}

	var out string
	for _, plan := range plans {
		out += report.Markdown(plan)
	}
	return out, nil
}

// Clean drops the record store; the next run rebuilds everything.
func (a *App) Clean() error {
	if err := a.store.Reset(); err != nil {
		return zerr.Wrap(err, "failed to reset state")
	}
	a.logger.Info("build state cleared")
	return nil
}

func (a *App) plans(cwd string, opts Options) (*domain.Config, []*domain.Plan, error) {
	cfg, err := a.loader.Load(cwd)
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to load configuration")
	}

	profiles, err := cfg.ResolveProfiles(opts.Profiles)
	if err != nil {
		return nil, nil, err
	}

	p := planner.New(cfg)
	plans := make([]*domain.Plan, 0, len(profiles))
	for _, profile := range profiles {
		plan, err := p.Plan(profile, opts.overrides(), opts.UpTo)
		if err != nil {
			return nil, nil, err
		}
		plans = append(plans, plan)
	}

	return cfg, plans, nil
}
