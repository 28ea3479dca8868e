package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chorbdd/chor/pkg/action"
	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/backend/filesystem"
	"github.com/chorbdd/chor/pkg/backend/system"
	"github.com/chorbdd/chor/pkg/backend/terminal"
	"github.com/chorbdd/chor/pkg/backend/web"
	"github.com/chorbdd/chor/pkg/condition"
	"github.com/chorbdd/chor/pkg/loader"
)

// SuiteResult aggregates every scenario's result for one feature file, in
// the shape pkg/report turns into the stable JSON document (spec.md §6).
type SuiteResult struct {
	Feature   string
	Scenarios []ScenarioResult
}

// RunPlan executes every scenario in plan: parallel-flagged scenarios run
// concurrently against each other, sequential ones afterward in
// declaration order (spec.md §4.5's "Parallel vs. sequential scheduling").
// Each scenario gets its own World and its own backend set; nothing is
// shared across a scenario boundary.
func RunPlan(ctx context.Context, plan *loader.Plan) (SuiteResult, error) {
	return RunPlanWithProgress(ctx, plan, nil)
}

// RunPlanWithProgress is RunPlan with an optional onTick callback forwarded
// to every scenario's Engine.OnTick, used by `chor run --watch` to redraw a
// live bubbletea view; RunPlan itself passes nil.
func RunPlanWithProgress(ctx context.Context, plan *loader.Plan, onTick func(scenario string, snapshot []TestSnapshot)) (SuiteResult, error) {
	var parallel, sequential []loader.Scenario
	for _, sc := range plan.Scenarios {
		if sc.Parallel {
			parallel = append(parallel, sc)
		} else {
			sequential = append(sequential, sc)
		}
	}

	results := make([]ScenarioResult, len(plan.Scenarios))
	index := make(map[string]int, len(plan.Scenarios))
	for i, sc := range plan.Scenarios {
		index[sc.Name] = i
	}

	if len(parallel) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		for _, sc := range parallel {
			sc := sc
			g.Go(func() error {
				res, err := runScenario(gctx, plan, sc, onTick)
				if err != nil {
					return fmt.Errorf("scenario %q: %w", sc.Name, err)
				}
				results[index[sc.Name]] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return SuiteResult{}, err
		}
	}

	for _, sc := range sequential {
		res, err := runScenario(ctx, plan, sc, onTick)
		if err != nil {
			return SuiteResult{}, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		results[index[sc.Name]] = res
	}

	return SuiteResult{Feature: plan.Feature, Scenarios: results}, nil
}

// runScenario builds the backend set for the actors the plan declares (the
// same set for every scenario), drives the engine to completion, and tears the
// backends back down.
func runScenario(ctx context.Context, plan *loader.Plan, sc loader.Scenario, onTick func(string, []TestSnapshot)) (ScenarioResult, error) {
	backends, closers, err := buildBackends(plan)
	if err != nil {
		return ScenarioResult{}, err
	}
	defer closeAll(closers)

	probes := condition.Probes{
		Service: system.ServiceProbe{},
		Port:    system.PortProbe{},
	}

	timeout := time.Duration(plan.Settings.TimeoutSeconds * float64(time.Second))
	eng := New(sc, plan.InitialStore, backends, probes, timeout, plan.Settings.StopOnFailure)
	eng.OnTick = onTick

	done := make(chan ScenarioResult, 1)
	go func() { done <- eng.Run() }()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return ScenarioResult{}, ctx.Err()
	}
}

func buildBackends(plan *loader.Plan) (action.Backends, []func() error, error) {
	var backends action.Backends
	var closers []func() error

	if plan.Actors[ast.ActorTerminal] {
		tb, err := terminal.New(plan.Settings.ShellPath, 30*time.Second)
		if err != nil {
			return backends, nil, fmt.Errorf("starting terminal backend: %w", err)
		}
		backends.Terminal = tb
		closers = append(closers, tb.Close)
	}
	if plan.Actors[ast.ActorWeb] {
		backends.Web = web.New(time.Duration(plan.Settings.TimeoutSeconds * float64(time.Second)))
	}
	if plan.Actors[ast.ActorFileSystem] {
		backends.FileSystem = filesystem.New()
	}
	if plan.Actors[ast.ActorSystem] {
		backends.System = system.New()
	}

	return backends, closers, nil
}

func closeAll(closers []func() error) {
	for _, c := range closers {
		_ = c()
	}
}
