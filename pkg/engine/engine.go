// Package engine implements the reactive scenario engine from spec.md
// §4.4/§4.5: one engine per scenario, owning a World and a set of
// backends, advancing every test's state machine one step per tick until
// all tests are terminal or the scenario timeout elapses.
package engine

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/chorbdd/chor/pkg/action"
	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/condition"
	"github.com/chorbdd/chor/pkg/loader"
	"github.com/chorbdd/chor/pkg/value"
	"github.com/chorbdd/chor/pkg/world"
)

// DefaultTickInterval is the scenario engine's tick period (spec.md §4.5:
// "Tick interval is configurable (default 50 ms)").
const DefaultTickInterval = 50 * time.Millisecond

// ScenarioResult is the finished, report-ready outcome of one scenario.
type ScenarioResult struct {
	Name  string
	Tests []TestReport
	After []StepResult
}

// TestReport is one test's finished state, ready for pkg/report to render.
type TestReport struct {
	ID          string
	Description string
	Status      string
	Reason      string
	Steps       []StepResult
	DurationMs  int64
}

// Engine drives one scenario's tests to completion.
type Engine struct {
	Scenario      loader.Scenario
	World         *world.World
	Backends      action.Backends
	Probes        condition.Probes
	Timeout       time.Duration
	StopOnFailure bool
	TickInterval  time.Duration

	// OnTick, when non-nil, is called once per tick with every test's
	// current state, letting `chor run --watch` redraw a live view without
	// the engine itself knowing anything about bubbletea.
	OnTick func(scenario string, snapshot []TestSnapshot)

	runs         []*TestRun
	byID         map[string]*TestRun
	afterResults []StepResult
}

// TestSnapshot is one test's state at a single tick.
type TestSnapshot struct {
	ID    string
	State string
}

// New builds an engine for scenario, cloning the plan's initial store into
// a fresh world (spec.md §4.5 step 1, §9 "replicate the variable store by
// deep copy at scenario start").
func New(scenario loader.Scenario, initialStore *value.Store, backends action.Backends, probes condition.Probes, timeout time.Duration, stopOnFailure bool) *Engine {
	w := world.New(initialStore.Clone())
	e := &Engine{
		Scenario:      scenario,
		World:         w,
		Backends:      backends,
		Probes:        probes,
		Timeout:       timeout,
		StopOnFailure: stopOnFailure,
		TickInterval:  DefaultTickInterval,
		byID:          make(map[string]*TestRun, len(scenario.Tests)),
	}
	for _, t := range scenario.Tests {
		tr := newTestRun(t)
		e.runs = append(e.runs, tr)
		e.byID[t.ID] = tr
	}
	return e
}

// Run executes the tick loop to completion and returns the scenario's
// finished result. Backends are not closed here; the caller (pkg/engine's
// suite runner) owns backend lifetime since it also constructs them.
func (e *Engine) Run() ScenarioResult {
	start := time.Now()
	deadline := start.Add(e.Timeout)
	limiter := rate.NewLimiter(rate.Every(e.TickInterval), 1)
	ctx := context.Background()

	for {
		allTerminal := true
		for _, tr := range e.runs {
			if tr.State.Terminal() {
				continue
			}
			allTerminal = false
			if tr.started.IsZero() {
				tr.started = time.Now()
			}
			e.step(tr)
		}

		if e.OnTick != nil {
			e.OnTick(e.Scenario.Name, e.snapshot())
		}

		if allTerminal {
			break
		}

		if time.Now().After(deadline) {
			for _, tr := range e.runs {
				if !tr.State.Terminal() {
					tr.State = TimedOut
					tr.Reason = "scenario timeout elapsed"
					tr.finished = time.Now()
				}
			}
			break
		}

		if e.StopOnFailure && e.anyFailed() {
			for _, tr := range e.runs {
				if !tr.State.Terminal() {
					tr.State = Skipped
					tr.finished = time.Now()
				}
			}
			break
		}

		_ = limiter.Wait(ctx)
	}

	e.afterResults = e.runAfter()
	return e.buildResult()
}

func (e *Engine) snapshot() []TestSnapshot {
	snaps := make([]TestSnapshot, len(e.runs))
	for i, tr := range e.runs {
		snaps[i] = TestSnapshot{ID: tr.Test.ID, State: tr.State.String()}
	}
	return snaps
}

func (e *Engine) anyFailed() bool {
	for _, tr := range e.runs {
		if tr.State == Failed || tr.State == TimedOut {
			return true
		}
	}
	return false
}

// step advances one non-terminal test by exactly one tick's worth of work.
func (e *Engine) step(tr *TestRun) {
	switch tr.State {
	case Pending:
		if blocked, skip := e.dependencyBlocked(tr); blocked {
			if skip {
				tr.State = Skipped
				tr.finished = time.Now()
			}
			return
		}
		tr.State = GivenActive
		e.enterBlock(tr)
		if !e.runActionsOnce(tr, tr.Test.Given, tr.GivenStatus, &tr.GivenActionsDone) {
			return
		}
		e.evaluateBlock(tr, tr.Test.Given, tr.GivenStatus, WhenActive)

	case GivenActive:
		e.evaluateBlock(tr, tr.Test.Given, tr.GivenStatus, WhenActive)

	case WhenActive:
		if e.runActionsOnce(tr, tr.Test.When, tr.WhenStatus, &tr.WhenActionsDone) {
			tr.State = ThenActive
			e.enterBlock(tr)
		}

	case ThenActive:
		e.evaluateBlock(tr, tr.Test.Then, tr.ThenStatus, Passed)
	}
}

func (e *Engine) enterBlock(tr *TestRun) {
	tr.BlockEntered = time.Now()
	e.World.SetBlockEntry(tr.Test.ID, tr.BlockEntered)
}

func (e *Engine) dependencyBlocked(tr *TestRun) (blocked, skip bool) {
	for _, dep := range tr.Test.DependsOn {
		d, ok := e.byID[dep]
		if !ok {
			continue
		}
		switch {
		case d.State == Failed || d.State == TimedOut || d.State == Skipped:
			return true, true
		case d.State == Passed:
			continue
		default:
			return true, false
		}
	}
	return false, false
}

// runActionsOnce executes every action step in steps exactly once,
// recording each into status, and returns false (leaving the test Failed)
// if any action errors.
func (e *Engine) runActionsOnce(tr *TestRun, steps []ast.Step, status []string, done *bool) bool {
	if *done {
		return true
	}
	for i, st := range steps {
		if st.Kind != ast.StepAction {
			continue
		}
		res := action.Run(st, e.World, e.Backends)
		if res.Err != nil {
			status[i] = "failed"
			tr.State = Failed
			tr.Reason = res.Err.Error()
			tr.finished = time.Now()
			*done = true
			return false
		}
		if res.Capture != nil {
			e.World.Store.Set(res.Capture.Name, res.Capture.Value)
		}
		status[i] = "passed"
	}
	*done = true
	return true
}

type pendingCapture struct {
	name  string
	value value.Value
}

// evaluateBlock re-evaluates every condition step in steps in order,
// short-circuiting at the first non-Pass result. Captures from conditions
// are applied only once every condition in the block has passed (spec.md
// §4.2, §9 "committed atomically at the block boundary").
func (e *Engine) evaluateBlock(tr *TestRun, steps []ast.Step, status []string, onPass State) {
	var captures []pendingCapture
	for i, st := range steps {
		if st.Kind != ast.StepCondition {
			continue
		}
		snap := e.World.Snapshot(tr.Test.ID)
		res := condition.Evaluate(st, snap, e.Probes)
		switch res.Verdict {
		case condition.Fail:
			status[i] = "failed"
			tr.State = Failed
			tr.Reason = res.Reason
			tr.finished = time.Now()
			return
		case condition.Pending:
			status[i] = "pending"
			return
		case condition.Pass:
			status[i] = "passed"
			if res.Capture != nil {
				captures = append(captures, pendingCapture{res.Capture.Name, res.Capture.Value})
			}
		}
	}

	for _, c := range captures {
		e.World.Store.Set(c.name, c.value)
	}
	if onPass == Passed {
		e.World.MarkSucceeded(tr.Test.ID)
	}
	tr.State = onPass
	if onPass == Passed {
		tr.finished = time.Now()
	} else {
		e.enterBlock(tr)
	}
}

// runAfter executes the scenario's after block, best-effort (spec.md
// §4.5 step 5: "errors are logged but do not alter test outcomes").
func (e *Engine) runAfter() []StepResult {
	var results []StepResult
	for _, st := range e.Scenario.After {
		if st.Kind != ast.StepAction {
			continue
		}
		res := action.Run(st, e.World, e.Backends)
		status := "passed"
		if res.Err != nil {
			status = "failed"
		} else if res.Capture != nil {
			e.World.Store.Set(res.Capture.Name, res.Capture.Value)
		}
		results = append(results, StepResult{Name: stepName(st), Status: status})
	}
	return results
}

func (e *Engine) buildResult() ScenarioResult {
	sr := ScenarioResult{Name: e.Scenario.Name}
	for _, tr := range e.runs {
		sr.Tests = append(sr.Tests, TestReport{
			ID:          tr.Test.ID,
			Description: tr.Test.Description,
			Status:      tr.State.ReportStatus(),
			Reason:      tr.Reason,
			Steps:       tr.Steps(),
			DurationMs:  tr.DurationMs(),
		})
	}
	sr.After = e.afterResults
	return sr
}
