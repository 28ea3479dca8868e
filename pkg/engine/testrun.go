package engine

import (
	"strings"
	"time"

	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/loader"
)

// StepResult is one step's contribution to the report (spec.md §6's
// `steps` array: name, description, result.status, result.durationInMs).
type StepResult struct {
	Name        string
	Description string
	Status      string
	DurationMs  int64
}

// TestRun is the mutable run-time record for one loader.Test within a
// scenario engine: its current state plus the per-step statuses that feed
// the final report.
type TestRun struct {
	Test loader.Test
	State
	Reason string

	GivenActionsDone bool
	WhenActionsDone  bool

	GivenStatus []string
	WhenStatus  []string
	ThenStatus  []string

	BlockEntered time.Time
	started      time.Time
	finished     time.Time
}

func newTestRun(t loader.Test) *TestRun {
	return &TestRun{
		Test:        t,
		State:       Pending,
		GivenStatus: initStatus(len(t.Given)),
		WhenStatus:  initStatus(len(t.When)),
		ThenStatus:  initStatus(len(t.Then)),
	}
}

func initStatus(n int) []string {
	s := make([]string, n)
	for i := range s {
		s[i] = "pending"
	}
	return s
}

// DurationMs returns the wall-clock duration of the test, valid once the
// test has reached a terminal state.
func (tr *TestRun) DurationMs() int64 {
	if tr.started.IsZero() {
		return 0
	}
	end := tr.finished
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(tr.started).Milliseconds()
}

// Steps assembles the flattened, report-ready step list in source order:
// given, then when, then then.
func (tr *TestRun) Steps() []StepResult {
	out := make([]StepResult, 0, len(tr.Test.Given)+len(tr.Test.When)+len(tr.Test.Then))
	out = appendSteps(out, tr.Test.Given, tr.GivenStatus)
	out = appendSteps(out, tr.Test.When, tr.WhenStatus)
	out = appendSteps(out, tr.Test.Then, tr.ThenStatus)
	return out
}

func appendSteps(out []StepResult, steps []ast.Step, status []string) []StepResult {
	for i, st := range steps {
		out = append(out, StepResult{
			Name:   stepName(st),
			Status: status[i],
		})
	}
	return out
}

// stepName renders a step back to its source-like text for reporting,
// e.g. `Terminal run "true"` or `wait >= 2s`.
func stepName(st ast.Step) string {
	switch st.Kind {
	case ast.StepAction:
		a := st.Action
		return strings.TrimSpace(string(a.Actor) + " " + a.Verb + " " + strings.Join(a.Args, " "))
	case ast.StepCondition:
		c := st.Condition
		if c.Actor == ast.ActorWait {
			return "wait " + waitSymbol(c.Verb) + " " + strings.Join(c.Args, " ")
		}
		return strings.TrimSpace(string(c.Actor) + " " + c.Verb + " " + strings.Join(c.Args, " "))
	default:
		return "step"
	}
}

func waitSymbol(verb string) string {
	if verb == "wait_le" {
		return "<="
	}
	return ">="
}
