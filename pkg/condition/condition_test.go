package condition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/value"
	"github.com/chorbdd/chor/pkg/world"
)

func stepCond(actor ast.Actor, verb string, args []string, as string) ast.Step {
	c := &ast.Condition{Actor: actor, Verb: verb, Args: args}
	if as != "" {
		c.As, c.HasAs = as, true
	}
	return ast.Step{Kind: ast.StepCondition, Condition: c}
}

func TestEvalWaitGePendingThenPass(t *testing.T) {
	store := value.NewStore()
	w := world.New(store)
	w.SetBlockEntry("T", time.Now())

	snap := w.Snapshot("T")
	snap.Now = snap.BlockStart.Add(1 * time.Second)
	r := Evaluate(stepCond(ast.ActorWait, "wait_ge", []string{"2s"}, ""), snap, Probes{})
	assert.Equal(t, Pending, r.Verdict)

	snap.Now = snap.BlockStart.Add(3 * time.Second)
	r = Evaluate(stepCond(ast.ActorWait, "wait_ge", []string{"2s"}, ""), snap, Probes{})
	assert.Equal(t, Pass, r.Verdict)
}

func TestEvalTestHasSucceeded(t *testing.T) {
	store := value.NewStore()
	w := world.New(store)
	snap := w.Snapshot("B")
	r := Evaluate(stepCond(ast.ActorTest, "has_succeeded", []string{"A"}, ""), snap, Probes{})
	assert.Equal(t, Pending, r.Verdict)

	w.MarkSucceeded("A")
	snap = w.Snapshot("B")
	r = Evaluate(stepCond(ast.ActorTest, "has_succeeded", []string{"A"}, ""), snap, Probes{})
	assert.Equal(t, Pass, r.Verdict)
}

func TestEvalTerminalOutputContainsCapture(t *testing.T) {
	store := value.NewStore()
	w := world.New(store)
	w.SetTerminal(world.TerminalOutcome{Present: true, Exited: true, Combined: "hello world", ExitCode: 0})
	snap := w.Snapshot("T")

	r := Evaluate(stepCond(ast.ActorTerminal, "output_contains", []string{"world"}, "CAPTURED"), snap, Probes{})
	if assert.Equal(t, Pass, r.Verdict) {
		assert.NotNil(t, r.Capture)
		assert.Equal(t, "CAPTURED", r.Capture.Name)
		assert.Equal(t, "world", r.Capture.Value.AsString())
	}

	r = Evaluate(stepCond(ast.ActorTerminal, "output_contains", []string{"nope"}, ""), snap, Probes{})
	assert.Equal(t, Fail, r.Verdict)
}

func TestEvalTerminalOutputContainsPendingBeforeExit(t *testing.T) {
	store := value.NewStore()
	w := world.New(store)
	w.SetTerminal(world.TerminalOutcome{Present: true, Exited: false, Combined: "partial"})
	snap := w.Snapshot("T")

	r := Evaluate(stepCond(ast.ActorTerminal, "output_contains", []string{"partial"}, ""), snap, Probes{})
	assert.Equal(t, Pending, r.Verdict)
}

func TestEvalWebResponseStatusIs(t *testing.T) {
	store := value.NewStore()
	w := world.New(store)
	w.SetResponse(world.HTTPResponse{Present: true, Status: 201, Body: []byte(`{"id":"abc"}`)})
	snap := w.Snapshot("T")

	r := Evaluate(stepCond(ast.ActorWeb, "response_status_is", []string{"201"}, ""), snap, Probes{})
	assert.Equal(t, Pass, r.Verdict)

	r = Evaluate(stepCond(ast.ActorWeb, "response_status_is", []string{"is_in", "[200,201,202]"}, ""), snap, Probes{})
	assert.Equal(t, Pass, r.Verdict)

	r = Evaluate(stepCond(ast.ActorWeb, "response_status_is", []string{"404"}, ""), snap, Probes{})
	assert.Equal(t, Fail, r.Verdict)
}

func TestEvalJSONPathCapture(t *testing.T) {
	store := value.NewStore()
	w := world.New(store)
	w.SetResponse(world.HTTPResponse{Present: true, Status: 200, Body: []byte(`{"id":"order-1","amount":42}`)})
	snap := w.Snapshot("T")

	r := Evaluate(stepCond(ast.ActorWeb, "json_path", []string{"at", "/id"}, "ORDER_ID"), snap, Probes{})
	if assert.Equal(t, Pass, r.Verdict) {
		assert.Equal(t, "ORDER_ID", r.Capture.Name)
		assert.Equal(t, "order-1", r.Capture.Value.AsString())
	}

	r = Evaluate(stepCond(ast.ActorWeb, "json_path", []string{"at", "/missing"}, ""), snap, Probes{})
	assert.Equal(t, Fail, r.Verdict)
}

func TestResponseBodyEqualsJSONIgnoresFields(t *testing.T) {
	store := value.NewStore()
	w := world.New(store)
	w.SetResponse(world.HTTPResponse{Present: true, Status: 200, Body: []byte(`{"id":"1","timestamp":"now","name":"a"}`)})
	snap := w.Snapshot("T")

	step := stepCond(ast.ActorWeb, "response_body_equals_json", []string{`{"id":"1","timestamp":"later","name":"a"}`}, "")
	step.IgnoreFields = []string{"timestamp"}
	r := Evaluate(step, snap, Probes{})
	assert.Equal(t, Pass, r.Verdict)

	step.IgnoreFields = nil
	r = Evaluate(step, snap, Probes{})
	assert.Equal(t, Fail, r.Verdict)
}

type fakePortProbe struct{ listening map[int]bool }

func (f fakePortProbe) IsListening(port int) bool { return f.listening[port] }

func TestEvalSystemPortProbe(t *testing.T) {
	store := value.NewStore()
	w := world.New(store)
	snap := w.Snapshot("T")
	probes := Probes{Port: fakePortProbe{listening: map[int]bool{8080: true}}}

	r := Evaluate(stepCond(ast.ActorSystem, "port_is_listening", []string{"8080"}, ""), snap, probes)
	assert.Equal(t, Pass, r.Verdict)

	r = Evaluate(stepCond(ast.ActorSystem, "port_is_closed", []string{"9999"}, ""), snap, probes)
	assert.Equal(t, Pass, r.Verdict)
}

func TestSubstitutionErrorFails(t *testing.T) {
	store := value.NewStore()
	w := world.New(store)
	snap := w.Snapshot("T")

	r := Evaluate(stepCond(ast.ActorTerminal, "output_contains", []string{"${NOPE}"}, ""), snap, Probes{})
	assert.Equal(t, Fail, r.Verdict)
}
