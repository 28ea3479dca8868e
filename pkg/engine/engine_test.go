package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chorbdd/chor/pkg/loader"
	"github.com/chorbdd/chor/pkg/parser"
)

func noEnv(string) (string, bool) { return "", false }

func loadPlan(t *testing.T, src string) *loader.Plan {
	t.Helper()
	f, err := parser.Parse(src)
	require.NoError(t, err)
	plan, err := loader.Load(f, noEnv)
	require.NoError(t, err)
	return plan
}

func TestEnginePassesSimpleTest(t *testing.T) {
	plan := loadPlan(t, `
feature "x"
actor System
scenario "s" {
  test T "desc" {
    given: Test can_start
    when: System log "hi"
    then: Test can_start
  }
}
`)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := RunPlan(ctx, plan)
	require.NoError(t, err)
	require.Len(t, res.Scenarios, 1)
	require.Len(t, res.Scenarios[0].Tests, 1)
	assert.Equal(t, "passed", res.Scenarios[0].Tests[0].Status)
}

func TestEngineDependencyGating(t *testing.T) {
	plan := loadPlan(t, `
feature "x"
actor System
scenario "s" {
  test A "fails" {
    given: Test can_start
    when: System log "a"
    then: System port_is_listening 1
  }
  test B "depends" {
    given: Test has_succeeded A
    when: System log "b"
    then: Test can_start
  }
}
`)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := RunPlan(ctx, plan)
	require.NoError(t, err)
	tests := res.Scenarios[0].Tests
	require.Len(t, tests, 2)

	byID := map[string]TestReport{}
	for _, tr := range tests {
		byID[tr.ID] = tr
	}
	assert.Equal(t, "failed", byID["A"].Status)
	assert.Equal(t, "skipped", byID["B"].Status)
}

func TestEngineWaitGatesThen(t *testing.T) {
	plan := loadPlan(t, `
feature "x"
actor System
scenario "s" {
  test T "desc" {
    given: Test can_start
    when: System log "hi"
    then: wait >= 10ms
  }
}
`)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	res, err := RunPlan(ctx, plan)
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Equal(t, "passed", res.Scenarios[0].Tests[0].Status)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
}

func TestEngineScenarioTimeout(t *testing.T) {
	plan := loadPlan(t, `
feature "x"
actor System
settings {
  timeout_seconds: 0.1
}
scenario "s" {
  test T "desc" {
    given: Test can_start
    when: System log "hi"
    then: wait >= 5s
  }
}
`)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := RunPlan(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, "failed", res.Scenarios[0].Tests[0].Status)
}

func TestRunPlanWithProgressCallsOnTickAtLeastOnce(t *testing.T) {
	plan := loadPlan(t, `
feature "x"
actor System
scenario "s" {
  test T "desc" {
    given: Test can_start
    when: System log "hi"
    then: Test can_start
  }
}
`)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var ticks int
	var lastScenario string
	_, err := RunPlanWithProgress(ctx, plan, func(scenario string, snap []TestSnapshot) {
		ticks++
		lastScenario = scenario
	})
	require.NoError(t, err)
	assert.Positive(t, ticks)
	assert.Equal(t, "s", lastScenario)
}
