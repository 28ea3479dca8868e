package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chorbdd/chor/pkg/engine"
)

func sampleSuite() engine.SuiteResult {
	return engine.SuiteResult{
		Feature: "x",
		Scenarios: []engine.ScenarioResult{
			{
				Name: "s",
				Tests: []engine.TestReport{
					{ID: "T1", Status: "passed", Steps: []engine.StepResult{{Name: "Test can_start", Status: "passed"}}},
					{ID: "T2", Status: "failed", Reason: "boom", Steps: []engine.StepResult{{Name: "Terminal last_command succeeded", Status: "failed"}}},
				},
			},
		},
	}
}

func TestBuildAggregatesSummary(t *testing.T) {
	f := Build("features/x.chor", "x", sampleSuite(), 2*time.Second)
	assert.Equal(t, "Feature", f.Keyword)
	require.Len(t, f.Elements, 1)
	assert.Equal(t, 2, f.Summary.Tests)
	assert.Equal(t, 1, f.Summary.Failures)
	assert.InDelta(t, 2.0, f.Summary.TotalTimeInSeconds, 0.001)
}

func TestWriteProducesReadableFile(t *testing.T) {
	dir := t.TempDir()
	f := Build("features/x.chor", "x", sampleSuite(), time.Second)
	path, err := Write(dir, []Feature{f}, time.Unix(0, 1))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report-1.json"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"keyword": "Feature"`)
}

func TestPrintSummary(t *testing.T) {
	f := Build("features/x.chor", "x", sampleSuite(), time.Second)
	var buf bytes.Buffer
	PrintSummary(&buf, []Feature{f})
	assert.Contains(t, buf.String(), "2 tests")
	assert.Contains(t, buf.String(), "1 failures")
}

func TestFailuresListsFailedSteps(t *testing.T) {
	f := Build("features/x.chor", "x", sampleSuite(), time.Second)
	fails := Failures([]Feature{f})
	require.Len(t, fails, 1)
	assert.Contains(t, fails[0], "Terminal last_command succeeded")
}
