// Package report turns a finished suite run into the stable JSON document
// spec.md §6 describes: an array of feature objects, each holding the
// scenario/step breakdown and a summary, plus a human-readable console
// summary for `chor run`.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/chorbdd/chor/pkg/engine"
)

// Feature is one `.chor` file's report entry. Cucumber-style tooling
// expects an array even though this engine only ever produces one feature
// per file; the array shape is kept so report consumers don't special-case
// a single-element slice.
type Feature struct {
	URI     string     `json:"uri"`
	Keyword string     `json:"keyword"`
	Name    string     `json:"name"`
	Elements []Scenario `json:"elements"`
	Summary Summary    `json:"summary"`
}

type Scenario struct {
	Keyword string `json:"keyword"`
	Name    string `json:"name"`
	Steps   []Step `json:"steps"`
	After   []Step `json:"after,omitempty"`
}

type Step struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Result      StepStatus `json:"result"`
}

type StepStatus struct {
	Status       string `json:"status"`
	DurationInMs int64  `json:"durationInMs"`
}

type Summary struct {
	Tests              int     `json:"tests"`
	Failures           int     `json:"failures"`
	TotalTimeInSeconds float64 `json:"totalTimeInSeconds"`
}

// Build assembles a Feature report from one suite run, analogous to how the
// teacher's ExportResultsTool turns a flat []TestResult into one encodable
// document (pkg/core/tools/report.go), generalised here to the nested
// feature/scenario/step shape spec.md §6 requires.
func Build(uri, featureName string, suite engine.SuiteResult, elapsed time.Duration) Feature {
	f := Feature{URI: uri, Keyword: "Feature", Name: featureName}

	tests := 0
	failures := 0
	for _, sc := range suite.Scenarios {
		s := Scenario{Keyword: "Scenario", Name: sc.Name}
		for _, tr := range sc.Tests {
			tests++
			if tr.Status == "failed" {
				failures++
			}
			for _, st := range tr.Steps {
				s.Steps = append(s.Steps, Step{
					Name:        st.Name,
					Description: st.Description,
					Result:      StepStatus{Status: st.Status, DurationInMs: st.DurationMs},
				})
			}
		}
		for _, st := range sc.After {
			s.After = append(s.After, Step{
				Name:   st.Name,
				Result: StepStatus{Status: st.Status},
			})
		}
		f.Elements = append(f.Elements, s)
	}

	f.Summary = Summary{
		Tests:              tests,
		Failures:           failures,
		TotalTimeInSeconds: elapsed.Seconds(),
	}
	return f
}

// Write encodes features as indented JSON to dir/report-<unixnano>.json,
// mirroring the teacher's ExportResultsTool.Execute JSON branch (MkdirAll
// then a timestamped filename under a reports directory).
func Write(dir string, features []Feature, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: creating %q: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("report-%d.json", now.UnixNano()))
	data, err := json.MarshalIndent(features, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: encoding: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("report: writing %q: %w", path, err)
	}
	return path, nil
}

// PrintSummary writes a single human-readable summary line to w, totalled
// across all features, used by `chor run`'s console output.
func PrintSummary(w io.Writer, features []Feature) {
	var tests, failures int
	var totalSeconds float64
	for _, f := range features {
		tests += f.Summary.Tests
		failures += f.Summary.Failures
		totalSeconds += f.Summary.TotalTimeInSeconds
	}
	fmt.Fprintf(w, "%s tests, %s failures, %.2fs total\n",
		humanize.Comma(int64(tests)),
		humanize.Comma(int64(failures)),
		totalSeconds,
	)
}

// Failures returns every failed step as "feature/scenario: step name",
// flattened across features, for `--verbose` output.
func Failures(features []Feature) []string {
	var out []string
	for _, f := range features {
		for _, sc := range f.Elements {
			for _, st := range sc.Steps {
				if st.Result.Status == "failed" {
					out = append(out, fmt.Sprintf("%s/%s: %s", f.Name, sc.Name, st.Name))
				}
			}
		}
	}
	return out
}
