// Package loader turns a parsed pkg/ast.File into an immutable, runnable
// Plan: it expands foreach blocks, inlines tasks, resolves env declarations,
// validates actor/dependency/variable references, and prefixes the
// background block onto each scenario's first test.
package loader

import (
	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/value"
)

// Settings holds the typed settings table from spec.md §6, with its
// documented defaults.
type Settings struct {
	TimeoutSeconds   float64
	StopOnFailure    bool
	ShellPath        string
	ReportPath       string
	ExpectedFailures int
	// OpenAPIRef is the supplemented lint-only setting naming an OpenAPI
	// document to cross-check every declared `Web http_*` call against.
	OpenAPIRef string
}

// DefaultSettings returns the documented defaults, applied before any
// `settings { }` block in a file overrides them.
func DefaultSettings() Settings {
	return Settings{
		TimeoutSeconds:   30,
		StopOnFailure:    false,
		ShellPath:        "sh",
		ReportPath:       "reports/",
		ExpectedFailures: 0,
		OpenAPIRef:       "",
	}
}

// Plan is the immutable result of loading: the runtime input to scenario
// engines. Nothing in the engine mutates a Plan after Load returns it.
type Plan struct {
	Feature   string
	Actors    map[ast.Actor]bool
	Settings  Settings
	InitialStore *value.Store
	Scenarios []Scenario
}

// Scenario is a post-expansion, post-inlining scenario: every test's steps
// are final, and foreach has already produced one Test per loop element.
type Scenario struct {
	Name     string
	Parallel bool
	Tests    []Test
	After    []ast.Step
}

// Test is a fully resolved test: stable ID, description, and three step
// blocks with only Action/Condition steps (no TaskCall survives loading).
type Test struct {
	ID          string
	Description string
	Given       []ast.Step
	When        []ast.Step
	Then        []ast.Step
	// DependsOn is every test ID referenced by a `Test has_succeeded X`
	// condition anywhere in Given/Then, extracted once at load time so the
	// scenario engine doesn't need to re-scan steps every tick.
	DependsOn []string
}
