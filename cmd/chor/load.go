package main

import (
	"fmt"
	"os"

	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/config"
	"github.com/chorbdd/chor/pkg/loader"
	"github.com/chorbdd/chor/pkg/parser"
)

// readFile parses path into an ast.File, wrapping read and parse errors
// alike as plain stderr-friendly errors, matching the teacher's plain
// fmt.Errorf wrapping throughout pkg/core rather than a structured logger.
func readFile(path string) (*ast.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := parser.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// loadPlan parses and loads path into a Plan, merging cfg.yaml's settings
// in wherever the file left a setting at its documented default.
func loadPlan(path string, cfg config.Settings) (*loader.Plan, error) {
	f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	plan, err := loader.Load(f, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	plan.Settings = mergeSettings(plan.Settings, cfg)
	return plan, nil
}

// mergeSettings overlays cfg onto s for every field s still holds at the
// loader's documented default, so a customized .chor/config.yaml can widen
// the defaults a bare `.chor` file would otherwise get without a file's own
// `settings { }` block losing precedence.
func mergeSettings(s loader.Settings, cfg config.Settings) loader.Settings {
	d := loader.DefaultSettings()
	if s.TimeoutSeconds == d.TimeoutSeconds {
		s.TimeoutSeconds = cfg.TimeoutSeconds
	}
	if s.StopOnFailure == d.StopOnFailure {
		s.StopOnFailure = cfg.StopOnFailure
	}
	if s.ShellPath == d.ShellPath {
		s.ShellPath = cfg.ShellPath
	}
	if s.ReportPath == d.ReportPath {
		s.ReportPath = cfg.ReportPath
	}
	if s.ExpectedFailures == d.ExpectedFailures {
		s.ExpectedFailures = cfg.ExpectedFailures
	}
	if s.OpenAPIRef == d.OpenAPIRef {
		s.OpenAPIRef = cfg.OpenAPIRef
	}
	return s
}

func loadConfig() config.Settings {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return config.Defaults()
	}
	return cfg
}
