// Package textdiff wraps go-udiff's unified-diff rendering for use in
// failure reasons (condition mismatches), kept apart from the report
// package so condition does not depend on report's package graph.
package textdiff

import "github.com/aymanbagabas/go-udiff"

// Unified renders a unified diff between expected and actual text, used by
// the structural JSON comparison's failure reason (spec.md §7 "the
// captured context") in place of the teacher's plain "expected vs actual"
// string concatenation in pkg/core/tools/report.go.
func Unified(expected, actual string) string {
	return udiff.Unified("expected", "actual", expected, actual)
}
