package loader

import (
	"fmt"

	"github.com/chorbdd/chor/pkg/ast"
)

// LoadErrorKind names one of the fatal, pre-execution failure kinds listed
// in spec.md §4.1 and §7.
type LoadErrorKind string

const (
	ErrMissingEnv        LoadErrorKind = "missing_env"
	ErrUndeclaredActor   LoadErrorKind = "undeclared_actor"
	ErrUnknownTestRef    LoadErrorKind = "unknown_test_reference"
	ErrDuplicateTestID   LoadErrorKind = "duplicate_test_id"
	ErrMixedStepKinds    LoadErrorKind = "mixed_step_kinds"
	ErrRecursiveTask     LoadErrorKind = "recursive_task"
	ErrArityMismatch     LoadErrorKind = "arity_mismatch"
	ErrUnknownVariable   LoadErrorKind = "unknown_variable"
	ErrOutOfRangeIndex   LoadErrorKind = "out_of_range_index"
	ErrUnknownTask       LoadErrorKind = "unknown_task"
)

// LoadError is the fatal-before-execution error kind from spec.md §7:
// every instance carries the kind (for programmatic handling by `lint`) and
// a human-readable message with position where available.
type LoadError struct {
	Kind    LoadErrorKind
	Pos     ast.Position
	Message string
}

func (e *LoadError) Error() string {
	if e.Pos == (ast.Position{}) {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Pos, e.Message)
}

func newErr(kind LoadErrorKind, pos ast.Position, format string, args ...any) *LoadError {
	return &LoadError{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}
