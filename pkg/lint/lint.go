// Package lint implements `chor lint`: a strict superset of `chor validate`
// that never executes anything, emitting E-/W-/I-coded diagnostics per
// spec.md §7 ("the lint command is a strict superset of validate and emits
// E-, W-, I-coded diagnostics without executing").
package lint

import (
	"fmt"
	"strings"

	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/loader"
	"github.com/chorbdd/chor/pkg/value"
)

// Severity is the diagnostic's letter code prefix.
type Severity string

const (
	SeverityError   Severity = "E"
	SeverityWarning Severity = "W"
	SeverityInfo    Severity = "I"
)

// Diagnostic is one lint finding.
type Diagnostic struct {
	Code     string
	Severity Severity
	Pos      ast.Position
	Message  string
}

func (d Diagnostic) String() string {
	if d.Pos == (ast.Position{}) {
		return fmt.Sprintf("[%s] %s", d.Code, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Code, d.Pos, d.Message)
}

// errDiagCodes maps a fatal LoadErrorKind onto its lint diagnostic code,
// mirroring the teacher's validate-then-build pattern: the same checks
// `chor validate` treats as fatal become E-coded lint findings here.
var errDiagCodes = map[loader.LoadErrorKind]string{
	loader.ErrMissingEnv:      "E-MISSING-ENV",
	loader.ErrUndeclaredActor: "E-UNDECLARED-ACTOR",
	loader.ErrUnknownTestRef:  "E-UNKNOWN-TEST-REF",
	loader.ErrDuplicateTestID: "E-DUPLICATE-TEST-ID",
	loader.ErrMixedStepKinds:  "E-MIXED-STEP-KINDS",
	loader.ErrRecursiveTask:   "E-RECURSIVE-TASK",
	loader.ErrArityMismatch:   "E-ARITY-MISMATCH",
	loader.ErrUnknownVariable: "E-UNKNOWN-VARIABLE",
	loader.ErrOutOfRangeIndex: "E-OUT-OF-RANGE-INDEX",
	loader.ErrUnknownTask:     "E-UNKNOWN-TASK",
}

// Lint runs the loader and, on success, a set of non-fatal style checks.
// On a LoadError it returns exactly that one E-coded diagnostic (there is
// no Plan to check further); on success it returns zero or more W-/I-coded
// diagnostics plus, when openapiDoc is non-nil and the file sets
// `openapi_ref`, the W-OAS-* cross-check diagnostics from CheckOpenAPI.
func Lint(file *ast.File, lookupEnv loader.EnvLookup, openapiDoc []byte) []Diagnostic {
	plan, err := loader.Load(file, lookupEnv)
	if err != nil {
		if le, ok := err.(*loader.LoadError); ok {
			code := errDiagCodes[le.Kind]
			if code == "" {
				code = "E-LOAD"
			}
			return []Diagnostic{{Code: code, Severity: SeverityError, Pos: le.Pos, Message: le.Message}}
		}
		return []Diagnostic{{Code: "E-LOAD", Severity: SeverityError, Message: err.Error()}}
	}

	var diags []Diagnostic
	diags = append(diags, checkDescriptions(plan)...)
	diags = append(diags, checkEmptyThen(plan)...)
	diags = append(diags, checkUnusedDeclarations(file, plan)...)

	if plan.Settings.OpenAPIRef != "" && openapiDoc != nil {
		oasDiags, err := CheckOpenAPI(plan, openapiDoc)
		if err != nil {
			diags = append(diags, Diagnostic{Code: "W-OAS-UNREADABLE", Severity: SeverityWarning, Message: err.Error()})
		} else {
			diags = append(diags, oasDiags...)
		}
	}
	return diags
}

func checkDescriptions(plan *loader.Plan) []Diagnostic {
	var diags []Diagnostic
	for _, sc := range plan.Scenarios {
		for _, t := range sc.Tests {
			if strings.TrimSpace(t.Description) == "" {
				diags = append(diags, Diagnostic{
					Code:     "I-NO-DESCRIPTION",
					Severity: SeverityInfo,
					Message:  fmt.Sprintf("test %q has no description", t.ID),
				})
			}
		}
	}
	return diags
}

func checkEmptyThen(plan *loader.Plan) []Diagnostic {
	var diags []Diagnostic
	for _, sc := range plan.Scenarios {
		for _, t := range sc.Tests {
			if len(t.Then) == 0 {
				diags = append(diags, Diagnostic{
					Code:     "W-EMPTY-THEN",
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("test %q asserts nothing in its \"then\" block", t.ID),
				})
			}
		}
	}
	return diags
}

// checkUnusedDeclarations flags a declared env/var name that no step in any
// scenario ever substitutes, the lint-only counterpart to the loader's
// fatal "unknown variable" check.
func checkUnusedDeclarations(file *ast.File, plan *loader.Plan) []Diagnostic {
	declared := make(map[string]bool, len(file.Envs)+len(file.Vars))
	for _, name := range file.Envs {
		declared[name] = true
	}
	for _, v := range file.Vars {
		declared[v.Name] = true
	}

	used := make(map[string]bool, len(declared))
	markUsed := func(steps []ast.Step) {
		for _, s := range steps {
			for _, arg := range stepArgs(s) {
				for _, name := range value.ReferencedNames(arg) {
					used[name] = true
				}
			}
		}
	}
	for _, sc := range plan.Scenarios {
		for _, t := range sc.Tests {
			markUsed(t.Given)
			markUsed(t.When)
			markUsed(t.Then)
		}
		markUsed(sc.After)
	}
	// A var referenced only as a foreach list source (`foreach I in ${L}`)
	// never appears in any expanded test's steps, since loadScenario
	// consumes the list to produce per-iteration tests rather than leaving
	// a ${L} substitution behind; scan the raw scenario declarations too.
	for _, sd := range file.Scenarios {
		for _, item := range sd.Items {
			if item.Foreach != nil {
				used[item.Foreach.ListVar] = true
			}
		}
	}

	var diags []Diagnostic
	for name := range declared {
		if !used[name] {
			diags = append(diags, Diagnostic{
				Code:     "W-UNUSED-DECLARATION",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%q is declared but never referenced", name),
			})
		}
	}
	return diags
}

func stepArgs(s ast.Step) []string {
	switch {
	case s.Action != nil:
		return s.Action.Args
	case s.Condition != nil:
		return s.Condition.Args
	default:
		return nil
	}
}
