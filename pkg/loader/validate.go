package loader

import (
	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/value"
)

// validateActors checks that every non-pseudo actor referenced by a step
// appears in the declared actor set (spec.md §3 invariant).
func validateActors(declared map[ast.Actor]bool, steps []ast.Step) error {
	for _, s := range steps {
		actor, pos, ok := stepActor(s)
		if !ok || actor == ast.ActorTest || actor == ast.ActorWait {
			continue
		}
		if !declared[actor] {
			return newErr(ErrUndeclaredActor, pos, "actor %q used but not declared", actor)
		}
	}
	return nil
}

func stepActor(s ast.Step) (ast.Actor, ast.Position, bool) {
	switch {
	case s.Action != nil:
		return s.Action.Actor, s.Action.Pos, true
	case s.Condition != nil:
		return s.Condition.Actor, s.Condition.Pos, true
	default:
		return "", ast.Position{}, false
	}
}

// validateBlockKinds enforces spec.md §3's "given may contain both; when
// contains actions only; then contains conditions only" invariant.
func validateBlockKinds(test Test) error {
	for _, s := range test.When {
		if s.Kind != ast.StepAction {
			return newErr(ErrMixedStepKinds, s.Pos, "test %q: \"when\" block may only contain actions", test.ID)
		}
	}
	for _, s := range test.Then {
		if s.Kind != ast.StepCondition {
			return newErr(ErrMixedStepKinds, s.Pos, "test %q: \"then\" block may only contain conditions", test.ID)
		}
	}
	return nil
}

// dependsOn extracts every `Test has_succeeded X` reference from a test's
// given/then blocks.
func dependsOn(test Test) []string {
	var deps []string
	collect := func(steps []ast.Step) {
		for _, s := range steps {
			if s.Condition != nil && s.Condition.Actor == ast.ActorTest && s.Condition.Verb == "has_succeeded" && len(s.Condition.Args) > 0 {
				deps = append(deps, s.Condition.Args[0])
			}
		}
	}
	collect(test.Given)
	collect(test.Then)
	return deps
}

// validateTestRefs checks that every dependency named by a test resolves to
// another test declared in the same scenario.
func validateTestRefs(scenario Scenario) error {
	ids := make(map[string]bool, len(scenario.Tests))
	for _, t := range scenario.Tests {
		ids[t.ID] = true
	}
	for _, t := range scenario.Tests {
		for _, dep := range t.DependsOn {
			if !ids[dep] {
				return newErr(ErrUnknownTestRef, ast.Position{}, "test %q depends on unknown test %q in scenario %q", t.ID, dep, scenario.Name)
			}
		}
	}
	return nil
}

// validateUniqueIDs fails the load if foreach expansion (or plain
// duplication) produced two tests with the same identifier in one scenario.
func validateUniqueIDs(scenario Scenario) error {
	seen := make(map[string]bool, len(scenario.Tests))
	for _, t := range scenario.Tests {
		if seen[t.ID] {
			return newErr(ErrDuplicateTestID, ast.Position{}, "duplicate test id %q in scenario %q", t.ID, scenario.Name)
		}
		seen[t.ID] = true
	}
	return nil
}

// collectReferencedNames gathers every ${NAME} reference across a step's
// string-bearing fields for the undeclared-variable check.
func collectReferencedNames(steps []ast.Step, refs func(text string)) {
	for _, s := range steps {
		if s.Action != nil {
			for _, a := range s.Action.Args {
				refs(a)
			}
		}
		if s.Condition != nil {
			for _, a := range s.Condition.Args {
				refs(a)
			}
		}
		for _, f := range s.IgnoreFields {
			refs(f)
		}
	}
}

// validateVariableRefs walks a test's blocks in evaluation order (given,
// when, then), tracking which names are known-declared as it goes: vars,
// env, the enclosing foreach loop variable, and any name captured by a
// prior `as NAME` clause. A reference to anything else is a LoadError
// (spec.md §3 invariant: "every variable used in substitution must be
// declared ... or introduced by a prior capture").
func validateVariableRefs(known map[string]bool, test Test, referencedNamesOf func(string) []string) error {
	local := make(map[string]bool, len(known))
	for k := range known {
		local[k] = true
	}

	check := func(steps []ast.Step) error {
		for _, s := range steps {
			var args []string
			var capture string
			var hasCapture bool
			switch {
			case s.Action != nil:
				args = s.Action.Args
				capture, hasCapture = s.Action.As, s.Action.HasAs
			case s.Condition != nil:
				args = s.Condition.Args
				capture, hasCapture = s.Condition.As, s.Condition.HasAs
			}
			for _, a := range args {
				for _, name := range referencedNamesOf(a) {
					if !local[name] {
						return newErr(ErrUnknownVariable, s.Pos, "reference to undeclared variable %q", name)
					}
				}
			}
			if hasCapture {
				local[capture] = true
			}
		}
		return nil
	}

	if err := check(test.Given); err != nil {
		return err
	}
	if err := check(test.When); err != nil {
		return err
	}
	return check(test.Then)
}

// validateStaticIndices catches a ${NAME[i]} reference whose index is out
// of bounds for a var declared with a fixed-length list literal, the one
// LoadError kind spec.md §7 calls out as fatal before any test runs (a
// list variable built at runtime, e.g. a foreach loop var, can't be
// checked this way and still fails at substitution time instead).
func validateStaticIndices(listLens map[string]int, test Test) error {
	check := func(steps []ast.Step) error {
		for _, s := range steps {
			var args []string
			switch {
			case s.Action != nil:
				args = s.Action.Args
			case s.Condition != nil:
				args = s.Condition.Args
			}
			for _, a := range args {
				for _, ref := range value.StaticIndices(a) {
					n, ok := listLens[ref.Name]
					if !ok {
						continue
					}
					if ref.Index < 0 || ref.Index >= n {
						return newErr(ErrOutOfRangeIndex, s.Pos, "index %d out of range for %q (length %d)", ref.Index, ref.Name, n)
					}
				}
			}
		}
		return nil
	}

	if err := check(test.Given); err != nil {
		return err
	}
	if err := check(test.When); err != nil {
		return err
	}
	return check(test.Then)
}
