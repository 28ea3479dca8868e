package loader

import (
	"github.com/chorbdd/chor/pkg/ast"
)

// expandForeach produces one ast.TestDecl per element of the loop variable's
// list, substituting "${LOOPVAR}" textually into the test identifier,
// description, and every step (spec.md §4.1(b), §8 property 4).
func expandForeach(fe ast.ForeachDecl, listItems []string) []ast.TestDecl {
	out := make([]ast.TestDecl, len(listItems))
	for i, item := range listItems {
		params := map[string]string{fe.LoopVar: item}
		out[i] = ast.TestDecl{
			Pos:         fe.Test.Pos,
			ID:          substituteAll(fe.Test.ID, params),
			Description: substituteAll(fe.Test.Description, params),
			Given:       substituteStepsParams(fe.Test.Given, params),
			When:        substituteStepsParams(fe.Test.When, params),
			Then:        substituteStepsParams(fe.Test.Then, params),
		}
	}
	return out
}
