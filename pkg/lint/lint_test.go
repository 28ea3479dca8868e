package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chorbdd/chor/pkg/parser"
)

func noEnv(string) (string, bool) { return "", false }

func TestLintReportsFatalLoadErrorAsECode(t *testing.T) {
	f, err := parser.Parse(`
feature "x"
scenario "s" {
  test T "desc" {
    given: Test can_start
    when: Terminal run "true"
    then: Terminal last_command succeeded
  }
}
`)
	require.NoError(t, err)
	diags := Lint(f, noEnv, nil)
	require.Len(t, diags, 1)
	assert.Equal(t, "E-UNDECLARED-ACTOR", diags[0].Code)
}

func TestLintFlagsEmptyThenAndMissingDescription(t *testing.T) {
	f, err := parser.Parse(`
feature "x"
actor System
scenario "s" {
  test T "" {
    given: Test can_start
    when: System log "hi"
    then:
  }
}
`)
	require.NoError(t, err)
	diags := Lint(f, noEnv, nil)

	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, "W-EMPTY-THEN")
	assert.Contains(t, codes, "I-NO-DESCRIPTION")
}

func TestLintFlagsUnusedVar(t *testing.T) {
	f, err := parser.Parse(`
feature "x"
actor System
var UNUSED = "z"
scenario "s" {
  test T "desc" {
    given: Test can_start
    when: System log "hi"
    then: Test can_start
  }
}
`)
	require.NoError(t, err)
	diags := Lint(f, noEnv, nil)

	var found bool
	for _, d := range diags {
		if d.Code == "W-UNUSED-DECLARATION" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLintDoesNotFlagVarOnlyUsedAsForeachList(t *testing.T) {
	f, err := parser.Parse(`
feature "x"
actor System
var L = ["a", "b"]
scenario "s" {
  foreach I in ${L} {
    test T_${I} "runs ${I}" {
      given: Test can_start
      when: System log "${I}"
      then: Test can_start
    }
  }
}
`)
	require.NoError(t, err)
	diags := Lint(f, noEnv, nil)

	for _, d := range diags {
		assert.NotEqual(t, "W-UNUSED-DECLARATION", d.Code, "L is used as the foreach list source")
	}
}
