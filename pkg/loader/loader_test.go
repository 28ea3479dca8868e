package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/parser"
)

func noEnv(string) (string, bool) { return "", false }

func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := parser.Parse(src)
	require.NoError(t, err)
	return f
}

func TestLoadUndeclaredActorFails(t *testing.T) {
	f := mustParse(t, `
feature "x"
scenario "s" {
  test T "desc" {
    given: Test can_start
    when: Terminal run "true"
    then: Terminal last_command succeeded
  }
}
`)
	_, err := Load(f, noEnv)
	require.Error(t, err)
	le, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrUndeclaredActor, le.Kind)
}

func TestLoadDependencyAndBackground(t *testing.T) {
	f := mustParse(t, `
feature "x"
actor Terminal

background {
  Terminal run "echo setup"
}

scenario "s" {
  test A "first" {
    given: Test can_start
    when: Terminal run "true"
    then: Terminal last_command succeeded
  }
  test B "second" {
    given: Test has_succeeded A
    when: Terminal run "true"
    then: Terminal last_command succeeded
  }
}
`)
	plan, err := Load(f, noEnv)
	require.NoError(t, err)
	require.Len(t, plan.Scenarios, 1)
	sc := plan.Scenarios[0]
	require.Len(t, sc.Tests, 2)

	assert.Equal(t, "A", sc.Tests[0].ID)
	assert.Len(t, sc.Tests[0].Given, 2, "background step prepended to first test only")
	assert.Equal(t, "B", sc.Tests[1].ID)
	assert.Equal(t, []string{"A"}, sc.Tests[1].DependsOn)
	assert.Len(t, sc.Tests[1].Given, 1, "background only prefixes the first test")
}

func TestLoadForeachExpansion(t *testing.T) {
	f := mustParse(t, `
feature "x"
actor Terminal

var L = ["a", "b", "c"]

scenario "loop" {
  foreach I in ${L} {
    test T_${I} "runs ${I}" {
      given: Test can_start
      when: Terminal run "echo ${I}"
      then: Terminal output_contains "${I}"
    }
  }
}
`)
	plan, err := Load(f, noEnv)
	require.NoError(t, err)
	require.Len(t, plan.Scenarios, 1)
	tests := plan.Scenarios[0].Tests
	require.Len(t, tests, 3)
	assert.Equal(t, "T_a", tests[0].ID)
	assert.Equal(t, "T_b", tests[1].ID)
	assert.Equal(t, "T_c", tests[2].ID)
	assert.Equal(t, []string{"echo a"}, tests[0].When[0].Action.Args)
	assert.Equal(t, []string{"c"}, tests[2].Then[0].Condition.Args)
}

func TestLoadMissingEnvFails(t *testing.T) {
	f := mustParse(t, `
feature "x"
actor Terminal
env API_KEY

scenario "s" {
  test T "desc" {
    given: Test can_start
    when: Terminal run "true"
    then: Terminal last_command succeeded
  }
}
`)
	_, err := Load(f, noEnv)
	require.Error(t, err)
	le, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrMissingEnv, le.Kind)
}

func TestLoadUnknownVariableFails(t *testing.T) {
	f := mustParse(t, `
feature "x"
actor Terminal

scenario "s" {
  test T "desc" {
    given: Test can_start
    when: Terminal run "echo ${NOPE}"
    then: Terminal last_command succeeded
  }
}
`)
	_, err := Load(f, noEnv)
	require.Error(t, err)
	le, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrUnknownVariable, le.Kind)
}

func TestLoadStaticOutOfRangeIndexFails(t *testing.T) {
	f := mustParse(t, `
feature "x"
actor Terminal

var L = ["a", "b", "c"]

scenario "s" {
  test T "desc" {
    given: Test can_start
    when: Terminal run "echo ${L[5]}"
    then: Terminal last_command succeeded
  }
}
`)
	_, err := Load(f, noEnv)
	require.Error(t, err)
	le, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrOutOfRangeIndex, le.Kind)
}

func TestLoadInRangeIndexSucceeds(t *testing.T) {
	f := mustParse(t, `
feature "x"
actor Terminal

var L = ["a", "b", "c"]

scenario "s" {
  test T "desc" {
    given: Test can_start
    when: Terminal run "echo ${L[2]}"
    then: Terminal last_command succeeded
  }
}
`)
	_, err := Load(f, noEnv)
	require.NoError(t, err)
}
