package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chorbdd/chor/pkg/ast"
)

func TestParseMinimalFeature(t *testing.T) {
	src := `
feature "x"
actor Terminal

scenario "s" {
  test T "desc" {
    given: Test can_start
    when: Terminal run "true"
    then: Terminal last_command succeeded
  }
}
`
	f, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "x", f.Feature)
	assert.Equal(t, []string{"Terminal"}, f.Actors)
	require.Len(t, f.Scenarios, 1)

	sc := f.Scenarios[0]
	assert.Equal(t, "s", sc.Name)
	assert.False(t, sc.Parallel)
	require.Len(t, sc.Items, 1)

	test := sc.Items[0].Test
	require.NotNil(t, test)
	assert.Equal(t, "T", test.ID)
	assert.Equal(t, "desc", test.Description)

	require.Len(t, test.Given, 1)
	assert.Equal(t, ast.StepCondition, test.Given[0].Kind)
	assert.Equal(t, ast.ActorTest, test.Given[0].Condition.Actor)
	assert.Equal(t, "can_start", test.Given[0].Condition.Verb)

	require.Len(t, test.When, 1)
	assert.Equal(t, ast.StepAction, test.When[0].Kind)
	assert.Equal(t, "run", test.When[0].Action.Verb)
	assert.Equal(t, []string{"true"}, test.When[0].Action.Args)

	require.Len(t, test.Then, 1)
	assert.Equal(t, ast.StepCondition, test.Then[0].Kind)
	assert.Equal(t, "last_command", test.Then[0].Condition.Verb)
	assert.Equal(t, []string{"succeeded"}, test.Then[0].Condition.Args)
}

func TestParseForeachAndVarAndSettings(t *testing.T) {
	src := `
feature "y"
actors { Terminal, Web }

settings {
  timeout_seconds: 10,
  stop_on_failure: true,
  shell_path: "bash"
}

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
`
	f, err := Parse(src)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Terminal", "Web"}, f.Actors)

	require.Contains(t, f.Settings, "timeout_seconds")
	assert.Equal(t, float64(10), f.Settings["timeout_seconds"].Number)
	assert.Equal(t, ast.SettingBool, f.Settings["stop_on_failure"].Kind)
	assert.True(t, f.Settings["stop_on_failure"].Bool)
	assert.Equal(t, "bash", f.Settings["shell_path"].String)

	require.Len(t, f.Vars, 1)
	assert.Equal(t, "L", f.Vars[0].Name)
	assert.Equal(t, ast.LiteralList, f.Vars[0].Lit.Kind)
	assert.Equal(t, []string{"a", "b", "c"}, f.Vars[0].Lit.List)

	require.Len(t, f.Scenarios, 1)
	require.Len(t, f.Scenarios[0].Items, 1)
	fe := f.Scenarios[0].Items[0].Foreach
	require.NotNil(t, fe)
	assert.Equal(t, "I", fe.LoopVar)
	assert.Equal(t, "L", fe.ListVar)
	assert.Equal(t, "T_${I}", fe.Test.ID)
}

func TestParseWaitAndCaptureAndIgnoreFields(t *testing.T) {
	src := `
feature "z"
actor Web

scenario "r" {
  test T "desc" {
    given: wait >= 2s
    when: Web http_get "http://x/y"
    then: Web response_status_is 200
      Web json_path at "/id" as ORDER_ID
      Web response_body_equals_json "{}" ignore_fields [timestamp, id]
  }
}
`
	f, err := Parse(src)
	require.NoError(t, err)
	test := f.Scenarios[0].Items[0].Test
	require.NotNil(t, test)

	require.Len(t, test.Given, 1)
	assert.Equal(t, ast.ActorWait, test.Given[0].Condition.Actor)
	assert.Equal(t, "wait_ge", test.Given[0].Condition.Verb)
	assert.Equal(t, []string{"2s"}, test.Given[0].Condition.Args)

	require.Len(t, test.Then, 3)
	capture := test.Then[1].Condition
	assert.True(t, capture.HasAs)
	assert.Equal(t, "ORDER_ID", capture.As)

	ignoreStep := test.Then[2]
	assert.Equal(t, []string{"timestamp", "id"}, ignoreStep.IgnoreFields)
}
