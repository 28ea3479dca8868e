package parser

import "github.com/chorbdd/chor/pkg/ast"

// verbKind classifies every verb named in spec.md §4.2/§4.3 as an action or
// a condition, so the parser can populate Step.Kind without the grammar
// itself needing a separate action/condition keyword.
var verbKind = map[ast.Actor]map[string]ast.StepKind{
	ast.ActorTest: {
		"can_start":     ast.StepCondition,
		"has_succeeded": ast.StepCondition,
	},
	ast.ActorWait: {
		"wait_ge": ast.StepCondition,
		"wait_le": ast.StepCondition,
	},
	ast.ActorTerminal: {
		"run":                ast.StepAction,
		"last_command":       ast.StepCondition,
		"output_contains":    ast.StepCondition,
		"stderr_contains":    ast.StepCondition,
		"output_starts_with": ast.StepCondition,
		"output_ends_with":   ast.StepCondition,
		"output_equals":      ast.StepCondition,
		"output_matches":     ast.StepCondition,
		"output_is_valid_json": ast.StepCondition,
		"json_output":        ast.StepCondition,
	},
	ast.ActorSystem: {
		"pause":                ast.StepAction,
		"log":                  ast.StepAction,
		"uuid":                 ast.StepAction,
		"timestamp":            ast.StepAction,
		"port_is_listening":    ast.StepCondition,
		"port_is_closed":       ast.StepCondition,
		"service_is_running":   ast.StepCondition,
		"service_is_stopped":   ast.StepCondition,
		"service_is_installed": ast.StepCondition,
	},
	ast.ActorFileSystem: {
		"create_dir":         ast.StepAction,
		"create_file":        ast.StepAction,
		"delete_dir":         ast.StepAction,
		"delete_file":        ast.StepAction,
		"read_file":          ast.StepAction,
		"file_exists":        ast.StepCondition,
		"file_does_not_exist": ast.StepCondition,
		"dir_exists":         ast.StepCondition,
		"dir_does_not_exist": ast.StepCondition,
		"file_contains":      ast.StepCondition,
		"file":               ast.StepCondition,
	},
	ast.ActorWeb: {
		"set_header":                ast.StepAction,
		"clear_header":              ast.StepAction,
		"set_cookie":                ast.StepAction,
		"clear_cookie":              ast.StepAction,
		"http_get":                  ast.StepAction,
		"http_post":                 ast.StepAction,
		"http_put":                  ast.StepAction,
		"http_patch":                ast.StepAction,
		"http_delete":               ast.StepAction,
		"oauth2_client_credentials": ast.StepAction,
		"response_status_is":        ast.StepCondition,
		"response_time":             ast.StepCondition,
		"response_body_contains":    ast.StepCondition,
		"response_body_matches":     ast.StepCondition,
		"response_body_equals_json": ast.StepCondition,
		"json_body":                 ast.StepCondition,
		"json_path":                 ast.StepCondition,
		"json_response":             ast.StepCondition,
		"response_matches_schema":   ast.StepCondition,
	},
}

func kindOf(actor ast.Actor, verb string) (ast.StepKind, bool) {
	m, ok := verbKind[actor]
	if !ok {
		return 0, false
	}
	k, ok := m[verb]
	return k, ok
}
