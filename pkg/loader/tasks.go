package loader

import (
	"strings"

	"github.com/chorbdd/chor/pkg/ast"
)

// inlineTasks resolves every StepTaskCall in steps by textual parameter
// substitution into the named task's body, recursively, forbidding a task
// from appearing more than once on its own call stack (spec.md §3 "Tasks
// ... recursion is forbidden").
func inlineTasks(tasks map[string]ast.TaskDecl, steps []ast.Step, stack []string) ([]ast.Step, error) {
	out := make([]ast.Step, 0, len(steps))
	for _, step := range steps {
		if step.Kind != ast.StepTaskCall {
			out = append(out, step)
			continue
		}
		call := step.TaskCall
		task, ok := tasks[call.Name]
		if !ok {
			return nil, newErr(ErrUnknownTask, call.Pos, "call to undefined task %q", call.Name)
		}
		if len(call.Args) != len(task.Params) {
			return nil, newErr(ErrArityMismatch, call.Pos,
				"task %q called with %d argument(s), declared with %d parameter(s)",
				call.Name, len(call.Args), len(task.Params))
		}
		for _, seen := range stack {
			if seen == call.Name {
				return nil, newErr(ErrRecursiveTask, call.Pos, "task %q calls itself (directly or transitively)", call.Name)
			}
		}

		params := make(map[string]string, len(task.Params))
		for i, p := range task.Params {
			params[p] = call.Args[i]
		}
		body := substituteStepsParams(task.Body, params)

		inlined, err := inlineTasks(tasks, body, append(stack, call.Name))
		if err != nil {
			return nil, err
		}
		out = append(out, inlined...)
	}
	return out, nil
}

// substituteStepsParams textually replaces "${PARAM}" with its argument
// text across every string-bearing field of a step sequence. This is the
// same textual-substitution mechanism foreach expansion uses, applied to
// task parameters instead of a loop variable.
func substituteStepsParams(steps []ast.Step, params map[string]string) []ast.Step {
	out := make([]ast.Step, len(steps))
	for i, s := range steps {
		ns := s
		ns.IgnoreFields = substituteList(s.IgnoreFields, params)
		if s.Action != nil {
			a := *s.Action
			a.Args = substituteList(a.Args, params)
			a.As = substituteAll(a.As, params)
			ns.Action = &a
		}
		if s.Condition != nil {
			c := *s.Condition
			c.Args = substituteList(c.Args, params)
			c.As = substituteAll(c.As, params)
			ns.Condition = &c
		}
		if s.TaskCall != nil {
			tc := *s.TaskCall
			tc.Args = substituteList(tc.Args, params)
			ns.TaskCall = &tc
		}
		out[i] = ns
	}
	return out
}

func substituteAll(text string, params map[string]string) string {
	for name, val := range params {
		text = strings.ReplaceAll(text, "${"+name+"}", val)
	}
	return text
}

func substituteList(items []string, params map[string]string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = substituteAll(it, params)
	}
	return out
}
