// Package condition implements the pure condition evaluator from
// spec.md §4.2: a total function from a condition node and a read-only
// world snapshot to one of {Pass, Pending, Fail(reason)}.
package condition

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonpointer"
	"github.com/xeipuuv/gojsonschema"

	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/textdiff"
	"github.com/chorbdd/chor/pkg/value"
	"github.com/chorbdd/chor/pkg/world"
)

// Verdict is one of the three outcomes a condition can produce.
type Verdict int

const (
	Pass Verdict = iota
	Pending
	Fail
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case Pending:
		return "pending"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Capture is the deferred mutation a passing `as NAME` condition produces;
// spec.md §9 says to "represent this as a deferred mutation list ...
// committed atomically at the block boundary" — the scenario engine is
// what actually commits it, once every condition in the block has passed.
type Capture struct {
	Name  string
	Value value.Value
}

// Result is the outcome of evaluating one condition.
type Result struct {
	Verdict Verdict
	Reason  string
	Capture *Capture
}

func pass(cap *Capture) Result   { return Result{Verdict: Pass, Capture: cap} }
func pending() Result            { return Result{Verdict: Pending} }
func fail(format string, a ...any) Result {
	return Result{Verdict: Fail, Reason: fmt.Sprintf(format, a...)}
}

// ServiceProbe abstracts the platform service-manager check so this package
// never imports the systemd/D-Bus backend directly (avoiding an import
// cycle with pkg/backend/system, which implements it).
type ServiceProbe interface {
	IsRunning(name string) (bool, error)
	IsInstalled(name string) (bool, error)
}

// PortProbe abstracts a TCP port reachability check.
type PortProbe interface {
	IsListening(port int) bool
}

// Probes bundles the live host probes System conditions need; both may be
// nil in contexts (e.g. `chor lint`) that never evaluate conditions.
type Probes struct {
	Service ServiceProbe
	Port    PortProbe
}

// Evaluate substitutes every argument of step's condition through the
// store and then evaluates it against snap. step must be a condition step.
func Evaluate(step ast.Step, snap world.Snapshot, probes Probes) Result {
	cond := step.Condition
	args, err := substituteArgs(snap.Store, cond.Args)
	if err != nil {
		return fail("%s", err.Error())
	}

	switch cond.Actor {
	case ast.ActorWait:
		return evalWait(cond.Verb, args, snap)
	case ast.ActorTest:
		return evalTest(cond.Verb, args, snap)
	case ast.ActorTerminal:
		return evalTerminal(cond, args, snap)
	case ast.ActorWeb:
		return evalWeb(cond, args, snap, step.IgnoreFields)
	case ast.ActorFileSystem:
		return evalFileSystem(cond.Verb, args)
	case ast.ActorSystem:
		return evalSystem(cond.Verb, args, probes)
	default:
		return fail("unknown actor %q", cond.Actor)
	}
}

func substituteArgs(store *value.Store, args []string) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		s, err := store.Substitute(a)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func parseDurationArg(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "ms") {
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "ms"), 64)
		if err != nil {
			return 0, err
		}
		return time.Duration(n * float64(time.Millisecond)), nil
	}
	if strings.HasSuffix(s, "s") {
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
		if err != nil {
			return 0, err
		}
		return time.Duration(n * float64(time.Second)), nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(n), nil
}

func evalWait(verb string, args []string, snap world.Snapshot) Result {
	if len(args) != 1 {
		return fail("wait requires exactly one duration argument")
	}
	d, err := parseDurationArg(args[0])
	if err != nil {
		return fail("invalid wait duration %q: %v", args[0], err)
	}
	elapsed := snap.Now.Sub(snap.BlockStart)
	switch verb {
	case "wait_ge":
		if elapsed >= d {
			return pass(nil)
		}
		return pending()
	case "wait_le":
		if elapsed <= d {
			return pass(nil)
		}
		return fail("wait <= %s exceeded (elapsed %s)", d, elapsed)
	default:
		return fail("unknown wait verb %q", verb)
	}
}

func evalTest(verb string, args []string, snap world.Snapshot) Result {
	switch verb {
	case "can_start":
		return pass(nil)
	case "has_succeeded":
		if len(args) != 1 {
			return fail("has_succeeded requires one test id argument")
		}
		if snap.Succeeded[args[0]] {
			return pass(nil)
		}
		return pending()
	default:
		return fail("unknown Test verb %q", verb)
	}
}

func evalTerminal(cond *ast.Condition, args []string, snap world.Snapshot) Result {
	t := snap.Terminal
	switch cond.Verb {
	case "last_command":
		if !t.Present {
			return pending()
		}
		if len(args) == 0 {
			return fail("last_command requires an argument")
		}
		switch args[0] {
		case "succeeded":
			if t.ExitCode == 0 {
				return pass(nil)
			}
			return fail("last command exited with code %d", t.ExitCode)
		case "failed":
			if t.ExitCode != 0 {
				return pass(nil)
			}
			return fail("last command succeeded (exit code 0)")
		case "exit_code_is":
			if len(args) != 2 {
				return fail("exit_code_is requires a code argument")
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fail("invalid exit code %q", args[1])
			}
			if t.ExitCode == n {
				return pass(nil)
			}
			return fail("expected exit code %d, got %d", n, t.ExitCode)
		default:
			return fail("unknown last_command predicate %q", args[0])
		}
	}

	switch cond.Verb {
	case "output_contains":
		if !t.Present || !t.Exited {
			return pending()
		}
		if strings.Contains(t.Combined, args[0]) {
			return pass(captureIf(cond, value.String(args[0])))
		}
		return fail("output does not contain %q", args[0])
	case "stderr_contains":
		if !t.Present || !t.Exited {
			return pending()
		}
		if strings.Contains(t.Stderr, args[0]) {
			return pass(captureIf(cond, value.String(args[0])))
		}
		return fail("stderr does not contain %q", args[0])
	case "output_starts_with":
		if !t.Present || !t.Exited {
			return pending()
		}
		if strings.HasPrefix(strings.TrimSpace(t.Combined), args[0]) {
			return pass(nil)
		}
		return fail("output does not start with %q", args[0])
	case "output_ends_with":
		if !t.Present || !t.Exited {
			return pending()
		}
		if strings.HasSuffix(strings.TrimSpace(t.Combined), args[0]) {
			return pass(nil)
		}
		return fail("output does not end with %q", args[0])
	case "output_equals":
		if !t.Present || !t.Exited {
			return pending()
		}
		if strings.TrimSpace(t.Combined) == args[0] {
			return pass(nil)
		}
		return fail("output %q does not equal %q", strings.TrimSpace(t.Combined), args[0])
	case "output_matches":
		if !t.Present {
			return pending()
		}
		re, err := regexp.Compile(args[0])
		if err != nil {
			return fail("invalid regex %q: %v", args[0], err)
		}
		m := re.FindStringSubmatch(t.Combined)
		if m == nil {
			return pending()
		}
		var cap *Capture
		if cond.HasAs {
			group := m[0]
			if len(m) > 1 {
				group = m[1]
			}
			cap = &Capture{Name: cond.As, Value: value.String(group)}
		}
		return pass(cap)
	case "output_is_valid_json":
		if !t.Present || !t.Exited {
			return pending()
		}
		var v any
		if err := json.Unmarshal([]byte(t.Combined), &v); err != nil {
			return fail("output is not valid JSON: %v", err)
		}
		return pass(nil)
	case "json_output":
		if !t.Present || !t.Exited {
			return pending()
		}
		if len(args) < 2 || args[0] != "has_path" {
			return fail("json_output supports has_path \"P\"")
		}
		var doc any
		if err := json.Unmarshal([]byte(t.Combined), &doc); err != nil {
			return fail("output is not valid JSON: %v", err)
		}
		if _, err := gojsonpointer.NewJsonPointer(args[1]); err != nil {
			return fail("invalid JSON pointer %q: %v", args[1], err)
		}
		ptr, _ := gojsonpointer.NewJsonPointer(args[1])
		if _, _, err := ptr.Get(doc); err != nil {
			return fail("path %q not found in output", args[1])
		}
		return pass(nil)
	default:
		return fail("unknown Terminal condition verb %q", cond.Verb)
	}
}

func captureIf(cond *ast.Condition, v value.Value) *Capture {
	if !cond.HasAs {
		return nil
	}
	return &Capture{Name: cond.As, Value: v}
}

func evalFileSystem(verb string, args []string) Result {
	switch verb {
	case "file_exists":
		if fsPathExists(args[0]) {
			return pass(nil)
		}
		return fail("file %q does not exist", args[0])
	case "file_does_not_exist":
		if !fsPathExists(args[0]) {
			return pass(nil)
		}
		return fail("file %q exists", args[0])
	case "dir_exists":
		if fsDirExists(args[0]) {
			return pass(nil)
		}
		return fail("directory %q does not exist", args[0])
	case "dir_does_not_exist":
		if !fsDirExists(args[0]) {
			return pass(nil)
		}
		return fail("directory %q exists", args[0])
	case "file_contains":
		if len(args) != 2 {
			return fail("file_contains requires a path and a substring")
		}
		contents, err := fsReadFile(args[0])
		if err != nil {
			return fail("cannot read %q: %v", args[0], err)
		}
		if strings.Contains(contents, args[1]) {
			return pass(nil)
		}
		return fail("file %q does not contain %q", args[0], args[1])
	case "file":
		if len(args) != 2 {
			return fail("file requires a path and is_empty|is_not_empty")
		}
		contents, err := fsReadFile(args[0])
		if err != nil {
			return fail("cannot read %q: %v", args[0], err)
		}
		empty := len(contents) == 0
		switch args[1] {
		case "is_empty":
			if empty {
				return pass(nil)
			}
			return fail("file %q is not empty", args[0])
		case "is_not_empty":
			if !empty {
				return pass(nil)
			}
			return fail("file %q is empty", args[0])
		default:
			return fail("unknown file predicate %q", args[1])
		}
	default:
		return fail("unknown FileSystem condition verb %q", verb)
	}
}

func evalSystem(verb string, args []string, probes Probes) Result {
	switch verb {
	case "port_is_listening":
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return fail("invalid port %q", args[0])
		}
		if probes.Port != nil && probes.Port.IsListening(port) {
			return pass(nil)
		}
		return fail("port %d is not listening", port)
	case "port_is_closed":
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return fail("invalid port %q", args[0])
		}
		if probes.Port == nil || !probes.Port.IsListening(port) {
			return pass(nil)
		}
		return fail("port %d is listening", port)
	case "service_is_running":
		if probes.Service == nil {
			return fail("no service probe configured")
		}
		running, err := probes.Service.IsRunning(args[0])
		if err != nil {
			return fail("service probe failed: %v", err)
		}
		if running {
			return pass(nil)
		}
		return fail("service %q is not running", args[0])
	case "service_is_stopped":
		if probes.Service == nil {
			return fail("no service probe configured")
		}
		running, err := probes.Service.IsRunning(args[0])
		if err != nil {
			return fail("service probe failed: %v", err)
		}
		if !running {
			return pass(nil)
		}
		return fail("service %q is running", args[0])
	case "service_is_installed":
		if probes.Service == nil {
			return fail("no service probe configured")
		}
		installed, err := probes.Service.IsInstalled(args[0])
		if err != nil {
			return fail("service probe failed: %v", err)
		}
		if installed {
			return pass(nil)
		}
		return fail("service %q is not installed", args[0])
	default:
		return fail("unknown System condition verb %q", verb)
	}
}

func evalWeb(cond *ast.Condition, args []string, snap world.Snapshot, ignoreFields []string) Result {
	r := snap.Response
	switch cond.Verb {
	case "response_status_is":
		if !r.Present {
			return fail("no HTTP response recorded yet")
		}
		switch {
		case len(args) == 1 && args[0] == "is_success":
			if r.Status >= 200 && r.Status < 300 {
				return pass(nil)
			}
			return fail("status %d is not a success status", r.Status)
		case len(args) == 1 && args[0] == "is_error":
			if r.Status >= 400 && r.Status < 600 {
				return pass(nil)
			}
			return fail("status %d is not an error status", r.Status)
		case len(args) == 2 && args[0] == "is_in":
			codes := strings.Split(strings.Trim(args[1], "[]"), ",")
			for _, c := range codes {
				n, err := strconv.Atoi(strings.TrimSpace(c))
				if err == nil && n == r.Status {
					return pass(nil)
				}
			}
			return fail("status %d not in %s", r.Status, args[1])
		default:
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fail("invalid status code %q", args[0])
			}
			if r.Status == n {
				return pass(nil)
			}
			return fail("expected status %d, got %d", n, r.Status)
		}
	case "response_time":
		if !r.Present {
			return fail("no HTTP response recorded yet")
		}
		if len(args) != 2 || args[0] != "is_below" {
			return fail("response_time supports is_below \"d\"")
		}
		d, err := parseDurationArg(args[1])
		if err != nil {
			return fail("invalid duration %q: %v", args[1], err)
		}
		if r.Elapsed < d {
			return pass(nil)
		}
		return fail("response time %s is not below %s", r.Elapsed, d)
	case "response_body_contains":
		if !r.Present {
			return fail("no HTTP response recorded yet")
		}
		if strings.Contains(string(r.Body), args[0]) {
			return pass(nil)
		}
		return fail("response body does not contain %q", args[0])
	case "response_body_matches":
		if !r.Present {
			return fail("no HTTP response recorded yet")
		}
		re, err := regexp.Compile(args[0])
		if err != nil {
			return fail("invalid regex %q: %v", args[0], err)
		}
		if re.MatchString(string(r.Body)) {
			return pass(nil)
		}
		return fail("response body does not match %q", args[0])
	case "response_body_equals_json":
		if !r.Present {
			return fail("no HTTP response recorded yet")
		}
		return compareStructuralJSON(args[0], string(r.Body), ignoreFields)
	case "response_matches_schema":
		if !r.Present {
			return fail("no HTTP response recorded yet")
		}
		return validateAgainstSchema(args[0], r.Body)
	case "json_body":
		if !r.Present {
			return fail("no HTTP response recorded yet")
		}
		if len(args) != 2 || args[0] != "has_path" {
			return fail("json_body supports has_path \"P\"")
		}
		return jsonHasPath(r.Body, args[1])
	case "json_path":
		if !r.Present {
			return fail("no HTTP response recorded yet")
		}
		return evalJSONPath(cond, args, r.Body)
	case "json_response":
		if !r.Present {
			return fail("no HTTP response recorded yet")
		}
		return evalJSONResponse(args, r.Body)
	default:
		return fail("unknown Web condition verb %q", cond.Verb)
	}
}

func jsonHasPath(body []byte, path string) Result {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fail("response body is not valid JSON: %v", err)
	}
	ptr, err := gojsonpointer.NewJsonPointer(path)
	if err != nil {
		return fail("invalid JSON pointer %q: %v", path, err)
	}
	if _, _, err := ptr.Get(doc); err != nil {
		return fail("path %q not found in response body", path)
	}
	return pass(nil)
}

func evalJSONPath(cond *ast.Condition, args []string, body []byte) Result {
	if len(args) < 2 || args[0] != "at" {
		return fail("json_path requires \"at\" \"P\" ...")
	}
	path := args[1]
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fail("response body is not valid JSON: %v", err)
	}
	ptr, err := gojsonpointer.NewJsonPointer(path)
	if err != nil {
		return fail("invalid JSON pointer %q: %v", path, err)
	}
	got, _, err := ptr.Get(doc)
	if err != nil {
		return fail("path %q not found in response body", path)
	}

	switch {
	case len(args) >= 4 && args[2] == "equals":
		want := args[3]
		if fmt.Sprintf("%v", got) == want {
			return pass(captureIf(cond, jsonToValue(got)))
		}
		return fail("path %q: expected %v, got %v", path, want, got)
	case cond.HasAs:
		return pass(&Capture{Name: cond.As, Value: jsonToValue(got)})
	default:
		return pass(nil)
	}
}

func evalJSONResponse(args []string, body []byte) Result {
	if len(args) < 2 || args[0] != "at" {
		return fail("json_response requires \"at\" \"P\" ...")
	}
	path, predicate := args[1], ""
	if len(args) >= 3 {
		predicate = args[2]
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fail("response body is not valid JSON: %v", err)
	}
	ptr, err := gojsonpointer.NewJsonPointer(path)
	if err != nil {
		return fail("invalid JSON pointer %q: %v", path, err)
	}
	got, _, err := ptr.Get(doc)
	if err != nil {
		return fail("path %q not found in response body", path)
	}
	switch predicate {
	case "is_a_string":
		if _, ok := got.(string); ok {
			return pass(nil)
		}
		return fail("path %q is not a string", path)
	case "is_a_number":
		if _, ok := got.(float64); ok {
			return pass(nil)
		}
		return fail("path %q is not a number", path)
	case "is_an_array":
		if _, ok := got.([]any); ok {
			return pass(nil)
		}
		return fail("path %q is not an array", path)
	case "is_an_object":
		if _, ok := got.(map[string]any); ok {
			return pass(nil)
		}
		return fail("path %q is not an object", path)
	case "has_size":
		if len(args) < 4 {
			return fail("has_size requires a size argument")
		}
		n, err := strconv.Atoi(args[3])
		if err != nil {
			return fail("invalid size %q", args[3])
		}
		size := -1
		switch v := got.(type) {
		case []any:
			size = len(v)
		case map[string]any:
			size = len(v)
		case string:
			size = len(v)
		}
		if size == n {
			return pass(nil)
		}
		return fail("path %q has size %d, expected %d", path, size, n)
	default:
		return fail("unknown json_response predicate %q", predicate)
	}
}

func jsonToValue(v any) value.Value {
	switch x := v.(type) {
	case string:
		return value.String(x)
	case float64:
		return value.Float(x)
	case bool:
		return value.Bool(x)
	default:
		b, _ := json.Marshal(x)
		return value.String(string(b))
	}
}

// compareStructuralJSON implements spec.md §4.2's "structural equality
// normalises object key order, compares arrays by index, numbers by
// numeric value, and may ignore a declared list of top-level field paths."
func compareStructuralJSON(expectedText, actualText string, ignoreFields []string) Result {
	var expected, actual any
	if err := json.Unmarshal([]byte(expectedText), &expected); err != nil {
		return fail("expected JSON is invalid: %v", err)
	}
	if err := json.Unmarshal([]byte(actualText), &actual); err != nil {
		return fail("response body is not valid JSON: %v", err)
	}
	if len(ignoreFields) > 0 {
		if em, ok := expected.(map[string]any); ok {
			for _, f := range ignoreFields {
				delete(em, f)
			}
		}
		if am, ok := actual.(map[string]any); ok {
			for _, f := range ignoreFields {
				delete(am, f)
			}
		}
	}
	if structuralEqual(expected, actual) {
		return pass(nil)
	}
	return fail("response body does not match expected JSON:\n%s",
		textdiff.Unified(canonicalJSON(expected), canonicalJSON(actual)))
}

func structuralEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !structuralEqual(v, bvv) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !structuralEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	default:
		return a == b
	}
}

func canonicalJSON(v any) string {
	b, _ := json.MarshalIndent(sortedCopy(v), "", "  ")
	return string(b)
}

// sortedCopy rebuilds maps with lexically sorted keys so MarshalIndent's
// output is deterministic for display purposes.
func sortedCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(x))
		for _, k := range keys {
			out[k] = sortedCopy(x[k])
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = sortedCopy(e)
		}
		return out
	default:
		return x
	}
}

func validateAgainstSchema(schemaRef string, body []byte) Result {
	var schemaLoader gojsonschema.JSONLoader
	trimmed := strings.TrimSpace(schemaRef)
	switch {
	case strings.HasPrefix(trimmed, "{"):
		schemaLoader = gojsonschema.NewStringLoader(schemaRef)
	case strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://"):
		schemaLoader = gojsonschema.NewReferenceLoader(schemaRef)
	default:
		schemaLoader = gojsonschema.NewReferenceLoader("file://" + schemaRef)
	}
	documentLoader := gojsonschema.NewBytesLoader(body)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fail("schema validation error: %v", err)
	}
	if result.Valid() {
		return pass(nil)
	}
	var msgs []string
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fail("response does not match schema: %s", strings.Join(msgs, "; "))
}
