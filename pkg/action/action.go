// Package action dispatches Action steps (spec.md §4.3) to the backend that
// performs their side effect: Terminal, Web, FileSystem, or System. Unlike
// pkg/condition, actions have no Pending state — they either complete and
// may capture a result, or fail outright.
package action

import (
	"fmt"

	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/backend/filesystem"
	"github.com/chorbdd/chor/pkg/backend/system"
	"github.com/chorbdd/chor/pkg/backend/terminal"
	"github.com/chorbdd/chor/pkg/backend/web"
	"github.com/chorbdd/chor/pkg/value"
	"github.com/chorbdd/chor/pkg/world"
)

// Backends bundles the four side-effecting backends an action may dispatch
// to. Nil fields are valid when a suite never declares the corresponding
// actor; dispatch to a nil backend is a defect caught earlier by the
// loader's actor-declaration check, not something this package re-checks.
type Backends struct {
	Terminal   *terminal.Backend
	Web        *web.Backend
	FileSystem *filesystem.Backend
	System     *system.Backend
}

// Capture is the deferred `as NAME` mutation an action produces, mirroring
// pkg/condition.Capture so the engine can commit both kinds the same way.
type Capture struct {
	Name  string
	Value value.Value
}

// Result is the outcome of running one action.
type Result struct {
	Err     error
	Capture *Capture
}

// Run substitutes step's Action arguments through the store and dispatches
// to the backend matching its actor, recording side effects onto w.
func Run(step ast.Step, w *world.World, backends Backends) Result {
	act := step.Action
	args, err := substituteArgs(w.Store, act.Args)
	if err != nil {
		return Result{Err: err}
	}

	switch act.Actor {
	case ast.ActorTerminal:
		return runTerminal(act, args, w, backends.Terminal)
	case ast.ActorWeb:
		return runWeb(act, args, w, backends.Web)
	case ast.ActorFileSystem:
		return runFileSystem(act, args, backends.FileSystem)
	case ast.ActorSystem:
		return runSystem(act, args, backends.System)
	default:
		return Result{Err: fmt.Errorf("unknown actor %q", act.Actor)}
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

func captureIf(act *ast.Action, v value.Value) *Capture {
	if !act.HasAs {
		return nil
	}
	return &Capture{Name: act.As, Value: v}
}

func runTerminal(act *ast.Action, args []string, w *world.World, be *terminal.Backend) Result {
	switch act.Verb {
	case "run":
		if len(args) == 0 {
			return Result{Err: fmt.Errorf("run requires a command argument")}
		}
		outcome, err := be.Run(args[0])
		if err != nil {
			return Result{Err: err}
		}
		w.SetTerminal(outcome)
		return Result{Capture: captureIf(act, value.String(outcome.Combined))}
	default:
		return Result{Err: fmt.Errorf("unknown Terminal action verb %q", act.Verb)}
	}
}

func runFileSystem(act *ast.Action, args []string, be *filesystem.Backend) Result {
	switch act.Verb {
	case "create_dir":
		return Result{Err: be.CreateDir(args[0])}
	case "create_file":
		content := ""
		if len(args) > 1 {
			content = args[1]
		}
		return Result{Err: be.CreateFile(args[0], content)}
	case "delete_dir":
		return Result{Err: be.DeleteDir(args[0])}
	case "delete_file":
		return Result{Err: be.DeleteFile(args[0])}
	case "read_file":
		contents, err := be.ReadFile(args[0])
		if err != nil {
			return Result{Err: err}
		}
		return Result{Capture: captureIf(act, value.String(contents))}
	default:
		return Result{Err: fmt.Errorf("unknown FileSystem action verb %q", act.Verb)}
	}
}

func runSystem(act *ast.Action, args []string, be *system.Backend) Result {
	switch act.Verb {
	case "pause":
		return Result{Err: be.Pause(args[0])}
	case "log":
		be.Log(args[0])
		return Result{}
	case "uuid":
		id := be.UUID()
		return Result{Capture: captureIf(act, value.String(id))}
	case "timestamp":
		ts := be.Timestamp()
		return Result{Capture: captureIf(act, value.String(ts))}
	default:
		return Result{Err: fmt.Errorf("unknown System action verb %q", act.Verb)}
	}
}

func runWeb(act *ast.Action, args []string, w *world.World, be *web.Backend) Result {
	switch act.Verb {
	case "set_header":
		if len(args) != 2 {
			return Result{Err: fmt.Errorf("set_header requires a name and a value")}
		}
		w.SetHeader(args[0], args[1])
		return Result{}
	case "clear_header":
		w.ClearHeader(args[0])
		return Result{}
	case "set_cookie":
		if len(args) != 2 {
			return Result{Err: fmt.Errorf("set_cookie requires a name and a value")}
		}
		w.SetCookie(args[0], args[1])
		return Result{}
	case "clear_cookie":
		w.ClearCookie(args[0])
		return Result{}
	case "http_get", "http_post", "http_put", "http_patch", "http_delete":
		return runHTTP(act, args, w, be)
	case "oauth2_client_credentials":
		return runOAuth2ClientCredentials(act, args, w)
	default:
		return Result{Err: fmt.Errorf("unknown Web action verb %q", act.Verb)}
	}
}

func runHTTP(act *ast.Action, args []string, w *world.World, be *web.Backend) Result {
	if len(args) == 0 {
		return Result{Err: fmt.Errorf("%s requires a URL argument", act.Verb)}
	}
	method := web.MethodFor(act.Verb)
	body := ""
	if len(args) > 1 {
		body = args[1]
	}
	resp, err := be.Do(method, args[0], body, w.HeadersCopy(), w.CookiesCopy())
	if err != nil {
		return Result{Err: err}
	}
	w.SetResponse(resp)
	return Result{Capture: captureIf(act, value.String(string(resp.Body)))}
}

func runOAuth2ClientCredentials(act *ast.Action, args []string, w *world.World) Result {
	if len(args) < 3 {
		return Result{Err: fmt.Errorf("oauth2_client_credentials requires token_url, client_id, client_secret")}
	}
	tokenURL, clientID, clientSecret := args[0], args[1], args[2]
	var scopes []string
	if len(args) > 3 {
		scopes = args[3:]
	}
	token, err := web.ClientCredentialsToken(tokenURL, clientID, clientSecret, scopes)
	if err != nil {
		return Result{Err: err}
	}
	w.SetHeader("Authorization", "Bearer "+token)
	return Result{Capture: captureIf(act, value.String(token))}
}
