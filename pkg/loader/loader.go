package loader

import (
	"time"

	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/value"
)

// EnvLookup abstracts the process environment so callers can inject a
// fake one in tests; production code passes os.LookupEnv.
type EnvLookup func(name string) (string, bool)

// Load consumes a parsed file and produces an immutable Plan, performing
// every step named in spec.md §4.1: invariant checks, foreach expansion,
// task inlining, env resolution, and background prefixing.
func Load(file *ast.File, lookupEnv EnvLookup) (*Plan, error) {
	declared := make(map[ast.Actor]bool, len(file.Actors))
	for _, a := range file.Actors {
		declared[ast.Actor(a)] = true
	}

	settings := DefaultSettings()
	applySettings(&settings, file.Settings)

	store := value.NewStore()
	for _, name := range file.Envs {
		v, ok := lookupEnv(name)
		if !ok {
			return nil, newErr(ErrMissingEnv, ast.Position{}, "required env variable %q is not set", name)
		}
		store.Set(name, value.String(v))
	}
	declaredNames := make(map[string]bool, len(file.Vars)+len(file.Envs))
	for _, name := range file.Envs {
		declaredNames[name] = true
	}
	listLens := make(map[string]int, len(file.Vars))
	for _, v := range file.Vars {
		store.Set(v.Name, literalValue(v.Lit))
		declaredNames[v.Name] = true
		if v.Lit.Kind == ast.LiteralList {
			listLens[v.Name] = len(v.Lit.List)
		}
	}

	tasks := make(map[string]ast.TaskDecl, len(file.Tasks))
	for _, t := range file.Tasks {
		tasks[t.Name] = t
	}

	background, err := inlineTasks(tasks, file.Background, nil)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Feature:      file.Feature,
		Actors:       declared,
		Settings:     settings,
		InitialStore: store,
	}

	for _, sd := range file.Scenarios {
		scenario, err := loadScenario(sd, tasks, background, store)
		if err != nil {
			return nil, err
		}
		for i := range scenario.Tests {
			if err := validateBlockKinds(scenario.Tests[i]); err != nil {
				return nil, err
			}
		}
		if err := validateUniqueIDs(scenario); err != nil {
			return nil, err
		}
		if err := validateTestRefs(scenario); err != nil {
			return nil, err
		}
		if err := validateActorsInScenario(declared, scenario); err != nil {
			return nil, err
		}
		for _, t := range scenario.Tests {
			if err := validateVariableRefs(declaredNames, t, value.ReferencedNames); err != nil {
				return nil, err
			}
			if err := validateStaticIndices(listLens, t); err != nil {
				return nil, err
			}
		}
		plan.Scenarios = append(plan.Scenarios, scenario)
	}

	return plan, nil
}

func loadScenario(sd ast.ScenarioDecl, tasks map[string]ast.TaskDecl, background []ast.Step, store *value.Store) (Scenario, error) {
	scenario := Scenario{Name: sd.Name, Parallel: sd.Parallel}
	backgroundUsed := false

	for _, item := range sd.Items {
		switch {
		case item.Test != nil:
			test, err := buildTest(*item.Test, tasks)
			if err != nil {
				return Scenario{}, err
			}
			if !backgroundUsed {
				test.Given = append(append([]ast.Step{}, background...), test.Given...)
				backgroundUsed = true
			}
			scenario.Tests = append(scenario.Tests, test)

		case item.Foreach != nil:
			listVal, ok := store.Get(item.Foreach.ListVar)
			if !ok {
				return Scenario{}, newErr(ErrUnknownVariable, item.Pos, "foreach list %q is not declared", item.Foreach.ListVar)
			}
			items, ok := listVal.AsList()
			if !ok {
				return Scenario{}, newErr(ErrUnknownVariable, item.Pos, "foreach list %q is not a list value", item.Foreach.ListVar)
			}
			strItems := make([]string, len(items))
			for i, v := range items {
				strItems[i] = v.AsString()
			}
			decls := expandForeach(*item.Foreach, strItems)
			for _, td := range decls {
				test, err := buildTest(td, tasks)
				if err != nil {
					return Scenario{}, err
				}
				if !backgroundUsed {
					test.Given = append(append([]ast.Step{}, background...), test.Given...)
					backgroundUsed = true
				}
				scenario.Tests = append(scenario.Tests, test)
			}

		case item.After != nil:
			after, err := inlineTasks(tasks, item.After, nil)
			if err != nil {
				return Scenario{}, err
			}
			scenario.After = append(scenario.After, after...)
		}
	}

	return scenario, nil
}

func buildTest(td ast.TestDecl, tasks map[string]ast.TaskDecl) (Test, error) {
	given, err := inlineTasks(tasks, td.Given, nil)
	if err != nil {
		return Test{}, err
	}
	when, err := inlineTasks(tasks, td.When, nil)
	if err != nil {
		return Test{}, err
	}
	then, err := inlineTasks(tasks, td.Then, nil)
	if err != nil {
		return Test{}, err
	}
	test := Test{ID: td.ID, Description: td.Description, Given: given, When: when, Then: then}
	test.DependsOn = dependsOn(test)
	return test, nil
}

func validateActorsInScenario(declared map[ast.Actor]bool, scenario Scenario) error {
	for _, t := range scenario.Tests {
		if err := validateActors(declared, t.Given); err != nil {
			return err
		}
		if err := validateActors(declared, t.When); err != nil {
			return err
		}
		if err := validateActors(declared, t.Then); err != nil {
			return err
		}
	}
	return validateActors(declared, scenario.After)
}

func applySettings(s *Settings, raw map[string]ast.SettingValue) {
	if v, ok := raw["timeout_seconds"]; ok {
		s.TimeoutSeconds = v.Number
	}
	if v, ok := raw["stop_on_failure"]; ok {
		s.StopOnFailure = v.Bool
	}
	if v, ok := raw["shell_path"]; ok {
		s.ShellPath = v.String
	}
	if v, ok := raw["report_path"]; ok {
		s.ReportPath = v.String
	}
	if v, ok := raw["expected_failures"]; ok {
		s.ExpectedFailures = int(v.Number)
	}
	if v, ok := raw["openapi_ref"]; ok {
		s.OpenAPIRef = v.String
	}
}

func literalValue(lit ast.Literal) value.Value {
	switch lit.Kind {
	case ast.LiteralString:
		return value.String(lit.Str)
	case ast.LiteralNumber:
		if lit.IsInt {
			return value.Int(int64(lit.Num))
		}
		return value.Float(lit.Num)
	case ast.LiteralBool:
		return value.Bool(lit.Bool)
	case ast.LiteralDuration:
		d := lit.Duration
		if lit.Unit == "ms" {
			return value.Dur(time.Duration(d * float64(time.Millisecond)))
		}
		return value.Dur(time.Duration(d * float64(time.Second)))
	case ast.LiteralList:
		items := make([]value.Value, len(lit.List))
		for i, s := range lit.List {
			items[i] = value.String(s)
		}
		return value.List(items)
	default:
		return value.String("")
	}
}
