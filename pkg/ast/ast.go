// Package ast holds the typed syntax tree produced by the parser (pkg/parser)
// and consumed by the loader (pkg/loader). Nodes are plain data: no
// behaviour lives here, matching spec.md §3's description of the plan as
// "immutable after loading."
package ast

// Position locates a token in the source text for diagnostics.
type Position struct {
	Line, Column int
}

func (p Position) String() string {
	return itoa(p.Line) + ":" + itoa(p.Column)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Actor is the declared subsystem facet a step acts against.
type Actor string

const (
	ActorTerminal   Actor = "Terminal"
	ActorWeb        Actor = "Web"
	ActorFileSystem Actor = "FileSystem"
	ActorSystem     Actor = "System"
	ActorTest       Actor = "Test" // pseudo-actor, dependency predicates only
	ActorWait       Actor = "__wait__" // pseudo-actor for the bare `wait >= d` / `wait <= d` condition
)

// File is the raw parse result: a flat sequence of top-level declarations in
// source order, before the loader assembles them into a TestSuite.
type File struct {
	Pos       Position
	Feature   string
	Actors    []string
	Settings  map[string]SettingValue
	Envs      []string
	Vars      []VarDecl
	Tasks     []TaskDecl
	Scenarios []ScenarioDecl
	Background []Step
}

// SettingValue is a raw settings RHS as written in source (number, bool, or
// string); the loader/config package converts these into typed settings.
type SettingValue struct {
	Pos    Position
	String string
	Number float64
	Bool   bool
	Kind   SettingKind
}

type SettingKind int

const (
	SettingString SettingKind = iota
	SettingNumber
	SettingBool
)

// VarDecl is a `var NAME = <literal>` declaration.
type VarDecl struct {
	Pos  Position
	Name string
	Lit  Literal
}

// Literal is a source-level literal: string, number, bool, duration, or a
// string-only array (spec.md §9 open question: "array literals ... treat as
// string-only unless extended").
type Literal struct {
	Pos      Position
	Kind     LiteralKind
	Str      string
	Num      float64
	IsInt    bool
	Bool     bool
	Duration float64 // value in the declared unit; Unit disambiguates
	Unit     string   // "s" or "ms"
	List     []string
}

type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBool
	LiteralDuration
	LiteralList
)

// TaskDecl is a `task NAME(params) { steps }` declaration.
type TaskDecl struct {
	Pos    Position
	Name   string
	Params []string
	Body   []Step
}

// ScenarioDecl is a parsed `[parallel] scenario "name" { ... }` block.
type ScenarioDecl struct {
	Pos      Position
	Name     string
	Parallel bool
	Items    []ScenarioItem
}

// ScenarioItem is either a test, a foreach block, or the after block; a
// scenario's children are parsed as a sequence so that loaders can walk
// them in source order for foreach expansion.
type ScenarioItem struct {
	Pos     Position
	Test    *TestDecl
	Foreach *ForeachDecl
	After   []Step // non-nil only for the `after { }` item
}

// ForeachDecl is `foreach LOOPVAR in ${LIST} { test ... }`.
type ForeachDecl struct {
	Pos     Position
	LoopVar string
	ListVar string
	Test    TestDecl
}

// TestDecl is a parsed `test ID "description" { given: when: then: }` block.
type TestDecl struct {
	Pos         Position
	ID          string
	Description string
	Given       []Step
	When        []Step
	Then        []Step
}

// StepKind distinguishes an action step from a condition step, and a third
// "task call" kind that the loader inlines away before the runner ever sees
// it (spec.md §4.1 "task inlining").
type StepKind int

const (
	StepAction StepKind = iota
	StepCondition
	StepTaskCall
)

// Step is either an Action or a Condition (or, pre-inlining, a TaskCall).
type Step struct {
	Pos       Position
	Kind      StepKind
	Action    *Action
	Condition *Condition
	TaskCall  *TaskCall

	// IgnoreFields annotates the immediately preceding condition with a
	// side-channel list used by response_body_equals_json's ignore_fields
	// clause (spec.md §3 "ignore_fields side-channel").
	IgnoreFields []string
}

// TaskCall is `taskName(arg1, arg2, ...)` appearing as a step.
type TaskCall struct {
	Pos  Position
	Name string
	Args []string
}

// Action is a side-effecting step: Actor.Verb with positional string/literal
// arguments and an optional `as NAME` capture target.
type Action struct {
	Pos    Position
	Actor  Actor
	Verb   string
	Args   []string
	As     string
	HasAs  bool
}

// Condition is a predicate step: Actor.Verb with arguments, an optional
// `as NAME` capture, and an optional ignore_fields clause (carried via the
// enclosing Step for conditions that use it).
type Condition struct {
	Pos   Position
	Actor Actor
	Verb  string
	Args  []string
	As    string
	HasAs bool
}
