// Package watch implements the live `chor run --watch` view: a bubbletea
// program that redraws every scenario's test states each tick, fed by
// engine.RunPlanWithProgress's OnTick callback. Grounded on the teacher's
// pkg/tui/init.go/app.go bubbletea wiring (spinner.New with a custom style,
// a harmonica.NewSpring advanced on every spinner tick but not drawn,
// tea.Program driving a model
// that redraws a bordered lipgloss box), adapted from Falcon's chat
// transcript view to a scenario/test progress grid.
package watch

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/chorbdd/chor/pkg/engine"
	"github.com/chorbdd/chor/pkg/loader"
)

var (
	passedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a")).Bold(true)
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e")).Bold(true)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c6c6c"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
)

type tickMsg struct {
	scenario string
	tests    []engine.TestSnapshot
}

type doneMsg struct {
	result engine.SuiteResult
	err    error
}

type model struct {
	plan     *loader.Plan
	spin     spinner.Model
	spring   harmonica.Spring
	pos, vel float64

	byScenario map[string][]engine.TestSnapshot
	order      []string
	finished   bool
	result     engine.SuiteResult
	err        error
}

// Run drives plan to completion with a live redraw after every tick,
// returning the same SuiteResult a plain `chor run` would produce.
func Run(ctx context.Context, plan *loader.Plan) (engine.SuiteResult, error) {
	m := newModel(plan)
	p := tea.NewProgram(m)

	go m.execute(ctx, p)

	final, err := p.Run()
	if err != nil {
		return engine.SuiteResult{}, fmt.Errorf("watch: %w", err)
	}
	fm := final.(model)
	return fm.result, fm.err
}

func newModel(plan *loader.Plan) model {
	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = activeStyle
	return model{
		plan:       plan,
		spin:       sp,
		spring:     harmonica.NewSpring(harmonica.FPS(30), 5.0, 0.3),
		byScenario: make(map[string][]engine.TestSnapshot),
	}
}

func (m model) execute(ctx context.Context, p *tea.Program) {
	onTick := func(scenario string, snap []engine.TestSnapshot) {
		cp := make([]engine.TestSnapshot, len(snap))
		copy(cp, snap)
		p.Send(tickMsg{scenario: scenario, tests: cp})
	}
	result, err := engine.RunPlanWithProgress(ctx, m.plan, onTick)
	p.Send(doneMsg{result: result, err: err})
}

func (m model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tickMsg:
		if _, ok := m.byScenario[msg.scenario]; !ok {
			m.order = append(m.order, msg.scenario)
		}
		m.byScenario[msg.scenario] = msg.tests
		return m, nil
	case doneMsg:
		m.finished = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		m.pos, m.vel = m.spring.Update(m.pos, m.vel, 1.0)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	names := append([]string(nil), m.order...)
	sort.Strings(names)

	s := fmt.Sprintf("chor run --watch  %s\n\n", m.spin.View())
	for _, name := range names {
		s += fmt.Sprintf("%s\n", activeStyle.Render(name))
		for _, tr := range m.byScenario[name] {
			s += fmt.Sprintf("  %s %s\n", glyph(tr.State), tr.ID)
		}
	}
	if m.finished {
		s += dimStyle.Render("\nfinished, writing report...")
	}
	return boxStyle.Render(s)
}

func glyph(state string) string {
	switch state {
	case "passed":
		return passedStyle.Render("✓")
	case "failed", "timed_out":
		return failedStyle.Render("✗")
	case "skipped":
		return dimStyle.Render("-")
	default:
		return activeStyle.Render("…")
	}
}
