package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	appbuild "github.com/wippyai/wasm-appbuild"
	"github.com/wippyai/wasm-appbuild/build"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type stepState int

const (
	stepPending stepState = iota
	stepRunning
	stepDone
	stepFailed
)

type stepStatus struct {
	step    build.Step
	state   stepState
	elapsed time.Duration
	err     error
}

type stepDoneMsg struct {
	index   int
	elapsed time.Duration
	err     error
}

type monitorModel struct {
	app     *appbuild.Application
	builder *build.Builder
	bctx    *build.Context

	spinner  spinner.Model
	steps    []stepStatus
	current  int
	finished bool
	failures error
}

func newMonitorModel(app *appbuild.Application, builder *build.Builder, selected []build.Step) *monitorModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	steps := make([]stepStatus, len(selected))
	for i, s := range selected {
		steps[i] = stepStatus{step: s}
	}
	return &monitorModel{
		app:     app,
		builder: builder,
		bctx:    build.NewContext(context.Background(), zap.NewNop()),
		spinner: sp,
		steps:   steps,
	}
}

func (m *monitorModel) Init() tea.Cmd {
	m.steps[0].state = stepRunning
	return tea.Batch(m.spinner.Tick, m.runStep(0))
}

func (m *monitorModel) runStep(idx int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		err := m.builder.RunStep(m.bctx, m.steps[idx].step)
		return stepDoneMsg{index: idx, elapsed: time.Since(start), err: err}
	}
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if m.finished {
				return m, tea.Quit
			}
		}

	case stepDoneMsg:
		st := &m.steps[msg.index]
		st.elapsed = msg.elapsed
		if msg.err != nil {
			st.state = stepFailed
			st.err = msg.err
			m.finish()
			return m, nil
		}
		st.state = stepDone
		m.current = msg.index + 1
		if m.current >= len(m.steps) {
			m.finish()
			return m, nil
		}
		m.steps[m.current].state = stepRunning
		return m, m.runStep(m.current)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *monitorModel) finish() {
	m.finished = true
	m.failures = m.builder.Failures()
}

func (m *monitorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("appbuild"))
	b.WriteString(" ")
	b.WriteString(m.app.Name)
	b.WriteString("\n\n")

	for _, st := range m.steps {
		switch st.state {
		case stepPending:
			b.WriteString("  " + dimStyle.Render(string(st.step)))
		case stepRunning:
			b.WriteString(m.spinner.View() + stepStyle.Render(string(st.step)))
		case stepDone:
			b.WriteString(okStyle.Render("✓ ") + string(st.step))
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %s", st.elapsed.Round(time.Millisecond))))
		case stepFailed:
			b.WriteString(failStyle.Render("✗ " + string(st.step)))
		}
		b.WriteString("\n")
		if st.err != nil {
			b.WriteString(failStyle.Render("  " + st.err.Error()))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case !m.finished:
		b.WriteString(dimStyle.Render("q quit"))
	case m.failures != nil || m.stepError() != nil:
		b.WriteString(failStyle.Render("build failed"))
		if m.failures != nil {
			b.WriteString("\n")
			b.WriteString(failStyle.Render(m.failures.Error()))
		}
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("enter/q quit"))
	default:
		b.WriteString(okStyle.Render("build succeeded"))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("enter/q quit"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m *monitorModel) stepError() error {
	for _, st := range m.steps {
		if st.err != nil {
			return st.err
		}
	}
	return nil
}

func runInteractive(app *appbuild.Application, layout appbuild.Layout, opts build.Options) error {
	builder, err := build.New(app, layout, opts)
	if err != nil {
		return err
	}

	// Pipeline order, not flag order.
	var selected []build.Step
	for _, step := range build.Steps() {
		if len(opts.Steps) == 0 {
			selected = append(selected, step)
			continue
		}
		for _, s := range opts.Steps {
			if s == step {
				selected = append(selected, step)
				break
			}
		}
	}

	model := newMonitorModel(app, builder, selected)
	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}

	m := final.(*monitorModel)
	if err := m.stepError(); err != nil {
		return err
	}
	return m.failures
}
