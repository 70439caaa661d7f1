// Package tui renders a live terminal view of a running fit: the cost
// trajectory as it descends, the latest gradient norm, and the terminal
// status once the estimator stops.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ebmfit/internal/estimate"
)

const graphCapacity = 200

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type recordMsg estimate.Record

type doneMsg struct {
	result *estimate.Result
	err    error
}

type chanObserver struct {
	records chan estimate.Record
}

func (o chanObserver) OnIteration(r estimate.Record) { o.records <- r }

// Model is the bubbletea state for a single watched fit.
type Model struct {
	records chan estimate.Record
	done    chan doneMsg
	cancel  context.CancelFunc

	latest   estimate.Record
	costs    []float64
	result   *estimate.Result
	err      error
	finished bool
}

func newModel(records chan estimate.Record, done chan doneMsg, cancel context.CancelFunc) Model {
	return Model{
		records: records,
		done:    done,
		cancel:  cancel,
		costs:   make([]float64, 0, graphCapacity),
	}
}

func (m Model) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case r := <-m.records:
			return recordMsg(r)
		case d := <-m.done:
			return d
		}
	}
}

func (m Model) Init() tea.Cmd { return m.wait() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, nil // doneMsg follows once the estimator unwinds
		}
	case recordMsg:
		m.latest = estimate.Record(msg)
		if !math.IsNaN(msg.Cost) && !math.IsInf(msg.Cost, 0) {
			m.costs = append(m.costs, msg.Cost)
			if len(m.costs) > graphCapacity {
				m.costs = m.costs[1:]
			}
		}
		return m, m.wait()
	case doneMsg:
		m.result = msg.result
		m.err = msg.err
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("ebmfit: fitting albedo and emissivity"))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	row("iteration", fmt.Sprintf("%d", m.latest.Iteration))
	row("cost", fmt.Sprintf("%.6f", m.latest.Cost))
	row("grad norm", fmt.Sprintf("%.6f", m.latest.GradNorm))
	if m.finished && m.result != nil {
		row("status", m.result.Status.String())
	}

	if len(m.costs) > 1 {
		graph := asciigraph.Plot(m.costs,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption("cost per iteration"),
		)
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("q: stop"))
	b.WriteString("\n")
	return b.String()
}

// Watch runs the estimator while rendering its progress, and returns the
// fit result once the estimator reaches a terminal state or the user stops
// it.
func Watch(ctx context.Context, est *estimate.Estimator, initial []float64) (*estimate.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make(chan estimate.Record, 256)
	done := make(chan doneMsg, 1)
	est.AddObserver(chanObserver{records: records})

	go func() {
		result, err := est.Run(ctx, initial)
		done <- doneMsg{result: result, err: err}
	}()

	final, err := tea.NewProgram(newModel(records, done, cancel)).Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(Model)
	if !ok || !m.finished {
		return nil, fmt.Errorf("watch ended before the fit finished")
	}
	return m.result, m.err
}
