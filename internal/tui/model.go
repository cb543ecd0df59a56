// Package tui is the interactive dashboard: one console pane per instance
// laid out in a grid, with key bindings to start, stop and resize the run.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/Mizogg/GUI-keyhunt/internal/config"
	"github.com/Mizogg/GUI-keyhunt/internal/findings"
	"github.com/Mizogg/GUI-keyhunt/internal/keyspace"
	"github.com/Mizogg/GUI-keyhunt/internal/supervisor"
)

// RefreshInterval is how often panes are redrawn while output streams in.
const RefreshInterval = 200 * time.Millisecond

const (
	defaultWidth  = 120
	defaultHeight = 40
)

// Controller is the part of the supervisor the dashboard drives.
type Controller interface {
	StartAll(ctx context.Context, cfg config.Search, total keyspace.Range) (supervisor.RunInfo, error)
	StopAll(ctx context.Context) error
	Relayout(ctx context.Context, n int) error
	Snapshot() []supervisor.InstanceStatus
}

type tickMsg time.Time

type startedMsg struct {
	info supervisor.RunInfo
	err  error
}

type stoppedMsg struct{ err error }

type relayoutMsg struct {
	n   int
	err error
}

type quitMsg struct{ err error }

// FoundMsg announces that the found-key file was written.
type FoundMsg struct {
	Report findings.Report
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	ctx      context.Context
	ctrl     Controller
	consoles *Consoles
	search   config.Search
	total    keyspace.Range
	logger   *zap.Logger

	keys keyMap
	help help.Model

	width  int
	height int

	snapshot []supervisor.InstanceStatus
	status   string
	err      error
	found    string
	busy     bool
	quitting bool
}

// New creates the dashboard model. consoles must be the sink factory the
// controller was created with.
func New(ctx context.Context, ctrl Controller, consoles *Consoles, search config.Search, total keyspace.Range, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		consoles: consoles,
		search:   search,
		total:    total,
		logger:   logger,
		keys:     defaultKeyMap(),
		help:     help.New(),
		snapshot: ctrl.Snapshot(),
		status:   "Ready",
	}
}

// Init starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.snapshot = m.ctrl.Snapshot()
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case startedMsg:
		m.busy = false
		m.snapshot = m.ctrl.Snapshot()
		if msg.err != nil {
			m.setError("Start failed", msg.err)
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Started %d/%d instances", msg.info.Spawned, len(msg.info.Ranges))
		return m, nil

	case stoppedMsg:
		m.busy = false
		m.snapshot = m.ctrl.Snapshot()
		if msg.err != nil {
			m.setError("Stop reported errors", msg.err)
			return m, nil
		}
		m.err = nil
		m.status = "Stopped"
		return m, nil

	case relayoutMsg:
		m.busy = false
		m.snapshot = m.ctrl.Snapshot()
		if msg.err != nil {
			m.setError("Relayout reported errors", msg.err)
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Layout set to %d instances", msg.n)
		return m, nil

	case quitMsg:
		if msg.err != nil {
			m.logger.Warn("Stop on quit reported errors", zap.Error(msg.err))
		}
		return m, tea.Quit

	case FoundMsg:
		m.found = msg.Report.Path
		m.consoles.Broadcast("KEY FOUND: see " + msg.Report.Path)
		m.logger.Warn("Found file written", zap.String("path", msg.Report.Path))
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.status = "Stopping workers..."
		return m, m.quitCmd()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.consoles.Clear()
		m.status = "Consoles cleared"
		return m, nil

	case key.Matches(msg, m.keys.Threshold):
		next := config.NextThreshold(m.consoles.Threshold())
		m.consoles.SetThreshold(next)
		m.status = fmt.Sprintf("Console retention set to %d lines", next)
		return m, nil
	}

	if m.busy {
		m.status = "Busy, please wait"
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Start):
		m.busy = true
		m.status = "Starting..."
		return m, m.startCmd()

	case key.Matches(msg, m.keys.Stop):
		m.busy = true
		m.status = "Stopping..."
		return m, m.stopCmd()

	case key.Matches(msg, m.keys.Layout):
		n, err := strconv.Atoi(msg.String())
		if err != nil || !config.ValidInstanceCount(n) {
			return m, nil
		}
		m.busy = true
		m.status = fmt.Sprintf("Switching to %d instances...", n)
		return m, m.relayoutCmd(n)
	}
	return m, nil
}

func (m *Model) setError(what string, err error) {
	m.err = err
	m.status = what
	m.logger.Warn(what, zap.Error(err))
}

func (m Model) startCmd() tea.Cmd {
	ctx, ctrl, search, total := m.ctx, m.ctrl, m.search, m.total
	return func() tea.Msg {
		info, err := ctrl.StartAll(ctx, search, total)
		return startedMsg{info: info, err: err}
	}
}

func (m Model) stopCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return stoppedMsg{err: ctrl.StopAll(ctx)}
	}
}

func (m Model) relayoutCmd(n int) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return relayoutMsg{n: n, err: ctrl.Relayout(ctx, n)}
	}
}

func (m Model) quitCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return quitMsg{err: ctrl.StopAll(ctx)}
	}
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return statusStyle.Render(m.status) + "\n"
	}

	width, height := m.width, m.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	header := m.renderHeader()
	footer := m.renderStatus() + "\n" + m.help.View(m.keys)
	gridHeight := height - lipgloss.Height(header) - lipgloss.Height(footer)

	return lipgloss.JoinVertical(lipgloss.Left, header, m.renderGrid(width, gridHeight), footer)
}

func (m Model) renderHeader() string {
	running := 0
	for _, st := range m.snapshot {
		if st.State.Live() {
			running++
		}
	}
	title := titleStyle.Render("keyhunter")
	detail := statusStyle.Render(fmt.Sprintf(" %s/%s  range %s  %d/%d running  retention %d",
		m.search.Mode, m.search.Crypto, m.total, running, len(m.snapshot), m.consoles.Threshold()))
	return title + detail
}

func (m Model) renderStatus() string {
	line := statusStyle.Render(m.status)
	if m.err != nil {
		line += " " + errorStyle.Render(m.err.Error())
	}
	if m.found != "" {
		line += " " + errorStyle.Bold(true).Render("KEY FOUND: "+m.found)
	}
	return line
}

func (m Model) renderGrid(width, height int) string {
	bufs := m.consoles.Buffers()
	n := len(bufs)
	if n == 0 {
		return ""
	}
	rows, cols := GridShape(n)

	paneWidth := max(width/cols, 12)
	paneHeight := max(height/rows, 4)
	// Border takes two columns and two rows; padding two more columns.
	innerWidth := paneWidth - 4
	innerLines := paneHeight - 3

	var rendered []string
	for r := 0; r < rows; r++ {
		var row []string
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if i >= n {
				break
			}
			var lines []string
			// Nil while a relayout is still creating the new set.
			if bufs[i] != nil {
				lines = bufs[i].Tail(innerLines)
			}
			row = append(row, m.renderPane(i, lines, n, innerWidth, innerLines))
		}
		rendered = append(rendered, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

func (m Model) renderPane(i int, lines []string, count, width, height int) string {
	header := fmt.Sprintf("Instance %d/%d", i+1, count)
	state := supervisor.StateEmpty
	if i < len(m.snapshot) {
		st := m.snapshot[i]
		state = st.State
		if st.Range != "" {
			header += "  " + st.Range
		}
	}
	header = paneHeaderStyle.Render(truncate(header, width)) + " " + stateStyle(state).Render(state.String())

	body := make([]string, 0, height)
	for _, l := range lines {
		body = append(body, truncate(l, width))
	}
	for len(body) < height {
		body = append(body, "")
	}

	return paneStyle.
		Width(width + 2).
		Render(header + "\n" + strings.Join(body, "\n"))
}

// GridShape returns the rows and columns used for n panes.
func GridShape(n int) (rows, cols int) {
	if n <= 2 {
		return 1, max(n, 1)
	}
	return 2, (n + 1) / 2
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width])
}
