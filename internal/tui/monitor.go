// Package tui renders a live view of a running mission with bubbletea.
//
// The mission runs on its own goroutine and publishes events into a Feed.
// The Monitor pulls one event per Update, folds it into a status.Tracker and
// renders the tracker's snapshot.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/cartographer/internal/logbook"
	"github.com/kingrea/cartographer/internal/mission"
	"github.com/kingrea/cartographer/internal/navigation"
	"github.com/kingrea/cartographer/internal/status"
)

const journalLines = 5

type eventMsg mission.Event

type feedClosedMsg struct{}

// Monitor is the bubbletea model for the live mission view.
type Monitor struct {
	feed    *Feed
	tracker *status.Tracker
	plan    mission.Plan
	journal *logbook.Logbook
	spinner spinner.Model

	width    int
	done     bool
	detached bool
}

// MonitorOption customizes Monitor construction.
type MonitorOption func(*Monitor)

// WithJournal shows the tail of the mission journal under the status panel.
func WithJournal(book *logbook.Logbook) MonitorOption {
	return func(m *Monitor) {
		m.journal = book
	}
}

// WithTracker shares a tracker with other consumers such as the status server.
func WithTracker(t *status.Tracker) MonitorOption {
	return func(m *Monitor) {
		if t != nil {
			m.tracker = t
		}
	}
}

// NewMonitor builds a monitor reading from feed.
func NewMonitor(feed *Feed, plan mission.Plan, opts ...MonitorOption) *Monitor {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	m := &Monitor{
		feed:    feed,
		tracker: status.NewTracker(),
		plan:    plan,
		spinner: s,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Done reports whether the mission finished while the monitor was attached.
func (m *Monitor) Done() bool {
	return m.done
}

// Detached reports whether the user left the monitor before completion.
func (m *Monitor) Detached() bool {
	return m.detached
}

// Init is called once when the program starts.
func (m *Monitor) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// Update is called when a message is received.
func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.done {
				m.detached = true
				m.feed.Detach()
			}
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		evt := mission.Event(msg)
		m.tracker.Observe(evt)
		if evt.Kind == mission.EventCompleted {
			m.done = true
			return m, tea.Quit
		}
		return m, m.waitForEvent()

	case feedClosedMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Monitor) waitForEvent() tea.Cmd {
	ch := m.feed.events()
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return eventMsg(evt)
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(12)
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DDDDDD"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5C07B"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1)
)

// View renders the current snapshot.
func (m *Monitor) View() string {
	snap := m.tracker.Snapshot()
	width := max(72, m.width-4)

	state := string(snap.State)
	if !m.done {
		state = m.spinner.View() + " " + state
	}
	rows := []string{
		row("run", orDash(snap.RunID)),
		row("state", state),
		row("phase", fmt.Sprintf("%d / %d", clampPhase(snap.Phase, m.plan.PhaseLimit), m.plan.PhaseLimit)),
		row("remaining", formatRemaining(snap.RemainingMS, m.plan.ThresholdMillis)),
		row("region", fmt.Sprint(snap.Region)),
		row("target", targetLabel(snap.Target)),
		row("visited", fmt.Sprint(snap.Visited)),
		row("marker", orDash(snap.Marker)),
	}
	if snap.StopReason != "" {
		rows = append(rows, row("stopped", snap.StopReason))
	}
	if snap.Error != "" {
		rows = append(rows, row("error", warnStyle.Render(snap.Error)))
	}
	sections := []string{
		titleStyle.Render("⌖ CARTOGRAPHER"),
		boxStyle.Width(width).Render(strings.Join(rows, "\n")),
	}
	if legs := renderLegs(snap.Legs); legs != "" {
		sections = append(sections, boxStyle.Width(width).Render(legs))
	}
	if journal := m.renderJournal(); journal != "" {
		sections = append(sections, boxStyle.Width(width).Render(journal))
	}
	footer := "q to detach (the mission keeps running)"
	if m.done {
		footer = "mission complete"
	}
	sections = append(sections, footerStyle.Render(footer))
	return strings.Join(sections, "\n")
}

func (m *Monitor) renderJournal() string {
	if m.journal == nil {
		return ""
	}
	lines, _ := m.journal.Tail(journalLines)
	if len(lines) == 0 {
		return ""
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("JOURNAL · %s", filepath.Base(m.journal.Path())))
	return head + "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Render(strings.Join(lines, "\n"))
}

func renderLegs(legs []navigation.Leg) string {
	if len(legs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(legs))
	for _, leg := range legs {
		line := fmt.Sprintf("%-8s → %d (target %d, %d attempt(s))", leg.Kind, leg.Waypoint, leg.Target, leg.Arrival.Attempts)
		if !leg.Arrival.Confirmed {
			line = warnStyle.Render(line + " unconfirmed")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func targetLabel(id int) string {
	if id == 0 {
		return "-"
	}
	return fmt.Sprint(id)
}

// clampPhase hides the one-past-the-end counter left after the last phase.
func clampPhase(phase, limit int) int {
	if limit > 0 && phase > limit {
		return limit
	}
	return phase
}

func formatRemaining(ms, threshold int64) string {
	text := fmt.Sprintf("%.1fs", float64(ms)/1000)
	if ms <= threshold {
		return warnStyle.Render(text + " (below threshold)")
	}
	return text
}
