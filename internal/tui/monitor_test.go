package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/cartographer/internal/logbook"
	"github.com/kingrea/cartographer/internal/mission"
	"github.com/kingrea/cartographer/internal/navigation"
)

var testPlan = mission.Plan{MarkerTarget: 4, MarkerWaypoint: 7, Goal: 8, ThresholdMillis: 80000, PhaseLimit: 3}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestMonitorFoldsEventsFromFeed(t *testing.T) {
	feed := NewFeed(4)
	m := NewMonitor(feed, testPlan)
	feed.Observe(mission.Event{RunID: "run-1", Kind: mission.EventTargetSelected, State: mission.StatePhasing, Phase: 1, Target: 3, Remaining: 250000})

	msg := m.waitForEvent()()
	if _, ok := msg.(eventMsg); !ok {
		t.Fatalf("expected eventMsg, got %T", msg)
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatalf("expected monitor to keep listening")
	}
	view := m.View()
	for _, want := range []string{"CARTOGRAPHER", "run-1", "phasing", "1 / 3", "250.0s", "q to detach"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestMonitorQuitsOnCompletion(t *testing.T) {
	feed := NewFeed(1)
	m := NewMonitor(feed, testPlan)
	leg := navigation.Leg{Waypoint: 5, Target: 4, Kind: navigation.LegApproach, Arrival: navigation.Arrival{Attempts: 10}}
	m.Update(eventMsg(mission.Event{Kind: mission.EventLeg, State: mission.StatePhasing, Remaining: 70000, Leg: &leg}))
	if view := m.View(); !strings.Contains(view, "unconfirmed") || !strings.Contains(view, "below threshold") {
		t.Fatalf("expected warnings in view:\n%s", view)
	}
	_, cmd := m.Update(eventMsg(mission.Event{Kind: mission.EventCompleted, State: mission.StateComplete, Visited: []int{4}, Marker: "QR"}))
	if !isQuit(cmd) {
		t.Fatalf("expected quit after completion")
	}
	if !m.Done() || m.Detached() {
		t.Fatalf("expected done and attached")
	}
	if view := m.View(); !strings.Contains(view, "mission complete") || !strings.Contains(view, "QR") {
		t.Fatalf("unexpected final view:\n%s", view)
	}
}

func TestMonitorQuitsWhenFeedCloses(t *testing.T) {
	feed := NewFeed(0)
	m := NewMonitor(feed, testPlan)
	feed.Close()
	msg := m.waitForEvent()()
	if _, ok := msg.(feedClosedMsg); !ok {
		t.Fatalf("expected feedClosedMsg, got %T", msg)
	}
	if _, cmd := m.Update(msg); !isQuit(cmd) || !m.Done() {
		t.Fatalf("expected quit on closed feed")
	}
}

func TestDetachDropsEvents(t *testing.T) {
	feed := NewFeed(0)
	m := NewMonitor(feed, testPlan)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !isQuit(cmd) || !m.Detached() {
		t.Fatalf("expected detach on q")
	}
	done := make(chan struct{})
	go func() {
		feed.Observe(mission.Event{Kind: mission.EventPhaseStarted})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("observe blocked after detach")
	}
}

func TestMonitorShowsJournalTail(t *testing.T) {
	book, err := logbook.New(filepath.Join(t.TempDir(), "journal.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	book.Info("phase 1 started")
	m := NewMonitor(NewFeed(0), testPlan, WithJournal(book))
	if view := m.View(); !strings.Contains(view, "JOURNAL · journal.log") || !strings.Contains(view, "phase 1 started") {
		t.Fatalf("expected journal panel:\n%s", view)
	}
}
