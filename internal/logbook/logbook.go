package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/cartographer/internal/mission"
)

// Level represents the severity of a journal entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook persists mission progress to a plain text journal, one line per
// entry, so operators can follow a run without parsing JSON logs.
type Logbook struct {
	path  string
	mu    sync.Mutex
	clock func() time.Time
}

// Option customizes a Logbook.
type Option func(*Logbook)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(l *Logbook) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// New creates a logbook that writes to the provided path.
func New(path string, opts ...Option) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	l := &Logbook{path: path, clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry to the logbook.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %-5s %s\n",
		l.clock().UTC().Format(time.RFC3339),
		string(level),
		strings.TrimSpace(message),
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Tail returns up to maxLines of the most recent entries along with the total
// number of entries in the journal.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total == 0 {
		return nil, 0
	}
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}

// Observe turns mission events into journal lines. Successful legs are
// skipped to keep the journal readable; unconfirmed ones are warnings.
func (l *Logbook) Observe(evt mission.Event) {
	switch evt.Kind {
	case mission.EventStateChanged:
		l.Info("[%s] state %s (remaining %dms)", short(evt.RunID), evt.State, evt.Remaining)
	case mission.EventPhaseStarted:
		l.Info("[%s] phase %d started (remaining %dms)", short(evt.RunID), evt.Phase, evt.Remaining)
	case mission.EventTargetSelected:
		msg := fmt.Sprintf("[%s] phase %d selected target %d", short(evt.RunID), evt.Phase, evt.Target)
		if sel := evt.Selection; sel != nil && sel.Restrategized {
			msg += fmt.Sprintf(" (base %d, region %d)", sel.Base, sel.Region)
		}
		l.Info("%s", msg)
	case mission.EventLeg:
		if evt.Leg != nil && !evt.Leg.Arrival.Confirmed {
			l.Warn("[%s] %s leg to waypoint %d unconfirmed after %d attempts",
				short(evt.RunID), evt.Leg.Kind, evt.Leg.Waypoint, evt.Leg.Arrival.Attempts)
		}
	case mission.EventInspected:
		l.Info("[%s] inspected target %d, visited %v", short(evt.RunID), evt.Target, evt.Visited)
	case mission.EventMarkerRead:
		if evt.Marker == "" {
			l.Warn("[%s] marker not decoded", short(evt.RunID))
			return
		}
		l.Info("[%s] marker decoded: %s", short(evt.RunID), evt.Marker)
	case mission.EventPhasingStopped:
		l.Info("[%s] phasing stopped: %s", short(evt.RunID), evt.Message)
	case mission.EventError:
		l.Error("[%s] %s", short(evt.RunID), evt.Message)
	case mission.EventCompleted:
		l.Info("[%s] mission complete, visited %v, marker %q", short(evt.RunID), evt.Visited, evt.Marker)
	}
}

func short(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}
