package mission

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrReportNotFound is returned when no saved report matches the request.
var ErrReportNotFound = errors.New("mission: report not found")

// ReportStore persists finished mission reports.
type ReportStore interface {
	Save(Report) error
	Load(runID string) (Report, error)
	Latest() (Report, error)
}

// Repository stores one JSON file per run inside a reports directory. Reports
// are output artifacts; nothing reads them back into a running mission.
type Repository struct {
	dir string
}

// NewRepository creates a repository rooted at dir.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the directory backing the repository.
func (r *Repository) Dir() string {
	return r.dir
}

// Save writes the report to <dir>/<run-id>.json.
func (r *Repository) Save(report Report) error {
	if strings.TrimSpace(report.RunID) == "" {
		return fmt.Errorf("mission: report run id is required")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path(report.RunID), append(encoded, '\n'), 0o644)
}

// Load reads a single report by run id.
func (r *Repository) Load(runID string) (Report, error) {
	data, err := os.ReadFile(r.path(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Report{}, ErrReportNotFound
		}
		return Report{}, err
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("mission: decode report %s: %w", runID, err)
	}
	return report, nil
}

// Latest returns the report that finished last.
func (r *Repository) Latest() (Report, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Report{}, ErrReportNotFound
		}
		return Report{}, err
	}
	var (
		latest Report
		found  bool
	)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		report, err := r.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		if !found || report.FinishedAt.After(latest.FinishedAt) {
			latest, found = report, true
		}
	}
	if !found {
		return Report{}, ErrReportNotFound
	}
	return latest, nil
}

func (r *Repository) path(runID string) string {
	return filepath.Join(r.dir, runID+".json")
}
