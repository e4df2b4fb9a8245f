// Package report provides structured persistence and retrieval of
// finished matrix runs.
package report

import (
	"fmt"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/google/uuid"

	"github.com/deixis/testen/internal/matrix"
)

// Store persists and retrieves reports.
type Store interface {
	Save(r *Report) error
	Load(runID string) (*Report, error)
}

// Report is the stored outcome of one matrix run.
type Report struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Mode      string    `json:"mode"`
	Dir       string    `json:"dir,omitempty"`
	StartedAt time.Time `json:"started_at"`
	ElapsedMS int64     `json:"elapsed_ms"`
	ExitCode  int       `json:"exit_code"`
	Entries   []Entry   `json:"entries"`
}

// Entry is the stored result of one version.
type Entry struct {
	Version    string `json:"version"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Output     string `json:"output,omitempty"` // ANSI escapes removed
	Error      string `json:"error,omitempty"`
	ExitCode   int    `json:"exit_code,omitempty"`
}

// New builds a report with a fresh ID from a matrix outcome.
func New(command, dir string, mode matrix.Mode, out *matrix.Outcome) *Report {
	r := &Report{
		ID:        uuid.New().String(),
		Command:   command,
		Mode:      string(mode),
		Dir:       dir,
		StartedAt: out.StartedAt.UTC(),
		ElapsedMS: out.Elapsed.Milliseconds(),
		ExitCode:  out.ExitCode,
		Entries:   make([]Entry, 0, len(out.Results)),
	}
	for _, res := range out.Results {
		e := Entry{
			Version:    res.Version,
			Status:     string(res.Status),
			DurationMS: res.Duration.Milliseconds(),
			Output:     stripansi.Strip(res.Output),
		}
		if res.Err != nil {
			e.Error = stripansi.Strip(res.Err.Message)
			e.ExitCode = res.Err.Code
		}
		r.Entries = append(r.Entries, e)
	}
	return r
}

// Entry returns the entry of version.
func (r *Report) Entry(version string) (*Entry, error) {
	for i := range r.Entries {
		if r.Entries[i].Version == version {
			return &r.Entries[i], nil
		}
	}
	return nil, fmt.Errorf("run %s did not test node %s", r.ID, version)
}

// Failed returns the entries that did not succeed.
func (r *Report) Failed() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Status != string(matrix.StatusSuccess) {
			out = append(out, e)
		}
	}
	return out
}
