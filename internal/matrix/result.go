package matrix

import (
	"fmt"
	"time"
)

// Status is the state of one version's run.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the run has finished.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// NoOutput replaces empty output of a successful run in verbose mode.
const NoOutput = "(no output)"

// RunResult is the outcome of running the test command under one version.
type RunResult struct {
	Version  string
	Status   Status
	Duration time.Duration
	Output   string    // retained stdout; set for failed runs and in verbose mode
	Err      *RunError // nil unless the run failed
}

// RunError describes a failed run. Code is the command's exit code, or 0
// when the command never produced one (it could not be started or was
// interrupted).
type RunError struct {
	Version string
	Code    int
	Message string
	cause   error
}

func (e *RunError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("node %s exited with code %d", e.Version, e.Code)
	}
	return e.Message
}

func (e *RunError) Unwrap() error { return e.cause }

// Message is one entry of the block printed above the table.
type Message struct {
	Version string
	Status  Status
	Output  string
	Error   string
}

// ExitCode reduces results to a process exit status. The first error
// carrying a non-zero code decides; errors without a code are skipped.
// When no error carries a code the status is 0.
func ExitCode(results []RunResult) int {
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		if r.Err.Code != 0 {
			return r.Err.Code
		}
	}
	return 0
}
