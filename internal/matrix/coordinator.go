// Package matrix runs a test command once per Node.js version, tracks
// the live status of every run in a shared table and reduces the results
// to an exit code.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/deixis/testen/internal/runner"
)

// Mode selects how runs are scheduled.
type Mode string

const (
	// Parallel launches every version at once.
	Parallel Mode = "parallel"
	// Sequential runs versions one after another in order.
	Sequential Mode = "sequential"
)

// CommandRunner executes commands.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) (*runner.Result, error)
}

// Recorder receives run metrics. Implemented by metrics.Recorder.
type Recorder interface {
	RecordRun(version string, status Status, d time.Duration)
	RecordMatrix(mode Mode, exitCode int)
}

type noopRecorder struct{}

func (noopRecorder) RecordRun(string, Status, time.Duration) {}
func (noopRecorder) RecordMatrix(Mode, int)                  {}

// Outcome is the result of a matrix run.
type Outcome struct {
	Results   []RunResult
	Messages  []Message
	ExitCode  int
	StartedAt time.Time
	Elapsed   time.Duration
}

// Coordinator executes the test command once per version.
type Coordinator struct {
	Runner      CommandRunner
	Manager     runner.Manager
	Renderer    Renderer // may be nil
	Recorder    Recorder // may be nil
	Mode        Mode
	Verbose     bool // retain output of successful runs too
	Concurrency int  // parallel runs in flight; 0 is unlimited
	Log         log.Logger
}

// Run tests command under every version and returns once each version
// has a terminal status. A failing version never stops the others.
func (c *Coordinator) Run(ctx context.Context, versions []string, command string) *Outcome {
	logger := c.Log
	if logger == nil {
		logger = log.Root()
	}
	recorder := c.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}

	start := time.Now()
	table := NewTable(versions, c.Renderer)
	table.Render()

	logger.Debug("Starting matrix", "mode", c.Mode, "versions", versions, "command", command)

	switch c.Mode {
	case Sequential:
		for i, v := range versions {
			c.runOne(ctx, logger, recorder, table, i, v, command)
		}
	default:
		var g errgroup.Group
		if c.Concurrency > 0 {
			g.SetLimit(c.Concurrency)
		}
		for i, v := range versions {
			g.Go(func() error {
				c.runOne(ctx, logger, recorder, table, i, v, command)
				return nil
			})
		}
		_ = g.Wait()
	}

	snap := table.Snapshot()
	code := ExitCode(snap.Results)
	recorder.RecordMatrix(c.Mode, code)
	logger.Debug("Matrix finished", "exitCode", code, "elapsed", time.Since(start))

	return &Outcome{
		Results:   snap.Results,
		Messages:  snap.Messages,
		ExitCode:  code,
		StartedAt: start,
		Elapsed:   time.Since(start),
	}
}

func (c *Coordinator) runOne(ctx context.Context, logger log.Logger, recorder Recorder, table *Table, i int, version, command string) {
	logger = logger.New("node", version)

	table.Update(i, func(r *RunResult) { r.Status = StatusRunning }, nil)

	argv := c.Manager.Command(version, command)
	logger.Debug("Running", "argv", argv)

	start := time.Now()
	res, err := c.Runner.Run(ctx, argv)
	elapsed := time.Since(start)

	out := RunResult{Version: version, Duration: elapsed, Status: StatusSuccess}
	switch {
	case err != nil:
		out.Status = StatusFailed
		out.Err = &RunError{Version: version, Message: launchMessage(version, err), cause: err}
	case res.Failed():
		out.Status = StatusFailed
		out.Err = &RunError{Version: version, Code: res.ExitCode, Message: exitMessage(command, res)}
	}

	var msg *Message
	if out.Status == StatusFailed || c.Verbose {
		if res != nil {
			out.Output = string(res.Stdout)
		}
		if out.Status == StatusSuccess && strings.TrimSpace(out.Output) == "" {
			out.Output = NoOutput
		}
		msg = &Message{Version: version, Status: out.Status, Output: out.Output}
		if out.Err != nil {
			msg.Error = out.Err.Message
		}
	}

	if out.Err != nil {
		logger.Debug("Run failed", "code", out.Err.Code, "elapsed", elapsed, "err", out.Err.Message)
	} else {
		logger.Debug("Run succeeded", "elapsed", elapsed)
	}
	recorder.RecordRun(version, out.Status, elapsed)

	table.Update(i, func(r *RunResult) { *r = out }, msg)
}

func launchMessage(version string, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("node %s timed out: %v", version, err)
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("node %s was interrupted: %v", version, err)
	default:
		return fmt.Sprintf("node %s is not available: %v", version, err)
	}
}

func exitMessage(command string, res *runner.Result) string {
	msg := fmt.Sprintf("Command failed with exit code %d: %s", res.ExitCode, command)
	if res.Signal != "" {
		msg = fmt.Sprintf("Command was terminated by signal (%s): %s", res.Signal, command)
	}
	if stderr := strings.TrimSpace(string(res.Stderr)); stderr != "" {
		msg += "\n" + stderr
	}
	if res.Truncated {
		msg += "\n(output truncated)"
	}
	return msg
}
