// Package workflow wires configuration, version resolution, the matrix
// coordinator and the report store together. It is consumed by both the
// CLI and the MCP server.
package workflow

import (
	"context"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/deixis/testen/internal/config"
	"github.com/deixis/testen/internal/matrix"
	"github.com/deixis/testen/internal/report"
	"github.com/deixis/testen/internal/runner"
	"github.com/deixis/testen/internal/version"
)

// CommandRunner executes commands from the project root.
// Implemented by runner.Runner.
type CommandRunner interface {
	matrix.CommandRunner
}

// Engine holds shared dependencies for resolving and running a matrix.
type Engine struct {
	Config   *config.Config
	Manifest *config.Manifest
	Root     string // project root; commands run from here
	Runner   CommandRunner
	Store    report.Store    // may be nil
	Recorder matrix.Recorder // may be nil
	Getenv   func(string) string
	Log      log.Logger
}

// Request describes one matrix run.
type Request struct {
	Node     []string // explicit versions
	System   bool     // add the version of node on PATH
	Sequence bool     // run versions one at a time
	Verbose  bool     // keep output of successful runs
	Command  []string // overrides the manifest command when set
}

// Result is a finished matrix run.
type Result struct {
	Versions []string
	Command  string
	Outcome  *matrix.Outcome
	Report   *report.Report
}

// New creates an Engine for a loaded project.
func New(loaded *config.LoadResult, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.Root()
	}
	return &Engine{
		Config:   loaded.Config,
		Manifest: loaded.Manifest,
		Root:     loaded.Root,
		Runner: &runner.Runner{
			Dir:       loaded.Root,
			Timeout:   loaded.Config.Timeout(),
			MaxOutput: loaded.Config.MaxOutputBytes(),
		},
		Getenv: os.Getenv,
		Log:    logger,
	}
}

// Load reads the project configuration from dir and creates an Engine.
func Load(dir string, logger log.Logger) (*Engine, error) {
	loaded, err := config.Load(dir)
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}
	return New(loaded, logger), nil
}

// Command returns the shell command a request runs. A single word is
// taken as a shell script; several words are an argv and are quoted.
func (e *Engine) Command(req Request) string {
	switch len(req.Command) {
	case 0:
	case 1:
		return req.Command[0]
	default:
		words := make([]string, len(req.Command))
		for i, w := range req.Command {
			words[i] = runner.ShellQuote(w)
		}
		return strings.Join(words, " ")
	}
	if e.Manifest != nil {
		return e.Manifest.Command()
	}
	return config.DefaultCommand
}

// Resolver builds the version resolver for a request. Sources are
// consulted in order: current runtime, CI environment, manifest.
func (e *Engine) Resolver(req Request) *version.Resolver {
	var sources []version.Source
	if req.System {
		sources = append(sources, version.System(e.Runner))
	}
	getenv := e.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	sources = append(sources, version.CI(getenv))
	if e.Manifest != nil {
		sources = append(sources, version.Static("manifest", e.Manifest.Testen.Node))
	}

	presets := version.DefaultPresets
	if p := e.Config.PresetVersions(); p != nil {
		presets = p
	}

	return &version.Resolver{
		Explicit: req.Node,
		Sources:  sources,
		Presets:  presets,
		Log:      e.logger().New("component", "resolver"),
	}
}

// Versions resolves the versions a request targets.
func (e *Engine) Versions(ctx context.Context, req Request) ([]string, error) {
	return e.Resolver(req).Resolve(ctx)
}

// Run resolves versions, runs the matrix and stores its report. The
// renderer receives every table change and may be nil.
func (e *Engine) Run(ctx context.Context, req Request, renderer matrix.Renderer) (*Result, error) {
	versions, err := e.Versions(ctx, req)
	if err != nil {
		return nil, err
	}

	mode := matrix.Parallel
	if req.Sequence {
		mode = matrix.Sequential
	}
	command := e.Command(req)

	coord := &matrix.Coordinator{
		Runner:      e.Runner,
		Manager:     runner.Manager{Shell: e.Config.Shell, Template: e.Config.Manager},
		Renderer:    renderer,
		Recorder:    e.Recorder,
		Mode:        mode,
		Verbose:     req.Verbose,
		Concurrency: e.Config.Concurrency,
		Log:         e.logger().New("component", "coordinator"),
	}
	outcome := coord.Run(ctx, versions, command)

	rep := report.New(command, e.Root, mode, outcome)
	if e.Store != nil {
		if err := e.Store.Save(rep); err != nil {
			e.logger().Warn("Failed to store report", "run", rep.ID, "err", err)
		}
	}

	return &Result{
		Versions: versions,
		Command:  command,
		Outcome:  outcome,
		Report:   rep,
	}, nil
}

func (e *Engine) logger() log.Logger {
	if e.Log == nil {
		return log.Root()
	}
	return e.Log
}
