package version

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/deixis/testen/internal/runner"
)

// DefaultPresets are tested when no other source names a version.
var DefaultPresets = []string{"18", "20", "22"}

// CIVariables are checked, in order, for a version list when the CI
// variable is set.
var CIVariables = []string{"TESTEN_NODE_VERSIONS", "TRAVIS_NODE_VERSION", "NODE_VERSION"}

// CommandRunner executes a command. Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) (*runner.Result, error)
}

// Source yields candidate versions. An empty list means the source has
// nothing to offer and the next one is consulted.
type Source interface {
	Name() string
	Versions(ctx context.Context) ([]string, error)
}

// ConfigurationError reports that no source produced a version.
type ConfigurationError struct {
	Tried []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no node versions to test (tried %s)", strings.Join(e.Tried, ", "))
}

// Resolver determines the versions a matrix run targets.
//
// Explicit versions are always kept. They are concatenated with the
// first source that yields anything. Presets are used only when both
// are empty.
type Resolver struct {
	Explicit []string
	Sources  []Source
	Presets  []string
	Log      log.Logger
}

// Resolve returns the deduplicated versions sorted ascending.
func (r *Resolver) Resolve(ctx context.Context) ([]string, error) {
	logger := r.Log
	if logger == nil {
		logger = log.Root()
	}

	versions := splitList(r.Explicit...)
	tried := []string{"cli"}

	for _, src := range r.Sources {
		tried = append(tried, src.Name())
		found, err := src.Versions(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving versions from %s", src.Name())
		}
		if len(found) > 0 {
			logger.Debug("Resolved versions", "source", src.Name(), "versions", found)
			versions = append(versions, splitList(found...)...)
			break
		}
	}

	if len(versions) == 0 {
		tried = append(tried, "presets")
		versions = splitList(r.Presets...)
		logger.Debug("Falling back to presets", "versions", versions)
	}

	versions = Unique(versions)
	if len(versions) == 0 {
		return nil, errors.WithStack(&ConfigurationError{Tried: tried})
	}
	return versions, nil
}

// splitList flattens comma or space separated entries into normalized
// versions.
func splitList(entries ...string) []string {
	var out []string
	for _, e := range entries {
		for _, f := range strings.FieldsFunc(e, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		}) {
			if v := Normalize(f); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

type staticSource struct {
	name     string
	versions []string
}

// Static returns a source that always yields versions. It is used for
// the project manifest.
func Static(name string, versions []string) Source {
	return &staticSource{name: name, versions: versions}
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Versions(context.Context) ([]string, error) {
	return s.versions, nil
}

type systemSource struct {
	runner CommandRunner
}

// System returns a source that yields the version of the node binary on
// PATH.
func System(r CommandRunner) Source {
	return &systemSource{runner: r}
}

func (s *systemSource) Name() string { return "system" }

func (s *systemSource) Versions(ctx context.Context) ([]string, error) {
	res, err := s.runner.Run(ctx, []string{"node", "--version"})
	if err != nil {
		return nil, fmt.Errorf("querying current node version: %w", err)
	}
	if res.Failed() {
		return nil, fmt.Errorf("node --version exited with code %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	v := Normalize(string(res.Stdout))
	if v == "" {
		return nil, fmt.Errorf("node --version printed nothing")
	}
	return []string{v}, nil
}

type ciSource struct {
	getenv func(string) string
}

// CI returns a source that reads versions from the CI environment. It
// yields nothing unless CI is set to a true value.
func CI(getenv func(string) string) Source {
	return &ciSource{getenv: getenv}
}

func (s *ciSource) Name() string { return "ci" }

func (s *ciSource) Versions(context.Context) ([]string, error) {
	if ci, err := strconv.ParseBool(s.getenv("CI")); err != nil || !ci {
		return nil, nil
	}
	for _, name := range CIVariables {
		if v := strings.TrimSpace(s.getenv(name)); v != "" {
			return splitList(v), nil
		}
	}
	return nil, nil
}
