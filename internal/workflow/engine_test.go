package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deixis/testen/internal/matrix"
	"github.com/deixis/testen/internal/report"
	"github.com/deixis/testen/internal/version"
)

func newTestEngine(t *testing.T, manifest string, env map[string]string) *Engine {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0o644))

	e, err := Load(dir, log.NewLogger(log.DiscardHandler()))
	require.NoError(t, err)
	e.Config.Shell = "sh"
	e.Config.Manager = "{command}"
	e.Getenv = func(k string) string { return env[k] }
	return e
}

func TestCommand(t *testing.T) {
	e := newTestEngine(t, `{"testen": {"test": "yarn test"}}`, nil)
	assert.Equal(t, "yarn test", e.Command(Request{}))
	assert.Equal(t, "npm run unit -- --bail", e.Command(Request{Command: []string{"npm", "run", "unit", "--", "--bail"}}))
	assert.Equal(t, "sh -c 'exit 3'", e.Command(Request{Command: []string{"sh", "-c", "exit 3"}}))
	assert.Equal(t, `node -e 'process.exit(1)'`, e.Command(Request{Command: []string{"node", "-e", "process.exit(1)"}}))
	assert.Equal(t, `echo 'it'\''s'`, e.Command(Request{Command: []string{"echo", "it's"}}))
	// A single word is a script and runs as written.
	assert.Equal(t, "npm test && npm run lint", e.Command(Request{Command: []string{"npm test && npm run lint"}}))

	e = newTestEngine(t, `{}`, nil)
	assert.Equal(t, "npm test", e.Command(Request{}))
}

func TestVersions(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		env      map[string]string
		req      Request
		want     []string
	}{
		{
			name:     "presets",
			manifest: `{}`,
			want:     []string{"18", "20", "22"},
		},
		{
			name:     "manifest",
			manifest: `{"testen": {"node": [12, "10"]}}`,
			want:     []string{"10", "12"},
		},
		{
			name:     "explicit with manifest",
			manifest: `{"testen": {"node": "14"}}`,
			req:      Request{Node: []string{"16,v8"}},
			want:     []string{"8", "14", "16"},
		},
		{
			name:     "ci wins over manifest",
			manifest: `{"testen": {"node": "14"}}`,
			env:      map[string]string{"CI": "true", "TRAVIS_NODE_VERSION": "20"},
			want:     []string{"20"},
		},
		{
			name:     "ci ignored outside ci",
			manifest: `{"testen": {"node": "14"}}`,
			env:      map[string]string{"NODE_VERSION": "20"},
			want:     []string{"14"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, tt.manifest, tt.env)
			got, err := e.Versions(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersions_EmptyPresets(t *testing.T) {
	e := newTestEngine(t, `{}`, nil)
	e.Config.Presets = []string{}

	_, err := e.Versions(context.Background(), Request{})
	var cfgErr *version.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRun(t *testing.T) {
	e := newTestEngine(t, `{"testen": {"test": "exit 0", "node": ["14", "16"]}}`, nil)
	store := report.NewDiskStore(t.TempDir())
	e.Store = store

	var renders int
	res, err := e.Run(context.Background(), Request{Sequence: true}, matrix.RendererFunc(func(matrix.Snapshot) { renders++ }))
	require.NoError(t, err)

	assert.Equal(t, []string{"14", "16"}, res.Versions)
	assert.Equal(t, "exit 0", res.Command)
	assert.Equal(t, 0, res.Outcome.ExitCode)
	// Initial table plus running and finished per version.
	assert.Equal(t, 5, renders)

	stored, err := store.Load(res.Report.ID)
	require.NoError(t, err)
	assert.Equal(t, "sequential", stored.Mode)
	assert.Equal(t, e.Root, stored.Dir)
	require.Len(t, stored.Entries, 2)
	assert.Equal(t, "success", stored.Entries[1].Status)
}

func TestRun_Failure(t *testing.T) {
	e := newTestEngine(t, `{"testen": {"node": ["14", "16"]}}`, nil)

	res, err := e.Run(context.Background(), Request{Command: []string{"exit 7"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Outcome.ExitCode)
	assert.Equal(t, 7, res.Report.ExitCode)
	assert.Len(t, res.Report.Failed(), 2)
}

func TestRun_QuotedArgv(t *testing.T) {
	e := newTestEngine(t, `{"testen": {"node": "14"}}`, nil)

	res, err := e.Run(context.Background(), Request{Command: []string{"sh", "-c", "exit 3"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Outcome.ExitCode)
}

func TestRun_ResolveError(t *testing.T) {
	e := newTestEngine(t, `{}`, nil)

	// No node on PATH aborts resolution before any matrix run.
	t.Setenv("PATH", t.TempDir())
	_, err := e.Run(context.Background(), Request{System: true}, nil)
	require.Error(t, err)
}
