// Package mcp provides the testen MCP server, exposing version
// resolution, matrix runs and stored reports as tools.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/testen"
	"github.com/deixis/testen/internal/report"
	"github.com/deixis/testen/internal/workflow"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu     sync.Mutex
	engine *workflow.Engine
	store  report.Store
	log    log.Logger
}

// NewServer creates an MCP server with all testen tools registered.
// Reports of testen_run are saved to store for testen_inspect.
func NewServer(engine *workflow.Engine, store report.Store, logger log.Logger) *mcp.Server {
	if logger == nil {
		logger = log.Root()
	}
	engine.Store = store
	h := &handler{
		engine: engine,
		store:  store,
		log:    logger.New("component", "mcp"),
	}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateProjectFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "testen", Version: testen.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "testen_versions",
		Description: "List the Node.js versions a matrix run would test, without running anything.",
	}, h.versionsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "testen_run",
		Description: `Run the project's test command once per Node.js version and report pass/fail per version.

Versions come from the node argument, the current node (system=true), the CI environment,
package.json "testen.node", or the presets, in that order. Runs are parallel unless sequence=true.
Results are stored for drill-down via testen_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "testen_inspect",
		Description: `Show the captured output and error of one version from a testen_run result.

Use the run_id from the testen_run output and one of its versions.`,
	}, h.inspectHandler)

	return s
}

// current returns the engine tools run against.
func (h *handler) current() *workflow.Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine
}

// updateProjectFromRoots queries the client for MCP roots and reloads the
// project configuration from the first file root. This is called during
// session initialization, before any tool calls.
func (h *handler) updateProjectFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	engine, err := workflow.Load(u.Path, h.log)
	if err != nil {
		h.log.Warn("Ignoring client root", "root", u.Path, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	engine.Store = h.store
	engine.Recorder = h.engine.Recorder
	h.engine = engine
	h.log.Info("Using project from client root", "root", engine.Root)
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
