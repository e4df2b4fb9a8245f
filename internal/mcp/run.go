package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/testen/internal/display"
	"github.com/deixis/testen/internal/workflow"
)

type versionsParams struct {
	Node   []string `json:"node,omitempty" jsonschema:"Node.js versions to test (e.g. 18, 20.11.1). Concatenated with the first other source."`
	System bool     `json:"system,omitempty" jsonschema:"Also test the node version currently on PATH."`
}

type runParams struct {
	Node     []string `json:"node,omitempty" jsonschema:"Node.js versions to test (e.g. 18, 20.11.1). Concatenated with the first other source."`
	System   bool     `json:"system,omitempty" jsonschema:"Also test the node version currently on PATH."`
	Sequence bool     `json:"sequence,omitempty" jsonschema:"Run versions one at a time instead of in parallel."`
	Verbose  bool     `json:"verbose,omitempty" jsonschema:"Keep the output of successful runs too."`
	Command  string   `json:"command,omitempty" jsonschema:"Shell command to run. Defaults to package.json testen.test, then npm test."`
}

func (h *handler) versionsHandler(ctx context.Context, req *mcp.CallToolRequest, params versionsParams) (*mcp.CallToolResult, any, error) {
	versions, err := h.current().Versions(ctx, workflow.Request{Node: params.Node, System: params.System})
	if err != nil {
		return errorResult(fmt.Sprintf("resolving versions failed: %v", err))
	}
	return textResult(fmt.Sprintf("Versions (%d): %s\n", len(versions), strings.Join(versions, ", ")))
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	wreq := workflow.Request{
		Node:     params.Node,
		System:   params.System,
		Sequence: params.Sequence,
		Verbose:  params.Verbose,
	}
	if params.Command != "" {
		wreq.Command = []string{params.Command}
	}

	res, err := h.current().Run(ctx, wreq, nil)
	if err != nil {
		return errorResult(fmt.Sprintf("run failed: %v", err))
	}

	return textResult(formatRun(res))
}

func formatRun(res *workflow.Result) string {
	var b strings.Builder

	if res.Outcome.ExitCode == 0 && len(res.Report.Failed()) == 0 {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Exit code: %d\n", res.Outcome.ExitCode)
	fmt.Fprintf(&b, "Command: %s\n", res.Command)
	fmt.Fprintf(&b, "Run: %s\n", res.Report.ID)
	fmt.Fprintln(&b)

	fmt.Fprint(&b, display.FormatMessages(res.Outcome.Messages, false))
	fmt.Fprintln(&b, display.FormatTable(res.Outcome.Results, 0, false))
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Inspect with testen_inspect(run_id=%q, version=\"<version>\").\n", res.Report.ID)
	return b.String()
}
