package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/testen/internal/report"
)

type inspectParams struct {
	RunID   string `json:"run_id" jsonschema:"the run ID from a testen_run result"`
	Version string `json:"version" jsonschema:"a Node.js version tested by that run"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if params.Version == "" {
		return errorResult("version is required")
	}

	rep, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	entry, err := rep.Entry(params.Version)
	if err != nil {
		return errorResult(err.Error())
	}

	return textResult(formatEntry(rep, entry))
}

func formatEntry(rep *report.Report, e *report.Entry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s)\n", rep.ID, rep.Mode)
	fmt.Fprintf(&b, "Command: %s\n", rep.Command)
	fmt.Fprintf(&b, "node %s: %s in %dms\n", e.Version, e.Status, e.DurationMS)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, "Exit code: %d\n", e.ExitCode)
	}
	if e.Error != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Error:")
		writeIndented(&b, e.Error)
	}
	if e.Output != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Output:")
		writeIndented(&b, e.Output)
	}
	return b.String()
}

func writeIndented(b *strings.Builder, s string) {
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}
