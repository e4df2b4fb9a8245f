package display

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deixis/testen/internal/matrix"
	"github.com/deixis/testen/internal/runner"
)

var msPattern = regexp.MustCompile(`^\d+ms$`)

func TestRow(t *testing.T) {
	tests := []struct {
		name string
		in   matrix.RunResult
		want []string
	}{
		{"pending", matrix.RunResult{Version: "14", Status: matrix.StatusPending}, []string{GlyphPending, "14", "pending", ""}},
		{"running", matrix.RunResult{Version: "14", Status: matrix.StatusRunning}, []string{SpinnerFrames[2], "14", "running", ""}},
		{"success", matrix.RunResult{Version: "14", Status: matrix.StatusSuccess, Duration: 1500 * time.Millisecond}, []string{GlyphSuccess, "14", "success", "1500ms"}},
		{"failed", matrix.RunResult{Version: "14", Status: matrix.StatusFailed, Duration: 42 * time.Millisecond}, []string{GlyphFailure, "14", "failed", "42ms"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Row(tt.in, 2))
		})
	}
}

func TestFormatTable_Aligned(t *testing.T) {
	results := []matrix.RunResult{
		{Version: "8", Status: matrix.StatusSuccess, Duration: 5 * time.Millisecond},
		{Version: "10.24.1", Status: matrix.StatusFailed, Duration: 12 * time.Millisecond},
		{Version: "12", Status: matrix.StatusPending},
	}
	out := FormatTable(results, 0, false)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, []string{GlyphSuccess, "8", "success", "5ms"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{GlyphFailure, "10.24.1", "failed", "12ms"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{GlyphPending, "12", "pending"}, strings.Fields(lines[2]))

	// Status labels start in the same column.
	assert.Equal(t, strings.Index(lines[0], "success"), strings.Index(lines[1], "failed"))
}

func TestFormatTable_ColorsStrip(t *testing.T) {
	results := []matrix.RunResult{{Version: "8", Status: matrix.StatusSuccess, Duration: 5 * time.Millisecond}}
	assert.Equal(t, FormatTable(results, 0, false), stripansi.Strip(FormatTable(results, 0, true)))
}

func TestFormatMessages(t *testing.T) {
	assert.Empty(t, FormatMessages(nil, false))

	msgs := []matrix.Message{
		{Version: "8", Status: matrix.StatusFailed, Output: "1 failing\n", Error: "Command failed with exit code 1: npm test"},
		{Version: "10", Status: matrix.StatusSuccess, Output: matrix.NoOutput},
	}
	out := FormatMessages(msgs, false)
	assert.Equal(t, "✖ node 8 failed\n1 failing\nCommand failed with exit code 1: npm test\n\n✔ node 10 success\n(no output)\n\n", out)
}

func TestFormat_MessagesAboveTable(t *testing.T) {
	snap := matrix.Snapshot{
		Results:  []matrix.RunResult{{Version: "8", Status: matrix.StatusFailed, Duration: time.Millisecond}},
		Messages: []matrix.Message{{Version: "8", Status: matrix.StatusFailed, Error: "boom"}},
	}
	out := Format(snap, 0, false)
	assert.Less(t, strings.Index(out, "boom"), strings.Index(out, "1ms"))
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTerminal_RedrawsInPlace(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, 0, false)
	defer term.Stop()

	snap := matrix.Snapshot{Results: []matrix.RunResult{
		{Version: "8", Status: matrix.StatusPending},
		{Version: "10", Status: matrix.StatusPending},
	}}
	term.Render(snap)
	first := buf.String()
	assert.NotContains(t, first, "\x1b[")
	assert.Equal(t, 2, strings.Count(first, "\n"))

	buf.Reset()
	snap.Results[0].Status = matrix.StatusRunning
	term.Render(snap)
	assert.True(t, strings.HasPrefix(buf.String(), "\x1b[2A\r\x1b[J"), "got %q", buf.String())

	buf.Reset()
	term.Clear()
	assert.Equal(t, "\x1b[2A\r\x1b[J", buf.String())

	buf.Reset()
	term.Clear()
	assert.Empty(t, buf.String())
}

func TestScreenRows(t *testing.T) {
	assert.Equal(t, 0, screenRows("", 10))
	assert.Equal(t, 2, screenRows("ab\ncd\n", 10))
	assert.Equal(t, 1, screenRows("0123456789\n", 10))
	assert.Equal(t, 3, screenRows("01234567890123456789x\n", 10))
	assert.Equal(t, 2, screenRows("\x1b[31m0123456789\x1b[0m\n\n", 10))
	assert.Equal(t, 1, screenRows("01234567890123456789x\n", 0))
}

func TestTerminal_EraseCountsWrappedLines(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, 0, false)
	term.width = func() int { return 10 }
	defer term.Stop()

	snap := matrix.Snapshot{
		Results: []matrix.RunResult{{Version: "8", Status: matrix.StatusFailed}},
		Messages: []matrix.Message{{
			Version: "8",
			Status:  matrix.StatusFailed,
			Output:  strings.Repeat("x", 25),
		}},
	}
	term.Render(snap)
	want := screenRows(buf.String(), 10)
	// The 25-column output line alone takes three rows.
	assert.GreaterOrEqual(t, want, strings.Count(buf.String(), "\n")+2)

	buf.Reset()
	term.Clear()
	assert.Equal(t, fmt.Sprintf("\x1b[%dA\r\x1b[J", want), buf.String())
}

func TestTerminal_Spinner(t *testing.T) {
	var buf syncBuffer
	term := NewTerminal(&buf, 5*time.Millisecond, false)

	term.Render(matrix.Snapshot{Results: []matrix.RunResult{{Version: "8", Status: matrix.StatusRunning}}})
	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), SpinnerFrames[1])
	}, time.Second, 5*time.Millisecond)

	term.Stop()
	term.Stop()
}

func TestPlain_PrintsOnceOnStop(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf)

	p.Render(matrix.Snapshot{Results: []matrix.RunResult{{Version: "8", Status: matrix.StatusRunning}}})
	p.Render(matrix.Snapshot{Results: []matrix.RunResult{{Version: "8", Status: matrix.StatusSuccess, Duration: 3 * time.Millisecond}}})
	assert.Empty(t, buf.String())

	p.Stop()
	p.Stop()
	assert.Equal(t, []string{GlyphSuccess, "8", "success", "3ms"}, strings.Fields(buf.String()))
}

func TestPlain_ClearDropsSnapshot(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf)
	p.Render(matrix.Snapshot{Results: []matrix.RunResult{{Version: "8", Status: matrix.StatusRunning}}})
	p.Clear()
	p.Stop()
	assert.Empty(t, buf.String())
}

func runEndToEnd(t *testing.T, command string) (*matrix.Outcome, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	plain := NewPlain(&buf)
	c := &matrix.Coordinator{
		Runner:   &runner.Runner{Dir: t.TempDir(), Timeout: 10 * time.Second},
		Manager:  runner.Manager{Shell: "sh", Template: "{command}"},
		Renderer: plain,
		Mode:     matrix.Parallel,
		Log:      log.NewLogger(log.DiscardHandler()),
	}
	out := c.Run(context.Background(), []string{"14"}, command)
	plain.Stop()
	return out, &buf
}

func TestEndToEnd_Success(t *testing.T) {
	out, buf := runEndToEnd(t, "exit 0")

	row := Row(out.Results[0], 0)
	assert.Equal(t, []string{GlyphSuccess, "14", "success"}, row[:3])
	assert.Regexp(t, msPattern, row[3])
	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, row, strings.Fields(buf.String()))
}

func TestEndToEnd_Failure(t *testing.T) {
	out, buf := runEndToEnd(t, "exit 1")

	row := Row(out.Results[0], 0)
	assert.Equal(t, []string{GlyphFailure, "14", "failed"}, row[:3])
	assert.Regexp(t, msPattern, row[3])
	assert.Equal(t, 1, out.ExitCode)
	assert.Contains(t, buf.String(), "Command failed with exit code 1: exit 1")
}
