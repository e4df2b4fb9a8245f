// Package display renders the matrix table and the message block above
// it, either redrawn in place on a terminal or printed once at the end.
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/deixis/testen/internal/matrix"
)

// Glyphs shown in the first column.
const (
	GlyphPending = "◯"
	GlyphSuccess = "✔"
	GlyphFailure = "✖"
)

// SpinnerFrames animate running rows.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var (
	green = text.Colors{text.FgGreen}
	red   = text.Colors{text.FgRed}
	cyan  = text.Colors{text.FgCyan}
	gray  = text.Colors{text.FgHiBlack}
)

var tableStyle = func() table.Style {
	s := table.StyleDefault
	s.Name = "testen"
	s.Options = table.OptionsNoBordersAndSeparators
	s.Box.PaddingLeft = ""
	s.Box.PaddingRight = "  "
	return s
}()

// Glyph returns the status glyph of a row. frame selects the spinner
// frame of running rows.
func Glyph(s matrix.Status, frame int) string {
	switch s {
	case matrix.StatusRunning:
		return SpinnerFrames[frame%len(SpinnerFrames)]
	case matrix.StatusSuccess:
		return GlyphSuccess
	case matrix.StatusFailed:
		return GlyphFailure
	default:
		return GlyphPending
	}
}

// FormatDuration renders d as whole milliseconds, e.g. "153ms".
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// Row returns the uncolored cells of r: glyph, version, status label and
// duration. Rows without a terminal status have no duration.
func Row(r matrix.RunResult, frame int) []string {
	dur := ""
	if r.Status.Terminal() {
		dur = FormatDuration(r.Duration)
	}
	return []string{Glyph(r.Status, frame), r.Version, string(r.Status), dur}
}

// FormatTable renders one aligned row per result.
func FormatTable(results []matrix.RunResult, frame int, colors bool) string {
	tw := table.NewWriter()
	tw.SetStyle(tableStyle)
	for _, r := range results {
		cells := Row(r, frame)
		if colors {
			cells[0] = statusColors(r.Status).Sprint(cells[0])
			cells[3] = gray.Sprint(cells[3])
		}
		tw.AppendRow(table.Row{cells[0], cells[1], cells[2], cells[3]})
	}
	return tw.Render()
}

// FormatMessages renders the output block of failed and verbose runs in
// the order they finished.
func FormatMessages(msgs []matrix.Message, colors bool) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range msgs {
		header := fmt.Sprintf("%s node %s %s", Glyph(m.Status, 0), m.Version, m.Status)
		if colors {
			header = statusColors(m.Status).Sprint(header)
		}
		fmt.Fprintln(&b, header)
		if out := strings.TrimRight(m.Output, "\n"); out != "" {
			fmt.Fprintln(&b, out)
		}
		if m.Error != "" {
			errText := m.Error
			if colors {
				errText = red.Sprint(errText)
			}
			fmt.Fprintln(&b, errText)
		}
		fmt.Fprintln(&b)
	}
	return b.String()
}

// Format renders the message block followed by the table.
func Format(s matrix.Snapshot, frame int, colors bool) string {
	return FormatMessages(s.Messages, colors) + FormatTable(s.Results, frame, colors) + "\n"
}

func statusColors(s matrix.Status) text.Colors {
	switch s {
	case matrix.StatusSuccess:
		return green
	case matrix.StatusFailed:
		return red
	case matrix.StatusRunning:
		return cyan
	default:
		return gray
	}
}
