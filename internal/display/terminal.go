package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/deixis/testen/internal/matrix"
)

// Display is a matrix.Renderer with a lifecycle.
type Display interface {
	matrix.Renderer
	// Stop ends any animation and leaves the final state on screen.
	Stop()
	// Clear erases whatever the display drew.
	Clear()
}

// New returns a live Terminal when f is a terminal and a Plain display
// otherwise.
func New(f *os.File) Display {
	if IsTerminal(f) {
		t := NewTerminal(f, 80*time.Millisecond, true)
		t.width = func() int {
			w, _, err := term.GetSize(int(f.Fd()))
			if err != nil {
				return 0
			}
			return w
		}
		return t
	}
	return NewPlain(f)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Terminal redraws the table in place after every render and animates
// running rows with a spinner.
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	colors bool
	last   *matrix.Snapshot
	lines  int // screen rows drawn by the previous frame
	frame  int
	width  func() int // terminal columns; nil or 0 means lines never wrap

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewTerminal creates a Terminal writing to out. A zero interval
// disables the spinner.
func NewTerminal(out io.Writer, interval time.Duration, colors bool) *Terminal {
	t := &Terminal{
		out:    out,
		colors: colors,
		stopCh: make(chan struct{}),
	}
	if interval > 0 {
		t.ticker = time.NewTicker(interval)
		go t.spin()
	}
	return t
}

// Render draws s over the previous frame.
func (t *Terminal) Render(s matrix.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = &s
	t.drawLocked()
}

// Stop ends the spinner. The last frame stays on screen.
func (t *Terminal) Stop() {
	t.stopOnce.Do(func() {
		if t.ticker != nil {
			t.ticker.Stop()
		}
		close(t.stopCh)
	})
}

// Clear erases the region drawn so far.
func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.eraseLocked()
	t.last = nil
}

func (t *Terminal) spin() {
	for {
		select {
		case <-t.ticker.C:
			t.mu.Lock()
			t.frame++
			if t.last != nil && running(t.last.Results) {
				t.drawLocked()
			}
			t.mu.Unlock()
		case <-t.stopCh:
			return
		}
	}
}

func (t *Terminal) drawLocked() {
	t.eraseLocked()
	frame := Format(*t.last, t.frame, t.colors)
	fmt.Fprint(t.out, frame)
	width := 0
	if t.width != nil {
		width = t.width()
	}
	t.lines = screenRows(frame, width)
}

// screenRows counts the terminal rows the newline-terminated lines of s
// occupy once lines wider than width wrap.
func screenRows(s string, width int) int {
	lines := strings.Split(s, "\n")
	rows := 0
	for _, line := range lines[:len(lines)-1] {
		n := 1
		if w := text.RuneWidthWithoutEscSequences(line); width > 0 && w > width {
			n = (w + width - 1) / width
		}
		rows += n
	}
	return rows
}

func (t *Terminal) eraseLocked() {
	if t.lines == 0 {
		return
	}
	// Cursor up to the first drawn line, then clear to the end of screen.
	fmt.Fprintf(t.out, "\x1b[%dA\r\x1b[J", t.lines)
	t.lines = 0
}

func running(results []matrix.RunResult) bool {
	for _, r := range results {
		if r.Status == matrix.StatusRunning {
			return true
		}
	}
	return false
}

// Plain keeps the latest snapshot and prints it once on Stop. It is used
// when output is not a terminal.
type Plain struct {
	mu      sync.Mutex
	out     io.Writer
	last    *matrix.Snapshot
	printed bool
}

// NewPlain creates a Plain display writing to out.
func NewPlain(out io.Writer) *Plain {
	return &Plain{out: out}
}

// Render records s.
func (p *Plain) Render(s matrix.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &s
}

// Stop prints the last snapshot.
func (p *Plain) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.printed || p.last == nil {
		return
	}
	p.printed = true
	fmt.Fprint(p.out, Format(*p.last, 0, false))
}

// Clear drops the pending snapshot.
func (p *Plain) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = nil
}
