package matrix

import (
	"slices"
	"sync"
)

// Snapshot is a copy of the table and its message block.
type Snapshot struct {
	Results  []RunResult
	Messages []Message
}

// Renderer draws a snapshot. Render calls are serialized.
type Renderer interface {
	Render(Snapshot)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Snapshot)

func (f RendererFunc) Render(s Snapshot) { f(s) }

// Table holds one RunResult per version, indexed like the version list.
// Every mutation renders the full current table before the lock is
// released, so concurrent runs never draw a stale snapshot.
type Table struct {
	mu       sync.Mutex
	results  []RunResult
	messages []Message
	renderer Renderer
}

// NewTable creates a table with every version pending.
func NewTable(versions []string, renderer Renderer) *Table {
	results := make([]RunResult, len(versions))
	for i, v := range versions {
		results[i] = RunResult{Version: v, Status: StatusPending}
	}
	return &Table{results: results, renderer: renderer}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.results)
}

// Render draws the current table.
func (t *Table) Render() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renderLocked()
}

// Update applies fn to row i, appends msg to the message block when it
// is non-nil, and renders.
func (t *Table) Update(i int, fn func(*RunResult), msg *Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.results[i])
	if msg != nil {
		t.messages = append(t.messages, *msg)
	}
	t.renderLocked()
}

// Snapshot returns a copy of the rows and messages.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Table) snapshotLocked() Snapshot {
	return Snapshot{
		Results:  slices.Clone(t.results),
		Messages: slices.Clone(t.messages),
	}
}

func (t *Table) renderLocked() {
	if t.renderer == nil {
		return
	}
	t.renderer.Render(t.snapshotLocked())
}
