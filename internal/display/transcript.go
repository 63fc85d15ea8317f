package display

import (
	"sync"

	"github.com/zhouzirui/chatwidget/internal/model/chat"
)

// Transcript keeps every displayed entry in memory, in display order.
// It never truncates.
type Transcript struct {
	mu      sync.Mutex
	entries []chat.Entry
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{entries: make([]chat.Entry, 0, 16)}
}

// Display appends one entry.
func (t *Transcript) Display(role chat.Role, text string) {
	t.mu.Lock()
	t.entries = append(t.entries, chat.Entry{Role: role, Text: text})
	t.mu.Unlock()
}

// Entries returns the log rendered as "Label: text" lines.
func (t *Transcript) Entries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := make([]string, len(t.entries))
	for i, entry := range t.entries {
		lines[i] = entry.String()
	}
	return lines
}

// Snapshot returns a copy of the raw entries.
func (t *Transcript) Snapshot() []chat.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	copied := make([]chat.Entry, len(t.entries))
	copy(copied, t.entries)
	return copied
}

// Len reports the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
