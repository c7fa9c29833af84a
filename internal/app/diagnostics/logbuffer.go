package diagnostics

import "sync"

// LogBuffer keeps the most recent request lines in a fixed-size ring.
type LogBuffer struct {
	mu    sync.RWMutex
	data  []string
	next  int
	full  bool
	limit int
}

// NewLogBuffer builds buffer.
func NewLogBuffer(limit int) *LogBuffer {
	if limit <= 0 {
		limit = 100
	}
	return &LogBuffer{limit: limit, data: make([]string, limit)}
}

// Append stores new log line, overwriting the oldest once full.
func (b *LogBuffer) Append(entry string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[b.next] = entry
	b.next = (b.next + 1) % b.limit
	if b.next == 0 {
		b.full = true
	}
}

// Snapshot returns the buffered lines, oldest first.
func (b *LogBuffer) Snapshot() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.full {
		out := make([]string, b.next)
		copy(out, b.data[:b.next])
		return out
	}
	out := make([]string, 0, b.limit)
	out = append(out, b.data[b.next:]...)
	return append(out, b.data[:b.next]...)
}
