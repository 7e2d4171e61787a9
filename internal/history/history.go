// Package history records executed and previewed statements in an
// append-only log behind an interface. The gateway never touches shared
// state directly: callers inject a Recorder, and the default in-memory
// implementation keeps a bounded ring guarded by a mutex.
package history

import (
	"sync"
	"time"
)

// Entry is one recorded gateway operation.
type Entry struct {
	ID           string        `json:"id"`
	SQL          string        `json:"sql"`
	Kind         string        `json:"kind"`
	Mode         string        `json:"mode"` // "execute" or "preview"
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	RowsReturned int           `json:"rows_returned"`
	RowsAffected int64         `json:"rows_affected"`
	Duration     time.Duration `json:"duration"`
	At           time.Time     `json:"at"`
}

// Recorder is an append-only log of gateway operations.
type Recorder interface {
	Append(entry Entry)
	Recent(n int) []Entry
}

// Nop is a Recorder that drops everything.
type Nop struct{}

func (Nop) Append(Entry)       {}
func (Nop) Recent(int) []Entry { return nil }

// Memory is a bounded in-memory Recorder. Oldest entries are evicted once
// capacity is reached. Safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	next     int
	full     bool
}

// NewMemory creates a Memory recorder holding at most capacity entries.
// Panics if capacity <= 0.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		panic("history: capacity must be > 0")
	}
	return &Memory{
		capacity: capacity,
		entries:  make([]Entry, capacity),
	}
}

// Append records entry, evicting the oldest entry when full.
func (m *Memory) Append(entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.next] = entry
	m.next++
	if m.next == m.capacity {
		m.next = 0
		m.full = true
	}
}

// Recent returns up to n entries, newest first.
func (m *Memory) Recent(n int) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.next
	if m.full {
		size = m.capacity
	}
	if n > size {
		n = size
	}
	if n <= 0 {
		return nil
	}

	out := make([]Entry, 0, n)
	idx := m.next - 1
	for len(out) < n {
		if idx < 0 {
			idx = m.capacity - 1
		}
		out = append(out, m.entries[idx])
		idx--
	}
	return out
}
