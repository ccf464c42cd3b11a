package log

import (
	"sort"
	"sync"
	"time"
)

// LogEntry represents a single audit entry of a rebalance call.
type LogEntry struct {
	// Timestamp is the decision time the entry belongs to.
	Timestamp time.Time
	// RunID identifies the rebalance call that produced the entry.
	RunID string
	// Node is the graph node the entry describes, empty for call level entries.
	Node string
	// Message is the log message content.
	Message string
	// Fields contains optional structured key-value data.
	Fields map[string]string
}

// Log is the interface for storing decision logs.
type Log interface {
	// Log stores a log entry.
	Log(entry LogEntry) error
	// GetLogs retrieves all stored log entries.
	GetLogs() ([]LogEntry, error)
}

// InMemoryLog keeps entries in memory. It is safe for concurrent use.
type InMemoryLog struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewInMemoryLog creates an empty in-memory log.
func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{
		mu:      sync.Mutex{},
		entries: nil,
	}
}

// Log implements Log.
func (l *InMemoryLog) Log(entry LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)

	return nil
}

// GetLogs implements Log. Entries are ordered by timestamp, then by insertion.
func (l *InMemoryLog) GetLogs() ([]LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	return out, nil
}
