package alert

import (
	"sync"
)

// Log is a bounded in-process alert buffer. The source of truth for
// history is the alert store; this log only serves "what fired recently"
// queries without a storage round trip. When full, the oldest entry is
// evicted.
type Log struct {
	mu       sync.Mutex
	capacity int
	order    []string
	entries  map[string]Alert
}

// NewLog constructs a log holding at most capacity alerts.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Log{
		capacity: capacity,
		entries:  make(map[string]Alert, capacity),
	}
}

// Record inserts the alert, merging it with an existing entry of the
// same identity.
func (l *Log) Record(a Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := a.Identity()
	if _, exists := l.entries[key]; exists {
		l.entries[key] = a
		return
	}

	for len(l.order) >= l.capacity {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.entries, oldest)
	}

	l.order = append(l.order, key)
	l.entries[key] = a
}

// Recent returns up to limit alerts, newest first.
func (l *Log) Recent(limit int) []Alert {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.order) {
		limit = len(l.order)
	}

	alerts := make([]Alert, 0, limit)
	for i := len(l.order) - 1; i >= 0 && len(alerts) < limit; i-- {
		alerts = append(alerts, l.entries[l.order[i]])
	}
	return alerts
}

// Len reports the number of live entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}
