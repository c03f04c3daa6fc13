package notifylog

import (
	"sync"

	"driver-companion/internal/domain/notification"
)

// Log is the dashboard's rolling log of ride-request notifications:
// newest first, capped, duplicate ids dropped. Entries falling out of the
// server's pending set are flagged expired but stay until capacity evicts
// them.
type Log struct {
	mu       sync.RWMutex
	capacity int
	entries  []notification.Notification // newest first
	seen     map[string]int              // id -> index in entries
}

// New creates a Log holding at most capacity entries.
func New(capacity int) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{
		capacity: capacity,
		seen:     make(map[string]int),
	}
}

// Append prepends a notification. It reports false for duplicate ids.
func (l *Log) Append(n notification.Notification) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.seen[n.ID]; dup {
		return false
	}

	l.entries = append([]notification.Notification{n}, l.entries...)
	if len(l.entries) > l.capacity {
		evicted := l.entries[l.capacity:]
		l.entries = l.entries[:l.capacity]
		for _, e := range evicted {
			delete(l.seen, e.ID)
		}
	}
	l.reindex()
	return true
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []notification.Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]notification.Notification, len(l.entries))
	copy(out, l.entries)
	return out
}

// Pending returns only the entries still in the server's pending set.
func (l *Log) Pending() []notification.Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []notification.Notification
	for _, e := range l.entries {
		if e.Pending {
			out = append(out, e)
		}
	}
	return out
}

// ApplyPending reconciles the log against the server-reported pending set:
// listed ids are pending, everything else is expired.
func (l *Log) ApplyPending(ids []string) {
	pending := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		_, ok := pending[l.entries[i].ID]
		l.entries[i].Pending = ok
	}
}

// Acknowledge marks an entry acknowledged (the notification-tap deep link)
// and returns it. The second result is false for unknown ids.
func (l *Log) Acknowledge(id string) (notification.Notification, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.seen[id]
	if !ok {
		return notification.Notification{}, false
	}
	l.entries[i].Acknowledged = true
	return l.entries[i], true
}

// Len returns the number of entries currently held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// reindex rebuilds the id index after a structural change. Caller holds mu.
func (l *Log) reindex() {
	clear(l.seen)
	for i, e := range l.entries {
		l.seen[e.ID] = i
	}
}
