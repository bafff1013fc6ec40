package domain

import (
	"sync"
	"time"

	"github.com/crossarb/crossarb/internal/apperror"
)

// ActivityEntry is one timestamped, human-readable engine event.
type ActivityEntry struct {
	Timestamp time.Time
	Severity  apperror.Severity
	Message   string
	// ManualFollowUp marks entries the operator must act on, set for
	// critical failures like an un-hedged position.
	ManualFollowUp bool
}

// ActivityLog is a bounded append-only event log. When full, the oldest
// entries fall off. Safe for one writer and many readers.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []ActivityEntry
	limit   int
}

// NewActivityLog creates a log bounded to limit entries.
func NewActivityLog(limit int) *ActivityLog {
	if limit <= 0 {
		limit = 100
	}
	return &ActivityLog{limit: limit}
}

// Append adds an entry, evicting the oldest beyond the bound.
func (l *ActivityLog) Append(severity apperror.Severity, message string) {
	l.append(ActivityEntry{
		Timestamp: time.Now(),
		Severity:  severity,
		Message:   message,
	})
}

// AppendManual adds a critical entry flagged for manual follow-up.
func (l *ActivityLog) AppendManual(message string) {
	l.append(ActivityEntry{
		Timestamp:      time.Now(),
		Severity:       apperror.SeverityCritical,
		Message:        message,
		ManualFollowUp: true,
	})
}

func (l *ActivityLog) append(entry ActivityEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

// Entries returns a copy of the log, oldest first.
func (l *ActivityLog) Entries() []ActivityEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]ActivityEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *ActivityLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
