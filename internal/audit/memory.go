package audit

import (
	"context"
	"sync"
	"time"
)

// Filter narrows a MemorySink query. Zero values match everything.
type Filter struct {
	ResourceType string
	ResourceID   string
	Action       string
	Since        time.Time
	Until        time.Time
}

func (f Filter) matches(e AuditEvent) bool {
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if !f.Since.IsZero() && e.OccurredAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.OccurredAt.After(f.Until) {
		return false
	}
	return true
}

// MemorySink retains audit events in memory, newest first, capped at a fixed
// size. It backs the audit query endpoints when no database is configured.
type MemorySink struct {
	mu     sync.RWMutex
	events []AuditEvent
	cap    int
}

// NewMemorySink creates a sink retaining at most capacity events. A
// non-positive capacity falls back to 1000.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemorySink{cap: capacity}
}

// Write implements AuditSink.
func (s *MemorySink) Write(ctx context.Context, event AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append([]AuditEvent{event}, s.events...)
	if len(s.events) > s.cap {
		s.events = s.events[:s.cap]
	}
	return nil
}

// List returns up to limit matching events, newest first, skipping offset
// matches. The second return value is the total match count.
func (s *MemorySink) List(ctx context.Context, f Filter, limit, offset int) ([]AuditEvent, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]AuditEvent, 0, len(s.events))
	for _, e := range s.events {
		if f.matches(e) {
			matched = append(matched, e)
		}
	}

	total := len(matched)
	if offset >= total {
		return []AuditEvent{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
