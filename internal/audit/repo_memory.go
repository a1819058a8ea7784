package audit

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepo keeps events in append order. Used by tests and local runs
// without Postgres. Like audit_events, ids are unique and rows are never
// rewritten.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
	ids    map[string]struct{}
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{ids: map[string]struct{}{}} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.ids[e.ID]; dup {
		return fmt.Errorf("audit: duplicate event id %q", e.ID)
	}
	r.ids[e.ID] = struct{}{}
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of every event.
func (r *MemoryRepo) Events() []Event {
	return r.filter(func(Event) bool { return true })
}

// ForContact returns the trail of one contact, oldest first.
func (r *MemoryRepo) ForContact(contactID string) []Event {
	return r.filter(func(e Event) bool { return e.ContactID == contactID })
}

func (r *MemoryRepo) filter(keep func(Event) bool) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
