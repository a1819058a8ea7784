package contacts

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"outreach-dashboard/internal/outcome"
)

// MemoryRepo is a simple in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu       sync.Mutex
	contacts map[string]Contact
	logs     []CallLog

	// FailApply makes ApplyOutcome return this error without writing.
	FailApply error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{contacts: map[string]Contact{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, rows []Contact) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range rows {
		if _, ok := r.contacts[c.ID]; ok {
			continue
		}
		r.contacts[c.ID] = c
		n++
	}
	return n, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id string, p Patch, now time.Time) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok {
		return Contact{}, ErrNotFound
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.PhoneNumber != nil {
		c.PhoneNumber = *p.PhoneNumber
	}
	if p.ServicesOffered != nil {
		c.ServicesOffered = *p.ServicesOffered
	}
	if p.BillOrPayment != nil {
		c.BillOrPayment = *p.BillOrPayment
	}
	if p.ClearNextCallDate {
		c.NextCallDate = nil
	} else if p.NextCallDate != nil {
		t := *p.NextCallDate
		c.NextCallDate = &t
	}
	if p.LastOutcome != nil {
		c.LastOutcome = *p.LastOutcome
	}
	if p.Transcript != nil {
		s := *p.Transcript
		c.Transcript = &s
	}
	c.UpdatedAt = now
	r.contacts[id] = c
	return c, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts[id]; !ok {
		return ErrNotFound
	}
	delete(r.contacts, id)
	kept := r.logs[:0]
	for _, l := range r.logs {
		if l.ContactID != id {
			kept = append(kept, l)
		}
	}
	r.logs = kept
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, from, to *time.Time) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		if from != nil || to != nil {
			if c.NextCallDate == nil || !inWindow(*c.NextCallDate, from, to) {
				continue
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) SetOutcome(ctx context.Context, id string, o outcome.Outcome, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok {
		return ErrNotFound
	}
	c.LastOutcome = o
	c.UpdatedAt = now
	r.contacts[id] = c
	return nil
}

func (r *MemoryRepo) ApplyOutcome(ctx context.Context, u OutcomeUpdate, entry CallLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailApply != nil {
		return r.FailApply
	}
	c, ok := r.contacts[u.ContactID]
	if !ok {
		return ErrNotFound
	}
	c.LastOutcome = u.Outcome
	transcript := u.Transcript
	c.Transcript = &transcript
	if u.NextCallDate != nil {
		t := *u.NextCallDate
		c.NextCallDate = &t
	}
	c.UpdatedAt = u.UpdatedAt
	r.contacts[u.ContactID] = c
	r.logs = append(r.logs, entry)
	return nil
}

func (r *MemoryRepo) RecentLogs(ctx context.Context, limit int) ([]CallLogView, error) {
	if limit <= 0 {
		return nil, ErrInvalidArgument
	}
	out, _ := r.LogsBetween(ctx, nil, nil)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) LogsBetween(ctx context.Context, from, to *time.Time) ([]CallLogView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallLogView, 0, len(r.logs))
	for _, l := range r.logs {
		if !inWindow(l.CreatedAt, from, to) {
			continue
		}
		out = append(out, CallLogView{CallLog: l, ContactName: r.contacts[l.ContactID].Name})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) DeleteLogs(ctx context.Context, from, to *time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.logs[:0]
	n := 0
	for _, l := range r.logs {
		if inWindow(l.CreatedAt, from, to) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	r.logs = kept
	return n, nil
}

// Logs returns a copy of every stored call log in insertion order.
func (r *MemoryRepo) Logs() []CallLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallLog, len(r.logs))
	copy(out, r.logs)
	return out
}

// Seed stores c as-is, replacing any contact with the same id.
func (r *MemoryRepo) Seed(c Contact) error {
	if c.ID == "" {
		return errors.New("contacts: seed requires id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[c.ID] = c
	return nil
}

func inWindow(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}
