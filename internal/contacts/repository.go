package contacts

import (
	"context"
	"errors"
	"time"

	"outreach-dashboard/internal/outcome"
)

var (
	ErrNotFound        = errors.New("contacts: not found")
	ErrInvalidArgument = errors.New("contacts: invalid argument")
)

// Repository is the persistence contract for contacts and their call logs.
//
// Call logs are append-only: ApplyOutcome is the only write path that creates
// them, and only DeleteLogs (archive) removes them.
type Repository interface {
	Insert(ctx context.Context, rows []Contact) (int, error)
	Get(ctx context.Context, id string) (Contact, error)
	Update(ctx context.Context, id string, p Patch, now time.Time) (Contact, error)
	Delete(ctx context.Context, id string) error

	// List returns contacts newest first. A non-nil window filters on next_call_date in [from, to).
	List(ctx context.Context, from, to *time.Time) ([]Contact, error)

	SetOutcome(ctx context.Context, id string, o outcome.Outcome, now time.Time) error

	// ApplyOutcome updates the contact and appends entry in one transaction.
	// Returns ErrNotFound (and writes nothing) when the contact does not exist.
	ApplyOutcome(ctx context.Context, u OutcomeUpdate, entry CallLog) error

	RecentLogs(ctx context.Context, limit int) ([]CallLogView, error)
	LogsBetween(ctx context.Context, from, to *time.Time) ([]CallLogView, error)
	DeleteLogs(ctx context.Context, from, to *time.Time) (int, error)
}
