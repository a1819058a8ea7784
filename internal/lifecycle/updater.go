package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"outreach-dashboard/internal/contacts"
	"outreach-dashboard/internal/outcome"

	"github.com/google/uuid"
)

// Store is the single atomic write the updater needs.
// Implemented by contacts.PostgresRepo and contacts.MemoryRepo.
type Store interface {
	ApplyOutcome(ctx context.Context, u contacts.OutcomeUpdate, entry contacts.CallLog) error
}

// Updater applies a normalized outcome decision to a contact and appends the
// matching call log entry. Both writes land together or not at all.
//
// Replays are not deduplicated: the contact converges on the same state
// (last write wins) and one log entry is appended per call.
type Updater struct {
	store Store
	clock func() time.Time
	newID func() string
}

func NewUpdater(store Store) *Updater {
	return &Updater{store: store, clock: time.Now, newID: uuid.NewString}
}

// Apply persists d. Errors are go-errors envelopes: ContactNotFound when the
// contact does not exist (nothing written), PersistenceFailure otherwise.
func (u *Updater) Apply(ctx context.Context, d outcome.Decision) (contacts.CallLog, error) {
	if strings.TrimSpace(d.ContactID) == "" {
		return contacts.CallLog{}, outcome.MissingContactReference("")
	}
	if !d.Outcome.Valid() {
		return contacts.CallLog{}, outcome.MalformedPayload(nil, "decision outcome is not canonical")
	}

	now := u.clock().UTC()
	transcript := d.Transcript
	if transcript == "" {
		transcript = outcome.NoTranscriptMarker
	}

	var next *time.Time
	if d.Outcome.Reschedules() && d.RescheduleTo != nil {
		t := d.RescheduleTo.UTC()
		next = &t
	}

	entry := contacts.CallLog{
		ID:              u.newID(),
		ContactID:       d.ContactID,
		Outcome:         d.Outcome,
		Transcript:      transcript,
		DurationSeconds: d.DurationSeconds,
		CreatedAt:       now,
	}
	update := contacts.OutcomeUpdate{
		ContactID:    d.ContactID,
		Outcome:      d.Outcome,
		Transcript:   transcript,
		NextCallDate: next,
		UpdatedAt:    now,
	}

	if err := u.store.ApplyOutcome(ctx, update, entry); err != nil {
		if errors.Is(err, contacts.ErrNotFound) {
			return contacts.CallLog{}, outcome.ContactNotFound(d.ContactID)
		}
		return contacts.CallLog{}, outcome.PersistenceFailure(err)
	}
	return entry, nil
}
