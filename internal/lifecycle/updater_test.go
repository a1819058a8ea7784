package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"outreach-dashboard/internal/contacts"
	"outreach-dashboard/internal/outcome"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestUpdater(repo *contacts.MemoryRepo) *Updater {
	u := NewUpdater(repo)
	u.clock = func() time.Time { return fixedNow }
	return u
}

func seed(t *testing.T, repo *contacts.MemoryRepo, next *time.Time) {
	t.Helper()
	if err := repo.Seed(contacts.Contact{ID: "c1", Name: "Ada", PhoneNumber: "+15550100", LastOutcome: outcome.Calling, NextCallDate: next}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestApply_UpdatesContactAndAppendsLog(t *testing.T) {
	repo := contacts.NewMemoryRepo()
	seed(t, repo, nil)
	u := newTestUpdater(repo)

	dur := 45
	resched := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	entry, err := u.Apply(context.Background(), outcome.Decision{
		ContactID:       "c1",
		Outcome:         outcome.Callback,
		Transcript:      "Summary: call back Friday",
		DurationSeconds: &dur,
		RescheduleTo:    &resched,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if entry.ID == "" || !entry.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected entry %+v", entry)
	}

	c, _ := repo.Get(context.Background(), "c1")
	if c.LastOutcome != outcome.Callback {
		t.Fatalf("expected Callback, got %s", c.LastOutcome)
	}
	if c.Transcript == nil || *c.Transcript != "Summary: call back Friday" {
		t.Fatalf("unexpected transcript %v", c.Transcript)
	}
	if c.NextCallDate == nil || !c.NextCallDate.Equal(resched) {
		t.Fatalf("expected reschedule to %v, got %v", resched, c.NextCallDate)
	}
	if !c.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("expected updatedAt bumped")
	}

	logs := repo.Logs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if logs[0].Outcome != c.LastOutcome || logs[0].Transcript != *c.Transcript {
		t.Fatalf("log and contact disagree: %+v vs %+v", logs[0], c)
	}
	if logs[0].DurationSeconds == nil || *logs[0].DurationSeconds != 45 {
		t.Fatalf("expected duration 45")
	}
}

func TestApply_NoRescheduleKeepsExistingDate(t *testing.T) {
	repo := contacts.NewMemoryRepo()
	existing := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seed(t, repo, &existing)
	u := newTestUpdater(repo)

	// A reschedule date on a non-rescheduling outcome is ignored too.
	other := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	if _, err := u.Apply(context.Background(), outcome.Decision{ContactID: "c1", Outcome: outcome.Failed, Transcript: "x", RescheduleTo: &other}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	c, _ := repo.Get(context.Background(), "c1")
	if c.NextCallDate == nil || !c.NextCallDate.Equal(existing) {
		t.Fatalf("expected existing date kept, got %v", c.NextCallDate)
	}
}

func TestApply_UnknownContactWritesNothing(t *testing.T) {
	repo := contacts.NewMemoryRepo()
	u := newTestUpdater(repo)

	_, err := u.Apply(context.Background(), outcome.Decision{ContactID: "ghost", Outcome: outcome.Completed, Transcript: "x"})
	if !outcome.HasCode(err, outcome.CodeContactNotFound) {
		t.Fatalf("expected contact not found, got %v", err)
	}
	if len(repo.Logs()) != 0 {
		t.Fatalf("expected no log written")
	}
}

func TestApply_StoreFailureIsPersistenceFailure(t *testing.T) {
	repo := contacts.NewMemoryRepo()
	seed(t, repo, nil)
	repo.FailApply = errors.New("connection reset")
	u := newTestUpdater(repo)

	_, err := u.Apply(context.Background(), outcome.Decision{ContactID: "c1", Outcome: outcome.Completed, Transcript: "x"})
	if !outcome.HasCode(err, outcome.CodePersistenceFailure) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	c, _ := repo.Get(context.Background(), "c1")
	if c.LastOutcome != outcome.Calling {
		t.Fatalf("contact must be unchanged, got %s", c.LastOutcome)
	}
}

func TestApply_ReplayAppendsSecondLog(t *testing.T) {
	repo := contacts.NewMemoryRepo()
	seed(t, repo, nil)
	u := newTestUpdater(repo)

	d := outcome.Decision{ContactID: "c1", Outcome: outcome.Paid, Transcript: "Summary: paid"}
	for i := 0; i < 2; i++ {
		if _, err := u.Apply(context.Background(), d); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	c, _ := repo.Get(context.Background(), "c1")
	if c.LastOutcome != outcome.Paid {
		t.Fatalf("expected Paid, got %s", c.LastOutcome)
	}
	logs := repo.Logs()
	if len(logs) != 2 || logs[0].ID == logs[1].ID {
		t.Fatalf("expected two distinct log entries, got %+v", logs)
	}
}

func TestApply_RejectsInvalidDecision(t *testing.T) {
	u := newTestUpdater(contacts.NewMemoryRepo())

	if _, err := u.Apply(context.Background(), outcome.Decision{Outcome: outcome.Paid}); !outcome.HasCode(err, outcome.CodeMissingContactReference) {
		t.Fatalf("expected missing contact reference, got %v", err)
	}
	if _, err := u.Apply(context.Background(), outcome.Decision{ContactID: "c1", Outcome: "Maybe"}); !outcome.HasCode(err, outcome.CodeMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
}

func TestApply_EmptyTranscriptUsesMarker(t *testing.T) {
	repo := contacts.NewMemoryRepo()
	seed(t, repo, nil)
	u := newTestUpdater(repo)

	if _, err := u.Apply(context.Background(), outcome.Decision{ContactID: "c1", Outcome: outcome.NoAnswer}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if logs := repo.Logs(); logs[0].Transcript != outcome.NoTranscriptMarker {
		t.Fatalf("expected marker, got %q", logs[0].Transcript)
	}
}
