package contacts

import (
	"context"
	"errors"
	"testing"
	"time"

	"outreach-dashboard/internal/audit"
	"outreach-dashboard/internal/outcome"
)

func newTestService() (*Service, *MemoryRepo, *audit.MemoryRepo) {
	repo := NewMemoryRepo()
	auditRepo := audit.NewMemoryRepo()
	svc := NewService(repo, audit.NewService(auditRepo))
	svc.clock = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo, auditRepo
}

func TestService_CreateSkipsIncompleteRows(t *testing.T) {
	svc, repo, _ := newTestService()

	res, err := svc.Create(context.Background(), []NewContact{
		{Name: "Ada", PhoneNumber: "+15550100"},
		{Name: "No Phone"},
		{PhoneNumber: "+15550101"},
		{Name: "Grace", PhoneNumber: "+15550102", LastOutcome: "scheduled"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Count != 2 || res.Skipped != 2 {
		t.Fatalf("unexpected result %+v", res)
	}

	all, _ := repo.List(context.Background(), nil, nil)
	byName := map[string]Contact{}
	for _, c := range all {
		byName[c.Name] = c
	}
	if byName["Ada"].LastOutcome != outcome.Pending {
		t.Fatalf("expected default Pending, got %s", byName["Ada"].LastOutcome)
	}
	if byName["Grace"].LastOutcome != outcome.Scheduled {
		t.Fatalf("expected Scheduled, got %s", byName["Grace"].LastOutcome)
	}
	if byName["Ada"].ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestService_CreateRejects(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Create(context.Background(), []NewContact{{Name: "x"}}); !errors.Is(err, ErrNoValidContacts) {
		t.Fatalf("expected ErrNoValidContacts, got %v", err)
	}
	if _, err := svc.Create(context.Background(), []NewContact{{Name: "x", PhoneNumber: "1", LastOutcome: "success"}}); !errors.Is(err, ErrInvalidOutcome) {
		t.Fatalf("expected ErrInvalidOutcome, got %v", err)
	}
}

func TestService_UpdateAuditsOutcomeOverride(t *testing.T) {
	svc, repo, auditRepo := newTestService()
	_ = repo.Seed(Contact{ID: "c1", Name: "Ada", PhoneNumber: "1", LastOutcome: outcome.NoAnswer})

	paid := outcome.Paid
	actor := audit.Actor{UserID: "admin", Role: "admin", IP: "10.0.0.1"}
	c, err := svc.Update(context.Background(), actor, "c1", Patch{LastOutcome: &paid})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.LastOutcome != outcome.Paid {
		t.Fatalf("expected Paid, got %s", c.LastOutcome)
	}

	evs := auditRepo.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeOutcomeOverride || evs[0].ActorUserID != "admin" {
		t.Fatalf("expected one override event, got %+v", evs)
	}

	// Same outcome again is not an override.
	if _, err := svc.Update(context.Background(), actor, "c1", Patch{LastOutcome: &paid}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(auditRepo.Events()) != 1 {
		t.Fatalf("expected no new audit event")
	}
}

func TestService_UpdateValidation(t *testing.T) {
	svc, repo, _ := newTestService()
	_ = repo.Seed(Contact{ID: "c1", Name: "Ada", PhoneNumber: "1", LastOutcome: outcome.Pending})

	if _, err := svc.Update(context.Background(), audit.Actor{}, "c1", Patch{}); !errors.Is(err, ErrEmptyPatch) {
		t.Fatalf("expected ErrEmptyPatch, got %v", err)
	}
	bogus := outcome.Outcome("Promised")
	if _, err := svc.Update(context.Background(), audit.Actor{}, "c1", Patch{LastOutcome: &bogus}); !errors.Is(err, ErrInvalidOutcome) {
		t.Fatalf("expected ErrInvalidOutcome, got %v", err)
	}
	name := "x"
	if _, err := svc.Update(context.Background(), audit.Actor{}, "missing", Patch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_ListByDay(t *testing.T) {
	svc, repo, _ := newTestService()
	onDay := time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC)
	nextDay := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	_ = repo.Seed(Contact{ID: "a", Name: "A", NextCallDate: &onDay})
	_ = repo.Seed(Contact{ID: "b", Name: "B", NextCallDate: &nextDay})
	_ = repo.Seed(Contact{ID: "c", Name: "C"})

	got, err := svc.List(context.Background(), "2024-05-02")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected only contact a, got %+v", got)
	}

	all, _ := svc.List(context.Background(), "")
	if len(all) != 3 {
		t.Fatalf("expected 3 contacts without filter, got %d", len(all))
	}

	if _, err := svc.List(context.Background(), "05/02/2024"); !errors.Is(err, ErrInvalidDay) {
		t.Fatalf("expected ErrInvalidDay, got %v", err)
	}
}

func TestService_DeleteAndArchiveAreAudited(t *testing.T) {
	svc, repo, auditRepo := newTestService()
	ctx := context.Background()
	_ = repo.Seed(Contact{ID: "c1", Name: "Ada"})
	_ = repo.Seed(Contact{ID: "c2", Name: "Bob"})

	day1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	_ = repo.ApplyOutcome(ctx, OutcomeUpdate{ContactID: "c2", Outcome: outcome.Paid, UpdatedAt: day1}, CallLog{ID: "l1", ContactID: "c2", CreatedAt: day1})
	_ = repo.ApplyOutcome(ctx, OutcomeUpdate{ContactID: "c2", Outcome: outcome.Paid, UpdatedAt: day2}, CallLog{ID: "l2", ContactID: "c2", CreatedAt: day2})

	actor := audit.Actor{UserID: "admin", Role: "admin"}
	if err := svc.Delete(ctx, actor, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, actor, "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	n, err := svc.Archive(ctx, actor, "2024-05-01")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 archived, got %d %v", n, err)
	}
	if logs := repo.Logs(); len(logs) != 1 || logs[0].ID != "l2" {
		t.Fatalf("expected l2 to survive, got %+v", logs)
	}

	evs := auditRepo.Events()
	if len(evs) != 2 || evs[0].Type != audit.EventTypeContactDeleted || evs[1].Type != audit.EventTypeLogsArchived {
		t.Fatalf("unexpected audit trail %+v", evs)
	}
}

func TestService_MarkCalling(t *testing.T) {
	svc, repo, _ := newTestService()
	_ = repo.Seed(Contact{ID: "c1", Name: "Ada", LastOutcome: outcome.Pending})

	if err := svc.MarkCalling(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	c, _ := repo.Get(context.Background(), "c1")
	if c.LastOutcome != outcome.Calling {
		t.Fatalf("expected Calling, got %s", c.LastOutcome)
	}
	if err := svc.MarkCalling(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
