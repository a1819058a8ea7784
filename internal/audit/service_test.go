package audit

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestService_AppendRequiresType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected invalid event, got %v", err)
	}
	if err := svc.LogContactDeleted(context.Background(), Actor{}, ""); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected invalid event for missing contact, got %v", err)
	}
}

func TestMemoryRepo_TrailPerContact(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	a := Actor{UserID: "admin", Role: "admin"}

	_ = svc.LogOutcomeOverride(ctx, a, "c1", "Pending", "Paid")
	_ = svc.LogContactDeleted(ctx, a, "c2")
	_ = svc.LogArchive(ctx, a, "", 4)
	_ = svc.LogContactDeleted(ctx, a, "c1")

	trail := repo.ForContact("c1")
	if len(trail) != 2 || trail[0].Type != EventTypeOutcomeOverride || trail[1].Type != EventTypeContactDeleted {
		t.Fatalf("unexpected trail %+v", trail)
	}
	if len(repo.Events()) != 4 {
		t.Fatalf("expected 4 events, got %d", len(repo.Events()))
	}

	dup := repo.Events()[0]
	if err := repo.Append(ctx, dup); err == nil {
		t.Fatalf("expected duplicate id to be rejected")
	}
}

func TestService_LogOutcomeOverride(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	a := Actor{UserID: "admin", Role: "admin", IP: "1.2.3.4"}
	if err := svc.LogOutcomeOverride(context.Background(), a, "c1", "Pending", "Paid"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].IPAddress != "1.2.3.4" || evs[0].ContactID != "c1" {
		t.Fatalf("unexpected event %+v", evs[0])
	}
	if evs[0].Type != EventTypeOutcomeOverride {
		t.Fatalf("expected outcome_override")
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned")
	}

	var meta map[string]any
	if err := json.Unmarshal([]byte(evs[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata not json: %v", err)
	}
	if meta["from"] != "Pending" || meta["to"] != "Paid" {
		t.Fatalf("unexpected metadata %v", meta)
	}
}

func TestPostgresRepo_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	e := Event{ID: "e1", Type: EventTypeLogsArchived, ActorUserID: "admin", ActorRole: "admin", Message: "call logs archived", CreatedAt: at}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WithArgs("e1", "logs_archived", "admin", "admin", "", "", "call logs archived", "", at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = NewPostgresRepo(db).Append(context.Background(), e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
