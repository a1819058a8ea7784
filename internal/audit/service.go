package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogOutcomeOverride records a manual lastOutcome change made by an operator.
func (s *Service) LogOutcomeOverride(ctx context.Context, a Actor, contactID, from, to string) error {
	if contactID == "" {
		return ErrInvalidEvent
	}
	return s.Append(ctx, Event{
		Type:        EventTypeOutcomeOverride,
		ActorUserID: a.UserID,
		ActorRole:   a.Role,
		IPAddress:   a.IP,
		ContactID:   contactID,
		Message:     "outcome overridden",
		Metadata:    metadataJSON(map[string]any{"from": from, "to": to}),
	})
}

func (s *Service) LogContactDeleted(ctx context.Context, a Actor, contactID string) error {
	if contactID == "" {
		return ErrInvalidEvent
	}
	return s.Append(ctx, Event{
		Type:        EventTypeContactDeleted,
		ActorUserID: a.UserID,
		ActorRole:   a.Role,
		IPAddress:   a.IP,
		ContactID:   contactID,
		Message:     "contact deleted",
	})
}

// LogArchive records a call log purge. day is empty when every log was removed.
func (s *Service) LogArchive(ctx context.Context, a Actor, day string, deleted int) error {
	return s.Append(ctx, Event{
		Type:        EventTypeLogsArchived,
		ActorUserID: a.UserID,
		ActorRole:   a.Role,
		IPAddress:   a.IP,
		Message:     "call logs archived",
		Metadata:    metadataJSON(map[string]any{"day": day, "deleted": deleted}),
	})
}

func metadataJSON(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
