package contacts

import (
	"context"
	"errors"
	"strings"
	"time"

	"outreach-dashboard/internal/audit"
	"outreach-dashboard/internal/outcome"

	"github.com/google/uuid"
)

var (
	ErrNoValidContacts = errors.New("contacts: no valid contacts (missing name or phone)")
	ErrInvalidOutcome  = errors.New("contacts: outcome must be one of the canonical values")
	ErrEmptyPatch      = errors.New("contacts: nothing to update")
	ErrInvalidDay      = errors.New("contacts: day must be YYYY-MM-DD")
)

// DayLayout is the format of day filters and report keys.
const DayLayout = "2006-01-02"

// AuditLogger records operator actions. Implemented by *audit.Service.
type AuditLogger interface {
	LogOutcomeOverride(ctx context.Context, a audit.Actor, contactID, from, to string) error
	LogContactDeleted(ctx context.Context, a audit.Actor, contactID string) error
	LogArchive(ctx context.Context, a audit.Actor, day string, deleted int) error
}

// Service holds the operator-facing contact workflows. The webhook outcome
// path does not go through here; see internal/lifecycle.
type Service struct {
	repo  Repository
	audit AuditLogger
	clock func() time.Time
}

func NewService(repo Repository, audit AuditLogger) *Service {
	return &Service{repo: repo, audit: audit, clock: time.Now}
}

// CreateResult reports how many rows were stored.
type CreateResult struct {
	Count   int `json:"count"`
	Skipped int `json:"skipped"`
}

// Create stores new contacts. Rows missing a name or phone number are
// skipped; if none remain ErrNoValidContacts is returned.
func (s *Service) Create(ctx context.Context, rows []NewContact) (CreateResult, error) {
	now := s.clock().UTC()

	valid := make([]Contact, 0, len(rows))
	for _, in := range rows {
		name := strings.TrimSpace(in.Name)
		phone := strings.TrimSpace(in.PhoneNumber)
		if name == "" || phone == "" {
			continue
		}
		o := outcome.Pending
		if strings.TrimSpace(in.LastOutcome) != "" {
			parsed, ok := outcome.ParseCanonical(in.LastOutcome)
			if !ok {
				return CreateResult{}, ErrInvalidOutcome
			}
			o = parsed
		}
		valid = append(valid, Contact{
			ID:              uuid.NewString(),
			Name:            name,
			PhoneNumber:     phone,
			ServicesOffered: in.ServicesOffered,
			BillOrPayment:   in.BillOrPayment,
			LastOutcome:     o,
			NextCallDate:    utcPtr(in.NextCallDate),
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	if len(valid) == 0 {
		return CreateResult{}, ErrNoValidContacts
	}

	n, err := s.repo.Insert(ctx, valid)
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Count: n, Skipped: len(rows) - len(valid)}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Contact, error) {
	return s.repo.Get(ctx, id)
}

// Update applies a partial patch. A change of lastOutcome is a manual
// override and is audited with the acting operator.
func (s *Service) Update(ctx context.Context, actor audit.Actor, id string, p Patch) (Contact, error) {
	if p.Empty() {
		return Contact{}, ErrEmptyPatch
	}
	if p.LastOutcome != nil && !p.LastOutcome.Valid() {
		return Contact{}, ErrInvalidOutcome
	}

	var before outcome.Outcome
	if p.LastOutcome != nil {
		cur, err := s.repo.Get(ctx, id)
		if err != nil {
			return Contact{}, err
		}
		before = cur.LastOutcome
	}
	p.NextCallDate = utcPtr(p.NextCallDate)

	c, err := s.repo.Update(ctx, id, p, s.clock().UTC())
	if err != nil {
		return Contact{}, err
	}

	if p.LastOutcome != nil && before != *p.LastOutcome && s.audit != nil {
		_ = s.audit.LogOutcomeOverride(ctx, actor, id, string(before), string(*p.LastOutcome))
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, actor audit.Actor, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.LogContactDeleted(ctx, actor, id)
	}
	return nil
}

// List returns contacts newest first. A non-empty day keeps only contacts
// whose nextCallDate falls on that UTC day.
func (s *Service) List(ctx context.Context, day string) ([]Contact, error) {
	from, to, err := DayWindow(day)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, from, to)
}

func (s *Service) RecentLogs(ctx context.Context, limit int) ([]CallLogView, error) {
	return s.repo.RecentLogs(ctx, limit)
}

// MarkCalling flags a contact as having an outbound call in flight.
func (s *Service) MarkCalling(ctx context.Context, id string) error {
	return s.repo.SetOutcome(ctx, id, outcome.Calling, s.clock().UTC())
}

// Archive deletes call logs created on day, or every log when day is empty.
func (s *Service) Archive(ctx context.Context, actor audit.Actor, day string) (int, error) {
	from, to, err := DayWindow(day)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteLogs(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if s.audit != nil {
		_ = s.audit.LogArchive(ctx, actor, strings.TrimSpace(day), n)
	}
	return n, nil
}

// DayWindow converts YYYY-MM-DD into a UTC [start, start+24h) window.
// An empty day yields a nil window.
func DayWindow(day string) (*time.Time, *time.Time, error) {
	day = strings.TrimSpace(day)
	if day == "" {
		return nil, nil, nil
	}
	start, err := time.ParseInLocation(DayLayout, day, time.UTC)
	if err != nil {
		return nil, nil, ErrInvalidDay
	}
	end := start.AddDate(0, 0, 1)
	return &start, &end, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
