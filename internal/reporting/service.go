package reporting

import (
	"context"
	"errors"
	"time"

	"outreach-dashboard/internal/contacts"
	"outreach-dashboard/internal/outcome"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting. Reports read the
// append-only call log; contacts.PostgresRepo and contacts.MemoryRepo satisfy it.
type Repository interface {
	LogsBetween(ctx context.Context, from, to *time.Time) ([]contacts.CallLogView, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// Daily groups every call log by its UTC creation day (YYYY-MM-DD), newest first within a day.
func (s *Service) Daily(ctx context.Context) (map[string][]contacts.CallLogView, error) {
	if s.repo == nil {
		return nil, errors.New("reporting: repository not configured")
	}
	logs, err := s.repo.LogsBetween(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]contacts.CallLogView)
	for _, l := range logs {
		day := l.CreatedAt.UTC().Format(contacts.DayLayout)
		out[day] = append(out[day], l)
	}
	return out, nil
}

func (s *Service) OutcomeSummary(ctx context.Context, req OutcomeSummaryRequest) (OutcomeSummary, error) {
	r := req.Range
	if !r.From.IsZero() && !r.To.IsZero() && !r.To.After(r.From) {
		return OutcomeSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return OutcomeSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.LogsBetween(ctx, timePtr(r.From), timePtr(r.To))
	if err != nil {
		return OutcomeSummary{}, err
	}

	out := OutcomeSummary{Range: r, ByOutcome: make(map[outcome.Outcome]int)}
	for _, o := range outcome.All() {
		out.ByOutcome[o] = 0
	}
	for _, l := range rows {
		out.TotalCalls++
		out.ByOutcome[l.Outcome]++
		if l.DurationSeconds != nil {
			out.TimedCalls++
			out.TotalDurationSeconds += *l.DurationSeconds
		}
		switch l.Outcome {
		case outcome.Completed, outcome.Scheduled, outcome.Callback:
			out.ConnectedCalls++
		case outcome.Paid:
			out.ConnectedCalls++
			out.PaidCalls++
		}
	}
	if out.TimedCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TimedCalls
	}
	if out.TotalCalls > 0 {
		out.ConnectionRate = float64(out.ConnectedCalls) / float64(out.TotalCalls)
		out.ConversionRate = float64(out.PaidCalls) / float64(out.TotalCalls)
	}
	return out, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
