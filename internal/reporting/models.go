package reporting

import (
	"time"

	"outreach-dashboard/internal/outcome"
)

// TimeRange is a half-open [From, To) filter. Zero bounds are open.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type OutcomeSummaryRequest struct {
	Range TimeRange `json:"range"`
}

// OutcomeSummary aggregates call logs. Every canonical outcome appears in
// ByOutcome, with zero counts included.
type OutcomeSummary struct {
	Range TimeRange `json:"range"`

	TotalCalls int                     `json:"total_calls"`
	ByOutcome  map[outcome.Outcome]int `json:"by_outcome"`

	// Duration figures only cover calls whose duration is known.
	TimedCalls             int `json:"timed_calls"`
	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// A call connected when a conversation took place.
	ConnectedCalls int     `json:"connected_calls"`
	PaidCalls      int     `json:"paid_calls"`
	ConnectionRate float64 `json:"connection_rate"`
	ConversionRate float64 `json:"conversion_rate"`
}
