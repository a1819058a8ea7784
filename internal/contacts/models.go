package contacts

import (
	"time"

	"outreach-dashboard/internal/outcome"
)

// Contact is a person to be called.
//
// Invariant: LastOutcome is always canonical (see outcome.Outcome.Valid).
type Contact struct {
	ID              string          `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	PhoneNumber     string          `json:"phoneNumber" db:"phone_number"`
	ServicesOffered string          `json:"servicesOffered,omitempty" db:"services_offered"`
	BillOrPayment   string          `json:"billOrPayment,omitempty" db:"bill_or_payment"`
	LastOutcome     outcome.Outcome `json:"lastOutcome" db:"last_outcome"`
	NextCallDate    *time.Time      `json:"nextCallDate" db:"next_call_date"`
	Transcript      *string         `json:"transcript" db:"transcript"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CallLog is an immutable record of one processed call outcome.
// Rows are only ever inserted by the outcome pipeline.
type CallLog struct {
	ID              string          `json:"id" db:"id"`
	ContactID       string          `json:"contactId" db:"contact_id"`
	Outcome         outcome.Outcome `json:"outcome" db:"outcome"`
	Transcript      string          `json:"transcript" db:"transcript"`
	DurationSeconds *int            `json:"duration" db:"duration_seconds"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
}

// CallLogView is a call log joined with its contact's name for listings.
type CallLogView struct {
	CallLog
	ContactName string `json:"contactName"`
}

// NewContact is the input to Create. Rows without name or phone are skipped.
type NewContact struct {
	Name            string     `json:"name"`
	PhoneNumber     string     `json:"phoneNumber"`
	ServicesOffered string     `json:"servicesOffered"`
	BillOrPayment   string     `json:"billOrPayment"`
	NextCallDate    *time.Time `json:"nextCallDate"`
	LastOutcome     string     `json:"lastOutcome"`
}

// Patch is a partial update. Nil fields are left untouched.
// ClearNextCallDate distinguishes "set to null" from "not sent".
type Patch struct {
	Name              *string
	PhoneNumber       *string
	ServicesOffered   *string
	BillOrPayment     *string
	NextCallDate      *time.Time
	ClearNextCallDate bool
	LastOutcome       *outcome.Outcome
	Transcript        *string
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.PhoneNumber == nil && p.ServicesOffered == nil && p.BillOrPayment == nil &&
		p.NextCallDate == nil && !p.ClearNextCallDate && p.LastOutcome == nil && p.Transcript == nil
}

// OutcomeUpdate is the contact half of an atomic outcome write.
// A nil NextCallDate leaves the stored date unchanged.
type OutcomeUpdate struct {
	ContactID    string
	Outcome      outcome.Outcome
	Transcript   string
	NextCallDate *time.Time
	UpdatedAt    time.Time
}
