package dialer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outreach-dashboard/internal/contacts"
	"outreach-dashboard/internal/retell"
)

var (
	ErrNotConfigured = errors.New("dialer: outbound calling is not configured")
	ErrCapacity      = errors.New("dialer: too many calls in flight")
	ErrProvider      = errors.New("dialer: provider rejected the call")
)

// CallCreator places one outbound call. Implemented by *retell.Client.
type CallCreator interface {
	CreatePhoneCall(ctx context.Context, req retell.CallRequest) (retell.CallResponse, error)
}

// ContactStore is the slice of contacts.Service the dialer needs.
type ContactStore interface {
	Get(ctx context.Context, id string) (contacts.Contact, error)
	MarkCalling(ctx context.Context, id string) error
}

// Service triggers outbound calls for contacts.
type Service struct {
	contacts ContactStore
	calls    CallCreator
	slots    Slots
}

// NewService wires the dialer. calls may be nil when the provider is not
// configured; Trigger then returns ErrNotConfigured.
func NewService(store ContactStore, calls CallCreator, slots Slots) *Service {
	return &Service{contacts: store, calls: calls, slots: slots}
}

type TriggerResult struct {
	ContactID string `json:"contactId"`
	CallID    string `json:"callId"`
}

// Trigger dials contactID and marks it Calling once the provider accepts.
func (s *Service) Trigger(ctx context.Context, contactID string) (TriggerResult, error) {
	if s.calls == nil {
		return TriggerResult{}, ErrNotConfigured
	}

	c, err := s.contacts.Get(ctx, contactID)
	if err != nil {
		return TriggerResult{}, err
	}

	if s.slots != nil {
		ok, err := s.slots.Acquire(ctx, c.ID)
		if err != nil {
			return TriggerResult{}, err
		}
		if !ok {
			return TriggerResult{}, ErrCapacity
		}
	}

	resp, err := s.calls.CreatePhoneCall(ctx, retell.CallRequest{
		ToNumber:  c.PhoneNumber,
		ContactID: c.ID,
		Variables: variablesFor(c),
	})
	if err != nil {
		s.release(ctx, c.ID)
		return TriggerResult{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	if err := s.contacts.MarkCalling(ctx, c.ID); err != nil {
		return TriggerResult{}, err
	}
	return TriggerResult{ContactID: c.ID, CallID: resp.CallID}, nil
}

// CallFinished frees the slot taken by Trigger for contactID.
func (s *Service) CallFinished(ctx context.Context, contactID string) error {
	if s.slots == nil {
		return nil
	}
	return s.slots.Release(ctx, contactID)
}

func (s *Service) release(ctx context.Context, contactID string) {
	if s.slots != nil {
		_ = s.slots.Release(ctx, contactID)
	}
}

func variablesFor(c contacts.Contact) retell.DynamicVariables {
	return retell.DynamicVariables{
		ClientName:       c.Name,
		InvoiceAmount:    orNA(c.BillOrPayment),
		InvoiceDate:      invoiceDate(c.CreatedAt),
		ServicesRendered: orNA(c.ServicesOffered),
		PhoneNumber:      c.PhoneNumber,
	}
}

func invoiceDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(retell.InvoiceDateLayout)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
