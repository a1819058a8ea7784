package outcome

import "time"

// SchemaVersion tags the internal event shape produced by provider adapters.
// Adapters translate provider payloads into Event; nothing past the adapter
// boundary reads provider JSON.
const SchemaVersion = "v1"

// EventKind identifies the lifecycle point an Event describes.
type EventKind string

const (
	KindCallEnded    EventKind = "call_ended"
	KindCallAnalyzed EventKind = "call_analyzed"

	// KindDirect is the simplified {contactId, outcome, transcript} form.
	KindDirect EventKind = "direct"

	// KindUnrecognized marks any provider event we do not process.
	KindUnrecognized EventKind = "unrecognized"
)

// Event is the provider-agnostic webhook event, schema v1.
type Event struct {
	SchemaVersion string
	Kind          EventKind

	// RawKind echoes the provider's own event name.
	RawKind string

	ContactID string

	Transcript          string
	DisconnectionReason string

	// StartedAt/EndedAt are zero when the provider omitted them.
	StartedAt time.Time
	EndedAt   time.Time

	Analysis Analysis

	// DirectOutcome is only set for KindDirect.
	DirectOutcome Outcome
}

// Analysis holds post-call analysis fields. Empty strings mean absent.
type Analysis struct {
	Outcome       string
	Summary       string
	Sentiment     string
	PaymentDate   string
	PaymentAmount string
	PaymentMethod string
	CallbackDate  string
}
