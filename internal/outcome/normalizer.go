package outcome

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// NoTranscriptMarker is stored when a call produced neither analysis nor transcript.
const NoTranscriptMarker = "No transcript available"

const transcriptSeparator = "\n\n--- Transcript ---\n"

// Policy holds the conversation-occurred thresholds.
type Policy struct {
	// A conversation happened when the trimmed transcript is longer than
	// MinTranscriptChars or the call lasted longer than MinDurationSeconds.
	MinTranscriptChars int
	MinDurationSeconds int
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{MinTranscriptChars: 10, MinDurationSeconds: 10}
}

// Decision is the contract between the normalizer and the lifecycle updater.
type Decision struct {
	ContactID       string
	Outcome         Outcome
	Transcript      string
	DurationSeconds *int
	RescheduleTo    *time.Time
}

// Result is what Normalize produces for one event.
type Result struct {
	// Ignored is set for event kinds that carry no outcome; Decision is empty.
	Ignored bool
	Kind    string

	Decision Decision

	// Warnings are non-fatal problems (unparseable callback date,
	// unrecognized analysis outcome). Callers log them.
	Warnings []string
}

// Normalizer turns internal events into outcome decisions. It performs no I/O.
type Normalizer struct {
	policy Policy
}

func NewNormalizer(p Policy) *Normalizer {
	return &Normalizer{policy: p}
}

// Normalize derives the decision for ev. Unrecognized kinds are ignored before
// the contact reference is checked.
func (n *Normalizer) Normalize(ev Event) (Result, error) {
	switch ev.Kind {
	case KindCallEnded, KindCallAnalyzed, KindDirect:
	default:
		kind := ev.RawKind
		if kind == "" {
			kind = string(ev.Kind)
		}
		return Result{Ignored: true, Kind: kind}, nil
	}

	if strings.TrimSpace(ev.ContactID) == "" {
		return Result{}, MissingContactReference(ev.Kind)
	}

	res := Result{Kind: string(ev.Kind)}
	d := Decision{ContactID: strings.TrimSpace(ev.ContactID)}
	d.DurationSeconds = durationSeconds(ev.StartedAt, ev.EndedAt)

	switch ev.Kind {
	case KindCallEnded:
		d.Outcome = n.endedOutcome(ev, d.DurationSeconds)
	case KindCallAnalyzed:
		o, warn := analyzedOutcome(ev.Analysis)
		d.Outcome = o
		if warn != "" {
			res.Warnings = append(res.Warnings, warn)
		}
	case KindDirect:
		d.Outcome = ev.DirectOutcome
		if !d.Outcome.Valid() {
			return Result{}, MalformedPayload(nil, "direct outcome is not canonical")
		}
	}

	d.Transcript = buildTranscript(ev.Analysis, ev.Transcript)

	if d.Outcome.Reschedules() && ev.Analysis.CallbackDate != "" {
		at, err := ParseCallbackDate(ev.Analysis.CallbackDate)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("callback date %q not parsed: %v", ev.Analysis.CallbackDate, err))
		} else {
			d.RescheduleTo = &at
		}
	}

	res.Decision = d
	return res, nil
}

func (n *Normalizer) endedOutcome(ev Event, dur *int) Outcome {
	switch ev.DisconnectionReason {
	case "voicemail_reached":
		return Voicemail
	case "dial_no_answer":
		return NoAnswer
	}
	if n.conversationOccurred(ev.Transcript, dur) {
		// Provisional; the analyzed event carries the real result.
		return Completed
	}
	return NoAnswer
}

func (n *Normalizer) conversationOccurred(transcript string, dur *int) bool {
	if len([]rune(strings.TrimSpace(transcript))) > n.policy.MinTranscriptChars {
		return true
	}
	return dur != nil && *dur > n.policy.MinDurationSeconds
}

func analyzedOutcome(a Analysis) (Outcome, string) {
	raw := strings.TrimSpace(a.Outcome)
	if raw == "" {
		return FromSentiment(a.Sentiment), ""
	}
	if o, ok := FromProvider(raw); ok {
		return o, ""
	}
	// Unknown vocabulary never reaches the contact; sentiment decides instead.
	return FromSentiment(a.Sentiment), fmt.Sprintf("unrecognized analysis outcome %q, used sentiment", raw)
}

func durationSeconds(start, end time.Time) *int {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil
	}
	s := int(math.Round(end.Sub(start).Seconds()))
	return &s
}

func buildTranscript(a Analysis, transcript string) string {
	var parts []string
	if a.Summary != "" {
		parts = append(parts, "Summary: "+a.Summary)
	}
	if a.PaymentDate != "" {
		parts = append(parts, "Payment Date: "+a.PaymentDate)
	}
	if a.PaymentAmount != "" {
		parts = append(parts, "Payment Amount: "+a.PaymentAmount)
	}
	if a.PaymentMethod != "" {
		parts = append(parts, "Method: "+a.PaymentMethod)
	}
	if a.CallbackDate != "" {
		parts = append(parts, "Callback: "+a.CallbackDate)
	}
	header := strings.Join(parts, " | ")
	transcript = strings.TrimSpace(transcript)

	switch {
	case header != "" && transcript != "":
		return header + transcriptSeparator + transcript
	case header != "":
		return header
	case transcript != "":
		return transcript
	default:
		return NoTranscriptMarker
	}
}

var callbackDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
}

// ParseCallbackDate accepts the date shapes the analysis agent emits.
// Values without a zone are read as UTC.
func ParseCallbackDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range callbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format")
}
