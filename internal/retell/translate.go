package retell

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"outreach-dashboard/internal/outcome"
)

// Provider event names.
const (
	EventCallEnded    = "call_ended"
	EventCallAnalyzed = "call_analyzed"
)

// translator converts one provider event kind into the internal schema.
type translator func(env envelope) (outcome.Event, error)

var translators = map[string]translator{
	EventCallEnded:    callTranslator(outcome.KindCallEnded),
	EventCallAnalyzed: callTranslator(outcome.KindCallAnalyzed),
}

// envelope is the top-level webhook body. Fields not listed are ignored.
type envelope struct {
	Event        string        `json:"event"`
	Call         *callPayload  `json:"call"`
	Data         *callPayload  `json:"data"`
	Transcript   string        `json:"transcript"`
	CallAnalysis *callAnalysis `json:"call_analysis"`

	// Direct form.
	ContactID      json.RawMessage `json:"contactId"`
	ContactIDSnake json.RawMessage `json:"contact_id"`
	Outcome        string          `json:"outcome"`
}

type callPayload struct {
	CallID              string        `json:"call_id"`
	Metadata            callMetadata  `json:"metadata"`
	Transcript          string        `json:"transcript"`
	DisconnectionReason string        `json:"disconnection_reason"`
	StartTimestamp      json.Number   `json:"start_timestamp"`
	EndTimestamp        json.Number   `json:"end_timestamp"`
	CallAnalysis        *callAnalysis `json:"call_analysis"`
}

type callMetadata struct {
	ContactID json.RawMessage `json:"contact_id"`
}

type callAnalysis struct {
	CallSummary   string         `json:"call_summary"`
	UserSentiment string         `json:"user_sentiment"`
	Custom        map[string]any `json:"custom_analysis_data"`
}

// Translate parses a webhook body into a schema v1 event.
//
// Bodies that are not a JSON object, or whose "event" is not a string, are
// MalformedPayload. Provider events without a registered translator become
// KindUnrecognized so they can be acknowledged and ignored. A body without
// "event" is the direct {contactId, outcome, transcript} form.
func Translate(body []byte) (outcome.Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return outcome.Event{}, outcome.MalformedPayload(nil, "webhook body must be a JSON object")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return outcome.Event{}, outcome.MalformedPayload(err, "webhook body is not valid JSON")
	}

	// Unregistered event kinds are ignored before the typed decode so their
	// fields never need to match the call schema.
	var t translator
	ev, hasEvent := raw["event"]
	if hasEvent {
		var kind *string
		if err := json.Unmarshal(ev, &kind); err != nil || kind == nil {
			return outcome.Event{}, outcome.MalformedPayload(err, "event must be a string")
		}
		var ok bool
		if t, ok = translators[*kind]; !ok {
			return outcome.Event{
				SchemaVersion: outcome.SchemaVersion,
				Kind:          outcome.KindUnrecognized,
				RawKind:       *kind,
			}, nil
		}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return outcome.Event{}, outcome.MalformedPayload(err, "webhook body has unexpected field types")
	}

	if !hasEvent {
		return translateDirect(env)
	}
	return t(env)
}

func callTranslator(kind outcome.EventKind) translator {
	return func(env envelope) (outcome.Event, error) {
		call := env.Call
		if call == nil {
			call = env.Data
		}
		if call == nil {
			call = &callPayload{}
		}

		contactID, err := contactRef(call.Metadata.ContactID)
		if err != nil {
			return outcome.Event{}, err
		}

		transcript := call.Transcript
		if transcript == "" {
			transcript = env.Transcript
		}

		analysis := call.CallAnalysis
		if analysis == nil {
			analysis = env.CallAnalysis
		}

		started, err := providerTime(call.StartTimestamp)
		if err != nil {
			return outcome.Event{}, err
		}
		ended, err := providerTime(call.EndTimestamp)
		if err != nil {
			return outcome.Event{}, err
		}

		return outcome.Event{
			SchemaVersion:       outcome.SchemaVersion,
			Kind:                kind,
			RawKind:             env.Event,
			ContactID:           contactID,
			Transcript:          transcript,
			DisconnectionReason: call.DisconnectionReason,
			StartedAt:           started,
			EndedAt:             ended,
			Analysis:            analysis.toInternal(),
		}, nil
	}
}

func translateDirect(env envelope) (outcome.Event, error) {
	ref := env.ContactID
	if len(ref) == 0 {
		ref = env.ContactIDSnake
	}
	contactID, err := contactRef(ref)
	if err != nil {
		return outcome.Event{}, err
	}

	o, ok := outcome.Parse(env.Outcome)
	if !ok {
		return outcome.Event{}, outcome.MalformedPayload(nil, fmt.Sprintf("unknown outcome %q", env.Outcome))
	}

	return outcome.Event{
		SchemaVersion: outcome.SchemaVersion,
		Kind:          outcome.KindDirect,
		RawKind:       string(outcome.KindDirect),
		ContactID:     contactID,
		Transcript:    env.Transcript,
		DirectOutcome: o,
	}, nil
}

func (a *callAnalysis) toInternal() outcome.Analysis {
	if a == nil {
		return outcome.Analysis{}
	}
	summary := a.CallSummary
	if summary == "" {
		summary = a.custom("Call_Summary", "call_summary")
	}
	return outcome.Analysis{
		Outcome:       a.custom("Outcome", "outcome"),
		Summary:       summary,
		Sentiment:     a.UserSentiment,
		PaymentDate:   a.custom("Agreed_Payment_Date", "agreed_payment_date"),
		PaymentAmount: a.custom("Agreed_Payment_Amount", "agreed_payment_amount"),
		PaymentMethod: a.custom("Payment_Method", "payment_method"),
		CallbackDate:  a.custom("Callback_Date", "callback_date"),
	}
}

// custom returns the first non-empty custom analysis value under keys.
func (a *callAnalysis) custom(keys ...string) string {
	for _, k := range keys {
		v, ok := a.Custom[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch x := v.(type) {
		case string:
			s = x
		case json.Number:
			s = x.String()
		case bool:
			s = strconv.FormatBool(x)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// contactRef accepts metadata.contact_id as a string or a number.
// Absent or empty references return "" and are rejected by the normalizer.
func contactRef(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", outcome.MalformedPayload(nil, "contact_id must be a string or number")
}

// secondsCutoff separates epoch seconds from epoch milliseconds. Any current
// millisecond timestamp is above it; any plausible seconds value is below.
const secondsCutoff = 1e11

// providerTime converts an epoch timestamp. Empty yields the zero time.
func providerTime(n json.Number) (time.Time, error) {
	if n == "" {
		return time.Time{}, nil
	}
	v, err := n.Float64()
	if err != nil {
		return time.Time{}, outcome.MalformedPayload(err, "timestamp must be numeric")
	}
	if v <= 0 {
		return time.Time{}, nil
	}
	if v < secondsCutoff {
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), nil
	}
	return time.UnixMilli(int64(v)).UTC(), nil
}
