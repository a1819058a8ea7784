package outcome

import "strings"

// Outcome is the canonical contact status. Contacts and call logs only ever
// carry values from this closed set; raw provider strings are mapped first.
type Outcome string

const (
	Pending   Outcome = "Pending"
	Calling   Outcome = "Calling"
	Completed Outcome = "Completed"
	Voicemail Outcome = "Voicemail"
	NoAnswer  Outcome = "NoAnswer"
	Paid      Outcome = "Paid"
	Scheduled Outcome = "Scheduled"
	Callback  Outcome = "Callback"
	Failed    Outcome = "Failed"
)

// All lists the canonical set in lifecycle order.
func All() []Outcome {
	return []Outcome{Pending, Calling, Completed, Voicemail, NoAnswer, Paid, Scheduled, Callback, Failed}
}

func (o Outcome) Valid() bool {
	switch o {
	case Pending, Calling, Completed, Voicemail, NoAnswer, Paid, Scheduled, Callback, Failed:
		return true
	default:
		return false
	}
}

// Reschedules reports whether a provider callback date may move nextCallDate.
func (o Outcome) Reschedules() bool {
	return o == Callback || o == Scheduled
}

// providerVocabulary maps the analysis agent's output vocabulary onto the
// canonical set. Keys are lower-case and trimmed.
var providerVocabulary = map[string]Outcome{
	"paid":      Paid,
	"success":   Paid,
	"scheduled": Scheduled,
	"callback":  Callback,
	"dispute":   Failed,
	"no answer": Failed,
	"no_answer": Failed,
	"failed":    Failed,
	"voicemail": Voicemail,
	"completed": Completed,
}

// FromProvider maps a raw analysis outcome. ok is false for values outside
// the provider vocabulary.
func FromProvider(raw string) (Outcome, bool) {
	o, ok := providerVocabulary[strings.ToLower(strings.TrimSpace(raw))]
	return o, ok
}

// ParseCanonical matches canonical names only, ignoring case.
func ParseCanonical(raw string) (Outcome, bool) {
	key := strings.TrimSpace(raw)
	for _, o := range All() {
		if strings.EqualFold(key, string(o)) {
			return o, true
		}
	}
	return "", false
}

// Parse accepts either a canonical name (any case) or a provider vocabulary
// word. Used for the direct webhook form.
func Parse(raw string) (Outcome, bool) {
	if o, ok := ParseCanonical(raw); ok {
		return o, true
	}
	return FromProvider(raw)
}

// FromSentiment is the fallback when the analysis carries no explicit outcome.
func FromSentiment(sentiment string) Outcome {
	switch strings.ToLower(strings.TrimSpace(sentiment)) {
	case "positive":
		return Paid
	case "negative":
		return Failed
	default:
		return Completed
	}
}
