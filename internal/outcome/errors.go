package outcome

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes returned to webhook callers.
const (
	CodeMalformedPayload        = "MALFORMED_PAYLOAD"
	CodeMissingContactReference = "MISSING_CONTACT_REFERENCE"
	CodeContactNotFound         = "CONTACT_NOT_FOUND"
	CodePersistenceFailure      = "PERSISTENCE_FAILURE"
)

func MalformedPayload(source error, message string) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryBadInput).
			WithCode(http.StatusBadRequest).
			WithTextCode(CodeMalformedPayload)
	}
	return goerrors.Wrap(source, goerrors.CategoryBadInput, message).
		WithCode(http.StatusBadRequest).
		WithTextCode(CodeMalformedPayload)
}

func MissingContactReference(kind EventKind) error {
	err := goerrors.New("missing contact_id in call metadata", goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(CodeMissingContactReference)
	err.WithMetadata(map[string]any{"event": string(kind)})
	return err
}

func ContactNotFound(contactID string) error {
	err := goerrors.New("contact not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(CodeContactNotFound)
	err.WithMetadata(map[string]any{"contact_id": contactID})
	return err
}

func PersistenceFailure(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryInternal, "failed to persist call outcome").
		WithCode(http.StatusInternalServerError).
		WithTextCode(CodePersistenceFailure)
}

// HasCode reports whether err is a go-errors envelope carrying textCode.
func HasCode(err error, textCode string) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == textCode
}
