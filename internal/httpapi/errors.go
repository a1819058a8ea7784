package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"outreach-dashboard/internal/auth"
	"outreach-dashboard/internal/contacts"
	"outreach-dashboard/internal/dialer"
	"outreach-dashboard/internal/reporting"
	"outreach-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
)

const (
	CodeBadInput       = "BAD_INPUT"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeRateLimited    = "RATE_LIMITED"
	CodeUnavailable    = "CALLING_UNAVAILABLE"
	CodeProviderFailed = "PROVIDER_FAILED"
	CodeInternal       = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// toEnvelope maps package sentinels onto go-errors envelopes.
func toEnvelope(err error) *goerrors.Error {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return ensureEnvelope(rich)
	}

	switch {
	case errors.Is(err, contacts.ErrNotFound):
		return newAPIError(err.Error(), goerrors.CategoryNotFound, http.StatusNotFound, CodeNotFound)
	case errors.Is(err, contacts.ErrNoValidContacts),
		errors.Is(err, contacts.ErrInvalidOutcome),
		errors.Is(err, contacts.ErrEmptyPatch),
		errors.Is(err, contacts.ErrInvalidDay),
		errors.Is(err, contacts.ErrInvalidArgument),
		errors.Is(err, reporting.ErrInvalidRequest):
		return newAPIError(err.Error(), goerrors.CategoryBadInput, http.StatusBadRequest, CodeBadInput)
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return newAPIError(err.Error(), goerrors.CategoryAuth, http.StatusUnauthorized, CodeUnauthorized)
	case errors.Is(err, dialer.ErrNotConfigured):
		return newAPIError(err.Error(), goerrors.CategoryOperation, http.StatusServiceUnavailable, CodeUnavailable)
	case errors.Is(err, dialer.ErrCapacity), errors.Is(err, dialer.ErrContactBusy):
		return newAPIError(err.Error(), goerrors.CategoryRateLimit, http.StatusTooManyRequests, CodeRateLimited)
	case errors.Is(err, dialer.ErrProvider):
		return goerrors.Wrap(err, goerrors.CategoryExternal, "call provider rejected the request").
			WithCode(http.StatusBadGateway).
			WithTextCode(CodeProviderFailed)
	}

	mapped := ensureEnvelope(goerrors.MapToError(err, goerrors.DefaultErrorMappers()))
	if mapped.Code >= http.StatusInternalServerError {
		mapped.Message = "An unexpected error occurred"
	}
	return mapped
}

func newAPIError(message string, category goerrors.Category, status int, textCode string) *goerrors.Error {
	return goerrors.New(message, category).WithCode(status).WithTextCode(textCode)
}

func ensureEnvelope(err *goerrors.Error) *goerrors.Error {
	if err.Code == 0 {
		err.Code = statusFor(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = textCodeFor(err.Category)
	}
	if err.Category == goerrors.CategoryInternal {
		// internal details stay in the log
		err.Message = "An unexpected error occurred"
	}
	return err
}

func statusFor(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func textCodeFor(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return CodeBadInput
	case goerrors.CategoryNotFound:
		return CodeNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return CodeUnauthorized
	case goerrors.CategoryRateLimit:
		return CodeRateLimited
	default:
		return CodeInternal
	}
}

func badRequest(field, message string) error {
	return goerrors.NewValidation(field+": "+message, goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(CodeBadInput).
		WithMetadata(map[string]any{"field": field})
}

// respondError logs err and writes its envelope.
func respondError(c *gin.Context, err error) {
	env := toEnvelope(err)

	log := logger.FromGin(c)
	if env.Code >= http.StatusInternalServerError {
		log.Error("request failed", "code", env.TextCode, "err", err)
	} else {
		log.Warn("request rejected", "code", env.TextCode, "err", err)
	}

	resp := errorResponse{Error: env.Message, Code: env.TextCode}
	if len(env.Metadata) > 0 {
		resp.Details = env.Metadata
	}
	c.AbortWithStatusJSON(env.Code, resp)
}

func errNotConfigured(component string) error {
	return goerrors.New(component+" not configured", goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(CodeInternal)
}
