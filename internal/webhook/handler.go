package webhook

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"time"

	"outreach-dashboard/internal/contacts"
	"outreach-dashboard/internal/outcome"
	"outreach-dashboard/internal/retell"
	"outreach-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
)

const (
	tokenHeader  = "X-Webhook-Token"
	maxBodyBytes = 1 << 20
)

// Applier persists one decision. Implemented by *lifecycle.Updater.
type Applier interface {
	Apply(ctx context.Context, d outcome.Decision) (contacts.CallLog, error)
}

// CallTracker is told when a call has ended so its dial slot can be freed.
// Implemented by *dialer.Service.
type CallTracker interface {
	CallFinished(ctx context.Context, contactID string) error
}

// Handler serves POST /api/webhooks/outcome.
//
// Provider JSON is translated at the retell boundary; everything after that
// works on outcome.Event. No business rules live here.
type Handler struct {
	Normalizer *outcome.Normalizer
	Updater    Applier

	// Calls is optional.
	Calls CallTracker

	// Token, when non-empty, must match the X-Webhook-Token header.
	Token string
}

type successResponse struct {
	Success      bool            `json:"success"`
	ContactID    string          `json:"contactId"`
	Outcome      outcome.Outcome `json:"outcome"`
	CallbackDate *time.Time      `json:"callbackDate"`
	LogID        string          `json:"logId"`
}

type ignoredResponse struct {
	Ignored bool   `json:"ignored"`
	Event   string `json:"event"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func (h Handler) HandleOutcome(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Normalizer == nil || h.Updater == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "webhook not configured", Code: outcome.CodePersistenceFailure})
		return
	}
	if h.Token != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(tokenHeader)), []byte(h.Token)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid webhook token", Code: "UNAUTHORIZED"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		h.fail(c, outcome.MalformedPayload(err, "could not read webhook body"))
		return
	}

	ev, err := retell.Translate(body)
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.Normalizer.Normalize(ev)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.Ignored {
		log.Info("webhook event ignored", "event", res.Kind)
		c.JSON(http.StatusOK, ignoredResponse{Ignored: true, Event: res.Kind})
		return
	}
	for _, w := range res.Warnings {
		log.Warn("webhook outcome warning", "event", res.Kind, "contact_id", res.Decision.ContactID, "warning", w)
	}

	entry, err := h.Updater.Apply(c.Request.Context(), res.Decision)
	if err != nil {
		h.fail(c, err)
		return
	}

	if ev.Kind == outcome.KindCallEnded && h.Calls != nil {
		if err := h.Calls.CallFinished(c.Request.Context(), res.Decision.ContactID); err != nil {
			log.Warn("call slot release failed", "contact_id", res.Decision.ContactID, "err", err)
		}
	}

	log.Info("webhook outcome applied",
		"event", res.Kind,
		"contact_id", res.Decision.ContactID,
		"outcome", string(res.Decision.Outcome),
		"rescheduled", res.Decision.RescheduleTo != nil,
	)
	c.JSON(http.StatusOK, successResponse{
		Success:      true,
		ContactID:    res.Decision.ContactID,
		Outcome:      res.Decision.Outcome,
		CallbackDate: res.Decision.RescheduleTo,
		LogID:        entry.ID,
	})
}

// fail renders a go-errors envelope. Anything else is an internal failure.
func (h Handler) fail(c *gin.Context, err error) {
	log := logger.FromGin(c)

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		rich = goerrors.Wrap(err, goerrors.CategoryInternal, "failed to process webhook").
			WithCode(http.StatusInternalServerError).
			WithTextCode(outcome.CodePersistenceFailure)
	}
	status := rich.Code
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		log.Error("webhook failed", "code", rich.TextCode, "err", err)
	} else {
		log.Warn("webhook rejected", "code", rich.TextCode, "err", err)
	}

	msg := rich.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Code: rich.TextCode})
}
