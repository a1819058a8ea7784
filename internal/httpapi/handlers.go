package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"outreach-dashboard/internal/audit"
	"outreach-dashboard/internal/auth"
	"outreach-dashboard/internal/contacts"
	"outreach-dashboard/internal/dialer"
	"outreach-dashboard/internal/outcome"
	"outreach-dashboard/internal/reporting"
	"outreach-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	defaultLogLimit = 10
	maxLogLimit     = 500
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth      *auth.Manager
	Directory *auth.Directory
	Contacts  *contacts.Service
	Dialer    *dialer.Service
	Reports   *reporting.Service

	// Now defaults to time.Now.
	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func actorFrom(c *gin.Context) audit.Actor {
	ctx := c.Request.Context()
	uid, _ := auth.UserID(ctx)
	role, _ := auth.Role(ctx)
	return audit.Actor{UserID: uid, Role: role, IP: auth.ClientIP(ctx)}
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type tokenResponse struct {
	auth.TokenPair
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login checks operator credentials and issues a JWT token pair.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil || h.Directory == nil {
		respondError(c, errNotConfigured("auth"))
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("body", "username and password required"))
		return
	}

	cred, err := h.Directory.Authenticate(req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	pair, err := h.Auth.IssuePair(h.now(), cred.Username, cred.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.FromGin(c).Info("operator logged in", "username", cred.Username, "role", cred.Role)
	c.JSON(http.StatusOK, tokenResponse{TokenPair: pair, Username: cred.Username, Role: cred.Role})
}

// Refresh exchanges a refresh token for a new pair.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil || h.Directory == nil {
		respondError(c, errNotConfigured("auth"))
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("refreshToken", "required"))
		return
	}

	pair, cred, err := h.Auth.Refresh(h.now(), req.RefreshToken, h.Directory)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{TokenPair: pair, Username: cred.Username, Role: cred.Role})
}

// --- Contacts ---

func (h Handlers) ListContacts(c *gin.Context) {
	rows, err := h.Contacts.List(c.Request.Context(), c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// CreateContacts accepts a single contact object or an array of them.
func (h Handlers) CreateContacts(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, badRequest("body", "could not read body"))
		return
	}
	raw = bytes.TrimSpace(raw)

	var rows []contacts.NewContact
	switch {
	case len(raw) == 0:
		respondError(c, badRequest("body", "required"))
		return
	case raw[0] == '[':
		err = json.Unmarshal(raw, &rows)
	default:
		var one contacts.NewContact
		err = json.Unmarshal(raw, &one)
		rows = []contacts.NewContact{one}
	}
	if err != nil {
		respondError(c, badRequest("body", "invalid json"))
		return
	}

	res, err := h.Contacts.Create(c.Request.Context(), rows)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// UpdateContact applies a partial patch. Sending "nextCallDate": null clears
// the date; omitting it leaves the stored value.
func (h Handlers) UpdateContact(c *gin.Context) {
	var fields map[string]json.RawMessage
	if err := c.ShouldBindJSON(&fields); err != nil {
		respondError(c, badRequest("body", "invalid json"))
		return
	}

	p, err := patchFrom(fields)
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := h.Contacts.Update(c.Request.Context(), actorFrom(c), c.Param("id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func patchFrom(fields map[string]json.RawMessage) (contacts.Patch, error) {
	var p contacts.Patch

	str := func(key string) (*string, error) {
		raw, ok := fields[key]
		if !ok {
			return nil, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, badRequest(key, "must be a string")
		}
		return &s, nil
	}

	var err error
	if p.Name, err = str("name"); err != nil {
		return p, err
	}
	if p.PhoneNumber, err = str("phoneNumber"); err != nil {
		return p, err
	}
	if p.ServicesOffered, err = str("servicesOffered"); err != nil {
		return p, err
	}
	if p.BillOrPayment, err = str("billOrPayment"); err != nil {
		return p, err
	}
	if p.Transcript, err = str("transcript"); err != nil {
		return p, err
	}

	if raw, ok := fields["nextCallDate"]; ok {
		if string(bytes.TrimSpace(raw)) == "null" {
			p.ClearNextCallDate = true
		} else {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return p, badRequest("nextCallDate", "must be a date string or null")
			}
			t, ok := parseTime(s)
			if !ok {
				return p, badRequest("nextCallDate", "must be RFC3339 or YYYY-MM-DD")
			}
			p.NextCallDate = &t
		}
	}

	s, err := str("lastOutcome")
	if err != nil {
		return p, err
	}
	if s != nil {
		o, ok := outcome.ParseCanonical(*s)
		if !ok {
			return p, contacts.ErrInvalidOutcome
		}
		p.LastOutcome = &o
	}
	return p, nil
}

func (h Handlers) DeleteContact(c *gin.Context) {
	if err := h.Contacts.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TriggerCall places an outbound call to the contact.
func (h Handlers) TriggerCall(c *gin.Context) {
	if h.Dialer == nil {
		respondError(c, dialer.ErrNotConfigured)
		return
	}
	res, err := h.Dialer.Trigger(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	logger.FromGin(c).Info("outbound call placed", "contact_id", res.ContactID, "call_id", res.CallID)
	c.JSON(http.StatusOK, res)
}

// --- Logs & reports ---

func (h Handlers) RecentLogs(c *gin.Context) {
	limit := defaultLogLimit
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(c, badRequest("limit", "must be a positive integer"))
			return
		}
		limit = min(n, maxLogLimit)
	}

	logs, err := h.Contacts.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h Handlers) DailyReport(c *gin.Context) {
	days, err := h.Reports.Daily(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

// OutcomeSummary accepts from/to as RFC3339 or YYYY-MM-DD. A bare "to" day
// is inclusive.
func (h Handlers) OutcomeSummary(c *gin.Context) {
	var r reporting.TimeRange
	if v := strings.TrimSpace(c.Query("from")); v != "" {
		t, ok := parseTime(v)
		if !ok {
			respondError(c, badRequest("from", "must be RFC3339 or YYYY-MM-DD"))
			return
		}
		r.From = t
	}
	if v := strings.TrimSpace(c.Query("to")); v != "" {
		t, ok := parseTime(v)
		if !ok {
			respondError(c, badRequest("to", "must be RFC3339 or YYYY-MM-DD"))
			return
		}
		if len(v) == len(contacts.DayLayout) {
			t = t.AddDate(0, 0, 1)
		}
		r.To = t
	}

	sum, err := h.Reports.OutcomeSummary(c.Request.Context(), reporting.OutcomeSummaryRequest{Range: r})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

type archiveRequest struct {
	Date string `json:"date"`
}

// Archive deletes call logs. An optional {"date": "YYYY-MM-DD"} body (or
// ?date=) limits it to one day.
func (h Handlers) Archive(c *gin.Context) {
	day := c.Query("date")

	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, badRequest("body", "could not read body"))
		return
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		var req archiveRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			respondError(c, badRequest("body", "invalid json"))
			return
		}
		if req.Date != "" {
			day = req.Date
		}
	}

	n, err := h.Contacts.Archive(c.Request.Context(), actorFrom(c), day)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.FromGin(c).Info("call logs archived", "day", day, "deleted", n)
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": n})
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(contacts.DayLayout, s, time.UTC); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
