package retell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"outreach-dashboard/internal/config"

	"github.com/go-resty/resty/v2"
)

const createPhoneCallPath = "/v2/create-phone-call"

// InvoiceDateLayout renders dates for the voice agent ("January 2, 2006").
const InvoiceDateLayout = "January 2, 2006"

var ErrNotConfigured = errors.New("retell: api key, agent id and from number are required")

// APIError is a non-2xx response from the provider.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("retell status %d: %s", e.Status, e.Body)
}

// Client places outbound calls through the Retell REST API.
type Client struct {
	client     *resty.Client
	agentID    string
	fromNumber string
}

func NewClient(cfg config.RetellConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIKey).
		SetTimeout(timeout)

	return &Client{client: c, agentID: cfg.AgentID, fromNumber: cfg.FromNumber}, nil
}

// DynamicVariables fill the {{Variable_Name}} placeholders of the agent prompt.
type DynamicVariables struct {
	ClientName       string `json:"Client_Name"`
	InvoiceAmount    string `json:"Invoice_Amount"`
	InvoiceDate      string `json:"Invoice_Date"`
	ServicesRendered string `json:"Services_Rendered"`
	PhoneNumber      string `json:"Phone_Number"`
}

// CallRequest describes one outbound call.
type CallRequest struct {
	ToNumber  string
	ContactID string
	Variables DynamicVariables
}

type createPhoneCallRequest struct {
	FromNumber      string            `json:"from_number"`
	ToNumber        string            `json:"to_number"`
	OverrideAgentID string            `json:"override_agent_id"`
	Variables       DynamicVariables  `json:"retell_llm_dynamic_variables"`
	Metadata        map[string]string `json:"metadata"`
}

type CallResponse struct {
	CallID     string `json:"call_id"`
	CallStatus string `json:"call_status"`
}

// CreatePhoneCall asks the provider to dial req.ToNumber. The contact id is
// echoed back in webhook metadata as contact_id.
func (c *Client) CreatePhoneCall(ctx context.Context, req CallRequest) (CallResponse, error) {
	if req.ToNumber == "" || req.ContactID == "" {
		return CallResponse{}, fmt.Errorf("retell: to number and contact id required")
	}

	body := createPhoneCallRequest{
		FromNumber:      c.fromNumber,
		ToNumber:        req.ToNumber,
		OverrideAgentID: c.agentID,
		Variables:       req.Variables,
		Metadata:        map[string]string{"contact_id": req.ContactID},
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&body).
		Post(createPhoneCallPath)
	if err != nil {
		return CallResponse{}, fmt.Errorf("retell request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return CallResponse{}, &APIError{Status: resp.StatusCode(), Body: resp.String()}
	}

	var out CallResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return CallResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
