package retell

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"outreach-dashboard/internal/config"
)

func testConfig(baseURL string) config.RetellConfig {
	return config.RetellConfig{APIKey: "key_123", AgentID: "agent_1", FromNumber: "+15550000", BaseURL: baseURL}
}

func TestCreatePhoneCall(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/create-phone-call" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key_123" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"call_id":"call_abc","call_status":"registered"}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	resp, err := c.CreatePhoneCall(context.Background(), CallRequest{
		ToNumber:  "+15550100",
		ContactID: "c1",
		Variables: DynamicVariables{ClientName: "Ada", InvoiceAmount: "$120", InvoiceDate: "May 1, 2024", ServicesRendered: "Cleaning", PhoneNumber: "+15550100"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.CallID != "call_abc" {
		t.Fatalf("unexpected call id %q", resp.CallID)
	}

	if got["from_number"] != "+15550000" || got["to_number"] != "+15550100" || got["override_agent_id"] != "agent_1" {
		t.Fatalf("unexpected body %v", got)
	}
	meta, _ := got["metadata"].(map[string]any)
	if meta["contact_id"] != "c1" {
		t.Fatalf("expected contact_id in metadata, got %v", got["metadata"])
	}
	vars, _ := got["retell_llm_dynamic_variables"].(map[string]any)
	if vars["Client_Name"] != "Ada" || vars["Invoice_Date"] != "May 1, 2024" {
		t.Fatalf("unexpected dynamic variables %v", vars)
	}
}

func TestCreatePhoneCall_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error_message":"invalid to_number"}`))
	}))
	defer srv.Close()

	c, _ := NewClient(testConfig(srv.URL))
	_, err := c.CreatePhoneCall(context.Background(), CallRequest{ToNumber: "bad", ContactID: "c1"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", apiErr.Status)
	}
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	if _, err := NewClient(config.RetellConfig{APIKey: "k"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
