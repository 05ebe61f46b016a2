package labdesksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Labdesk HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// RFI represents the API RFI model (partial).
type RFI struct {
	ID             string    `json:"id"`
	InitiationType string    `json:"initiation_type"`
	Subject        string    `json:"subject"`
	Description    string    `json:"description"`
	ProjectID      *string   `json:"project_id,omitempty"`
	ClientID       *string   `json:"client_id,omitempty"`
	Status         string    `json:"status"`
	DateSubmitted  string    `json:"date_submitted"`
	DateResolved   *string   `json:"date_resolved,omitempty"`
	Conversation   []Message `json:"conversation"`
}

// Message is one conversation entry.
type Message struct {
	Key                string `json:"key"`
	RFIID              string `json:"rfi_id"`
	Message            string `json:"message"`
	SentByClient       bool   `json:"sent_by_client"`
	IsOfficialResponse bool   `json:"is_official_response"`
	Timestamp          string `json:"timestamp"`
}

// Receipt represents a sample receipt (partial).
type Receipt struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	ClientID   string `json:"client_id"`
	ReceivedBy string `json:"received_by"`
	Status     string `json:"status"`
}

// Quotation represents a quotation (partial).
type Quotation struct {
	ID       string  `json:"id"`
	Number   string  `json:"number"`
	Status   string  `json:"status"`
	Currency string  `json:"currency"`
	Total    float64 `json:"total"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// RFICreateRequest carries the fields for opening an RFI.
type RFICreateRequest struct {
	InitiationType  string   `json:"initiation_type"`
	Subject         string   `json:"subject"`
	Description     string   `json:"description"`
	ProjectID       string   `json:"project_id,omitempty"`
	ClientID        string   `json:"client_id,omitempty"`
	LabInitiator    string   `json:"lab_initiator,omitempty"`
	ClientInitiator string   `json:"client_initiator,omitempty"`
	LabReceivers    []string `json:"lab_receivers,omitempty"`
	ClientReceivers []string `json:"client_receivers,omitempty"`
}

// CreateRFI opens an RFI.
func (c *Client) CreateRFI(ctx context.Context, req RFICreateRequest) (RFI, error) {
	var resp RFI
	err := c.do(ctx, http.MethodPost, "v1/rfis", req, &resp)
	return resp, err
}

// GetRFI fetches an RFI with its conversation.
func (c *Client) GetRFI(ctx context.Context, id string) (RFI, error) {
	var resp RFI
	err := c.do(ctx, http.MethodGet, "v1/rfis/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Reply appends a message to an RFI conversation.
func (c *Client) Reply(ctx context.Context, rfiID, senderID, message string, fromClient bool) (Message, error) {
	body := map[string]any{
		"sender_id":      senderID,
		"message":        message,
		"sent_by_client": fromClient,
	}
	var resp Message
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v1/rfis/%s/messages", url.PathEscape(rfiID)), body, &resp)
	return resp, err
}

// SetOfficialResponse marks or unmarks a message as official.
func (c *Client) SetOfficialResponse(ctx context.Context, rfiID, messageKey string, isOfficial bool) (RFI, error) {
	body := map[string]any{"is_official": isOfficial}
	var resp RFI
	endpoint := fmt.Sprintf("v1/rfis/%s/messages/%s/official", url.PathEscape(rfiID), url.PathEscape(messageKey))
	err := c.do(ctx, http.MethodPut, endpoint, body, &resp)
	return resp, err
}

// UpdateRFIStatus updates the lifecycle status.
func (c *Client) UpdateRFIStatus(ctx context.Context, rfiID, status, reason, changedBy string) (RFI, error) {
	body := map[string]any{
		"status":     status,
		"reason":     reason,
		"changed_by": changedBy,
	}
	var resp RFI
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("v1/rfis/%s/status", url.PathEscape(rfiID)), body, &resp)
	return resp, err
}

// GetReceipt fetches a sample receipt.
func (c *Client) GetReceipt(ctx context.Context, id string) (Receipt, error) {
	var resp Receipt
	err := c.do(ctx, http.MethodGet, "v1/receipts/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// GetQuotation fetches a quotation.
func (c *Client) GetQuotation(ctx context.Context, id string) (Quotation, error) {
	var resp Quotation
	err := c.do(ctx, http.MethodGet, "v1/quotations/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v1/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Events []Event `json:"events"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Events, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
