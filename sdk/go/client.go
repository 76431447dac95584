package brdflowsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal brdflow HTTP API client.
type Client struct {
	BaseURL    string
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, actorID string) *Client {
	return &Client{
		BaseURL: baseURL,
		ActorID: actorID,
		Timeout: 10 * time.Second,
	}
}

// Thread is a conversation entry on a request.
type Thread struct {
	ID           string `json:"id,omitempty"`
	Title        string `json:"title"`
	Date         string `json:"date,omitempty"`
	Time         string `json:"time,omitempty"`
	Participants string `json:"participants,omitempty"`
	Transcript   string `json:"transcript,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Request represents the API stakeholder request model (partial).
type Request struct {
	ID              string            `json:"id"`
	ReqTitle        string            `json:"reqTitle"`
	Owner           string            `json:"owner"`
	Tenant          string            `json:"tenant"`
	Priority        string            `json:"priority"`
	Brief           string            `json:"brief"`
	Status          string            `json:"status"`
	CreatedBy       string            `json:"createdBy"`
	Threads         []Thread          `json:"threads"`
	BRDMaster       map[string]string `json:"brdMaster,omitempty"`
	ReviewerComment string            `json:"reviewerComment,omitempty"`
}

// CreateRequest is the payload for a new stakeholder request.
type CreateRequest struct {
	ID        string   `json:"id,omitempty"`
	ReqType   string   `json:"reqType,omitempty"`
	Title     string   `json:"title"`
	Owner     string   `json:"owner,omitempty"`
	Tenant    string   `json:"tenant,omitempty"`
	Priority  string   `json:"priority,omitempty"`
	Brief     string   `json:"brief"`
	Threads   []Thread `json:"threads,omitempty"`
	CreatedBy string   `json:"createdBy,omitempty"`
}

// ITState is the IT workflow view of an approved request.
type ITState struct {
	Workflow struct {
		Stages   map[string]string `json:"stages"`
		Timeline string            `json:"timeline"`
		SitNotes string            `json:"sitNotes"`
	} `json:"workflow"`
	Feasibility struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	} `json:"feasibility"`
	Percent      int    `json:"percent"`
	CurrentStage string `json:"currentStage"`
}

// Summary is the IT dashboard.
type Summary struct {
	Approved       int            `json:"approved"`
	Feasibility    map[string]int `json:"feasibility"`
	InProgress     int            `json:"inProgress"`
	Delivered      int            `json:"delivered"`
	FinancialQueue []string       `json:"financialQueue"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entityKind"`
	EntityID   string         `json:"entityId"`
	ActorID    string         `json:"actorId"`
	Payload    map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// CreateRequest creates a stakeholder request.
func (c *Client) CreateRequest(ctx context.Context, in CreateRequest) (Request, error) {
	var resp Request
	err := c.do(ctx, http.MethodPost, "requests", in, &resp)
	return resp, err
}

// ListRequests returns requests filtered by status and origin; blank means any.
func (c *Client) ListRequests(ctx context.Context, status, origin string) ([]Request, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if origin != "" {
		q.Set("origin", origin)
	}
	endpoint := "requests"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items []Request `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// GetRequest fetches a request by id.
func (c *Client) GetRequest(ctx context.Context, id string) (Request, error) {
	var resp Request
	err := c.do(ctx, http.MethodGet, requestPath(id, ""), nil, &resp)
	return resp, err
}

// SaveDraft replaces the BRD draft with the given field values.
func (c *Client) SaveDraft(ctx context.Context, id string, fields map[string]string) (Request, error) {
	var resp Request
	err := c.do(ctx, http.MethodPut, requestPath(id, "draft"), fields, &resp)
	return resp, err
}

// Generate fills the blank draft fields.
func (c *Client) Generate(ctx context.Context, id string) (Request, error) {
	var resp Request
	err := c.do(ctx, http.MethodPost, requestPath(id, "generate"), nil, &resp)
	return resp, err
}

// Send hands the draft to the stakeholder for review.
func (c *Client) Send(ctx context.Context, id string) (Request, error) {
	var resp Request
	err := c.do(ctx, http.MethodPost, requestPath(id, "send"), nil, &resp)
	return resp, err
}

// Review records the stakeholder decision: approved or changes_requested.
func (c *Client) Review(ctx context.Context, id, decision, comment string) (Request, error) {
	var resp Request
	body := map[string]string{"decision": decision, "comment": comment}
	err := c.do(ctx, http.MethodPost, requestPath(id, "review"), body, &resp)
	return resp, err
}

// AddThread attaches a conversation thread.
func (c *Client) AddThread(ctx context.Context, id string, thread Thread) (Request, error) {
	var resp Request
	err := c.do(ctx, http.MethodPost, requestPath(id, "threads"), thread, &resp)
	return resp, err
}

// Reply posts a follow-up message as stakeholder, ba or it.
func (c *Client) Reply(ctx context.Context, id, from, text string) (Request, error) {
	var resp Request
	body := map[string]string{"from": from, "text": text}
	err := c.do(ctx, http.MethodPost, requestPath(id, "replies"), body, &resp)
	return resp, err
}

// Document returns the BRD text.
func (c *Client) Document(ctx context.Context, id string) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	err := c.do(ctx, http.MethodGet, requestPath(id, "document"), nil, &resp)
	return resp.Text, err
}

// PDF returns the masked BRD PDF.
func (c *Client) PDF(ctx context.Context, id string) ([]byte, error) {
	var buf bytes.Buffer
	err := c.do(ctx, http.MethodGet, requestPath(id, "pdf"), nil, &buf)
	return buf.Bytes(), err
}

// IT returns the IT workflow, creating it for approved requests.
func (c *Client) IT(ctx context.Context, id string) (ITState, error) {
	var resp ITState
	err := c.do(ctx, http.MethodGet, requestPath(id, "it"), nil, &resp)
	return resp, err
}

// SetStage overrides a stage status.
func (c *Client) SetStage(ctx context.Context, id, stage, status string) (ITState, error) {
	var resp ITState
	err := c.do(ctx, http.MethodPut, requestPath(id, "it/stages/"+url.PathEscape(stage)), map[string]string{"status": status}, &resp)
	return resp, err
}

// SetFeasibilityNotes replaces the feasibility notes.
func (c *Client) SetFeasibilityNotes(ctx context.Context, id, text string) (ITState, error) {
	return c.putText(ctx, id, "it/notes", text)
}

// SetTimeline replaces the delivery timeline.
func (c *Client) SetTimeline(ctx context.Context, id, text string) (ITState, error) {
	return c.putText(ctx, id, "it/timeline", text)
}

// SetSitNotes replaces the SIT notes.
func (c *Client) SetSitNotes(ctx context.Context, id, text string) (ITState, error) {
	return c.putText(ctx, id, "it/sit", text)
}

// Feasibility records IT's feasibility decision.
func (c *Client) Feasibility(ctx context.Context, id, decision string) (ITState, error) {
	var resp ITState
	err := c.do(ctx, http.MethodPost, requestPath(id, "it/feasibility"), map[string]string{"decision": decision}, &resp)
	return resp, err
}

// Financial records the financial head's decision.
func (c *Client) Financial(ctx context.Context, id, decision, comment string) (ITState, error) {
	var resp ITState
	body := map[string]string{"decision": decision, "comment": comment}
	err := c.do(ctx, http.MethodPost, requestPath(id, "it/financial"), body, &resp)
	return resp, err
}

// Summary returns the IT dashboard.
func (c *Client) Summary(ctx context.Context) (Summary, error) {
	var resp Summary
	err := c.do(ctx, http.MethodGet, "summary", nil, &resp)
	return resp, err
}

// Events returns the first page of events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing after cursor.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) putText(ctx context.Context, id, sub, text string) (ITState, error) {
	var resp ITState
	err := c.do(ctx, http.MethodPut, requestPath(id, sub), map[string]string{"text": text}, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
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
	if c.ActorID != "" {
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	switch dst := out.(type) {
	case nil:
		return nil
	case *bytes.Buffer:
		_, err := io.Copy(dst, resp.Body)
		return err
	default:
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

func requestPath(id, sub string) string {
	p := "requests/" + url.PathEscape(id)
	if sub != "" {
		p += "/" + sub
	}
	return p
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
