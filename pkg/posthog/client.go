package posthog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/stackpulse/pkg/events"
)

const defaultTimeout = 30 * time.Second

// Endpoint names reported to request observers
const (
	EndpointEvents   = "events"
	EndpointPersons  = "persons"
	EndpointInsights = "insights"
	EndpointQuery    = "query"
)

// APIError is returned for any non-2xx response
type APIError struct {
	StatusCode int
	Status     string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("posthog %s request failed: %s", e.Endpoint, e.Status)
}

// RequestObserver is called once per completed upstream request. status is 0 when the
// request failed before a response was received.
type RequestObserver func(endpoint string, status int)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. The client's transport is used as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRequestObserver registers a callback for request outcomes
func WithRequestObserver(fn RequestObserver) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

// Client issues requests against the PostHog REST API
type Client struct {
	auth       *Auth
	httpClient *http.Client
	observe    RequestObserver
}

// NewClient creates a client whose transport is instrumented with OpenTelemetry
func NewClient(auth *Auth, opts ...Option) *Client {
	c := &Client{
		auth: auth,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		observe: func(string, int) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EventQuery filters an events fetch. Zero values are omitted from the request.
type EventQuery struct {
	Limit  int
	After  time.Time
	Before time.Time
	Event  string
}

func (q EventQuery) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if !q.After.IsZero() {
		v.Set("after", q.After.UTC().Format(time.RFC3339Nano))
	}
	if !q.Before.IsZero() {
		v.Set("before", q.Before.UTC().Format(time.RFC3339Nano))
	}
	if q.Event != "" {
		v.Set("event", q.Event)
	}
	return v
}

// EventsPage is one page of the events endpoint
type EventsPage struct {
	Results []events.RawEvent `json:"results"`
	Next    string            `json:"next,omitempty"`
}

// PersonsPage is one page of the persons endpoint
type PersonsPage struct {
	Results []events.Person `json:"results"`
	Next    string          `json:"next,omitempty"`
}

// Insight is a saved insight definition with its cached result
type Insight struct {
	ID          int             `json:"id"`
	ShortID     string          `json:"short_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Filters     json.RawMessage `json:"filters,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	LastRefresh string          `json:"last_refresh,omitempty"`
}

// InsightsPage is one page of the insights endpoint
type InsightsPage struct {
	Results []Insight `json:"results"`
	Next    string    `json:"next,omitempty"`
}

// QueryResult is the response of the query endpoint
type QueryResult struct {
	Columns []string          `json:"columns,omitempty"`
	Types   json.RawMessage   `json:"types,omitempty"`
	Results []json.RawMessage `json:"results"`
}

// HogQLQuery builds the request body for a HogQL query
func HogQLQuery(query string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"kind":  "HogQLQuery",
			"query": query,
		},
	}
}

// FetchEvents fetches a single page of events
func (c *Client) FetchEvents(ctx context.Context, q EventQuery) (*EventsPage, error) {
	var page EventsPage
	if err := c.do(ctx, http.MethodGet, EndpointEvents, "/events/", q.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchPersons fetches a single page of persons
func (c *Client) FetchPersons(ctx context.Context, limit int) (*PersonsPage, error) {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var page PersonsPage
	if err := c.do(ctx, http.MethodGet, EndpointPersons, "/persons/", v, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchInsights fetches saved insights. params are passed through as query parameters.
func (c *Client) FetchInsights(ctx context.Context, params url.Values) (*InsightsPage, error) {
	var page InsightsPage
	if err := c.do(ctx, http.MethodGet, EndpointInsights, "/insights/", params, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ExecuteQuery posts an arbitrary query body, such as the output of HogQLQuery
func (c *Client) ExecuteQuery(ctx context.Context, body interface{}) (*QueryResult, error) {
	var result QueryResult
	if err := c.do(ctx, http.MethodPost, EndpointQuery, "/query/", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, path string, params url.Values, body, out interface{}) error {
	if err := c.auth.Validate(); err != nil {
		return err
	}

	u := c.auth.APIURL() + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header = c.auth.Headers()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, 0)
		return fmt.Errorf("posthog %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Endpoint: endpoint}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// ValidateCredentials reports ErrMissingCredentials without issuing a request
func (c *Client) ValidateCredentials() error {
	return c.auth.Validate()
}

// ProjectID returns the project the client is scoped to
func (c *Client) ProjectID() string {
	return c.auth.ProjectID()
}
