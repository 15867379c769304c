package posthog

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(NewAuth("phx_test", "123", srv.URL), opts...)
}

func TestAuth_Validate(t *testing.T) {
	assert.ErrorIs(t, NewAuth("", "123", "").Validate(), ErrMissingCredentials)
	assert.ErrorIs(t, NewAuth("key", " ", "").Validate(), ErrMissingCredentials)
	assert.NoError(t, NewAuth("key", "123", "").Validate())
}

func TestAuth_URLAndHeaders(t *testing.T) {
	a := NewAuth("key", "123", "")
	assert.Equal(t, "https://app.posthog.com/api/projects/123", a.APIURL())

	a = NewAuth("key", "123", "https://eu.posthog.com/")
	assert.Equal(t, "https://eu.posthog.com/api/projects/123", a.APIURL())
	assert.Equal(t, "Bearer key", a.Headers().Get("Authorization"))
}

func TestClient_FetchEvents(t *testing.T) {
	after := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	var got *http.Request

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results":[{"id":"e1","event":"project_created","timestamp":"2025-03-02T00:00:00Z","properties":{"framework":"react"},"person":{"id":42}}]}`)
	})

	page, err := c.FetchEvents(t.Context(), EventQuery{Limit: 1000, After: after, Event: "project_created"})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "e1", page.Results[0].ID)
	assert.Equal(t, "42", page.Results[0].PersonID())

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/projects/123/events/", got.URL.Path)
	assert.Equal(t, "1000", got.URL.Query().Get("limit"))
	assert.Equal(t, "2025-03-01T00:00:00Z", got.URL.Query().Get("after"))
	assert.Equal(t, "project_created", got.URL.Query().Get("event"))
	assert.False(t, got.URL.Query().Has("before"))
	assert.Equal(t, "Bearer phx_test", got.Header.Get("Authorization"))
}

func TestClient_FetchPersons(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/123/persons/", r.URL.Path)
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `{"results":[{"id":"p1","distinct_ids":["a","b"]},{"id":7}]}`)
	})

	page, err := c.FetchPersons(t.Context(), 500)
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	assert.Equal(t, []string{"a", "b"}, page.Results[0].DistinctIDs)
	assert.EqualValues(t, "7", page.Results[1].ID)
}

func TestClient_FetchInsights(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/123/insights/", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("saved"))
		_, _ = io.WriteString(w, `{"results":[{"id":1,"name":"Weekly signups","result":[1,2,3]}]}`)
	})

	page, err := c.FetchInsights(t.Context(), url.Values{"saved": {"true"}})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Weekly signups", page.Results[0].Name)
	assert.JSONEq(t, `[1,2,3]`, string(page.Results[0].Result))
}

func TestClient_ExecuteQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/projects/123/query/", r.URL.Path)

		var body map[string]map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "HogQLQuery", body["query"]["kind"])
		assert.Equal(t, "select count() from events", body["query"]["query"])

		_, _ = io.WriteString(w, `{"columns":["count()"],"results":[[12]]}`)
	})

	res, err := c.ExecuteQuery(t.Context(), HogQLQuery("select count() from events"))
	require.NoError(t, err)
	assert.Equal(t, []string{"count()"}, res.Columns)
	require.Len(t, res.Results, 1)
	assert.JSONEq(t, `[12]`, string(res.Results[0]))
}

func TestClient_NonSuccessStatus(t *testing.T) {
	var observed []int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}, WithRequestObserver(func(endpoint string, status int) {
		assert.Equal(t, EndpointEvents, endpoint)
		observed = append(observed, status)
	}))

	_, err := c.FetchEvents(t.Context(), EventQuery{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "401 Unauthorized")
	assert.Equal(t, []int{http.StatusUnauthorized}, observed)
}

func TestClient_MissingCredentialsSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(NewAuth("", "123", srv.URL))
	_, err := c.FetchEvents(t.Context(), EventQuery{Limit: 10})
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.False(t, called)
}

func TestClient_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":`)
	})
	_, err := c.FetchPersons(t.Context(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode persons")
}
