package posthog

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultHost is used when no host override is configured
const DefaultHost = "https://app.posthog.com"

// ErrMissingCredentials is returned before any network call when the API key or project
// ID is not configured.
var ErrMissingCredentials = errors.New("posthog: API key and project ID are required")

// Auth holds upstream credentials and the API base URL
type Auth struct {
	apiKey    string
	projectID string
	host      string
}

// NewAuth creates an Auth. An empty host selects DefaultHost.
func NewAuth(apiKey, projectID, host string) *Auth {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = DefaultHost
	}
	return &Auth{
		apiKey:    strings.TrimSpace(apiKey),
		projectID: strings.TrimSpace(projectID),
		host:      host,
	}
}

// Validate reports ErrMissingCredentials if the API key or project ID is empty
func (a *Auth) Validate() error {
	if a.apiKey == "" || a.projectID == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Headers returns the bearer token headers for an API request
func (a *Auth) Headers() http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+a.apiKey)
	h.Set("Content-Type", "application/json")
	return h
}

// APIURL returns the REST base path scoped to the configured project
func (a *Auth) APIURL() string {
	return fmt.Sprintf("%s/api/projects/%s", a.host, a.projectID)
}

// ProjectID returns the configured project identifier
func (a *Auth) ProjectID() string {
	return a.projectID
}

// Host returns the configured host
func (a *Auth) Host() string {
	return a.host
}
