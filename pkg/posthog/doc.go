// Package posthog is a thin client for the PostHog REST API.
//
// Auth holds the API key, project and host and fails fast when credentials are missing.
// Client issues single-page fetches of events, persons and insights and runs HogQL
// queries. Non-2xx responses are returned as *APIError. There is no pagination and no
// retry: failures propagate to the caller.
//
//	auth := posthog.NewAuth(apiKey, projectID, "")
//	client := posthog.NewClient(auth)
//	page, err := client.FetchEvents(ctx, posthog.EventQuery{Limit: 1000, After: lastSync})
package posthog
