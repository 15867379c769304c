package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/stackpulse/pkg/analytics"
	"github.com/platinummonkey/stackpulse/pkg/clock"
	"github.com/platinummonkey/stackpulse/pkg/httputil"
	"github.com/platinummonkey/stackpulse/pkg/observability"
)

// DocumentStore is the read side of the metrics store used by the handlers
type DocumentStore interface {
	GetCachedData(ctx context.Context) *analytics.MetricsDocument
	GetLastSyncTimestamp(ctx context.Context) (time.Time, bool)
	ClaimRefresh(ctx context.Context) (allowed bool, retryAfter time.Duration, release func(context.Context))
}

// Syncer runs one sync
type Syncer interface {
	UpdateAnalytics(ctx context.Context) (*analytics.MetricsDocument, error)
}

// section extracts one named sub-object. ok is false when the document lacks it.
type section func(doc *analytics.MetricsDocument) (value interface{}, ok bool)

// sections maps /analytics/{name} to the matching part of the document
var sections = map[string]section{
	"events": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.Events, d.Events != nil
	},
	"frameworks": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.Frameworks, d.Frameworks != nil
	},
	"features": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.Features, d.Features != nil
	},
	"stacks": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.StackCombinations, d.StackCombinations != nil
	},
	"developer-experience": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.DeveloperExperience, d.DeveloperExperience != nil
	},
	"performance": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.Performance, d.Performance != nil
	},
	"journey": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.UserJourney, d.UserJourney != nil
	},
	"ai-automation": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.AIAutomation, d.AIAutomation != nil
	},
	"errors": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.Errors, d.Errors != nil
	},
	"plugins": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.Plugins, d.Plugins != nil
	},
	"quality": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.Quality, d.Quality != nil
	},
	"templates": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.Templates, d.Templates != nil
	},
	"user-preferences": func(d *analytics.MetricsDocument) (interface{}, bool) {
		return d.UserPreferences, d.UserPreferences != nil
	},
}

// Endpoints lists the routes reported by /analytics/status
var Endpoints = []string{
	"/analytics",
	"/analytics/data",
	"/analytics/refresh",
	"/analytics/status",
	"/analytics/events",
	"/analytics/frameworks",
	"/analytics/features",
	"/analytics/stacks",
	"/analytics/developer-experience",
	"/analytics/performance",
	"/analytics/journey",
	"/analytics/ai-automation",
	"/analytics/errors",
	"/analytics/plugins",
	"/analytics/quality",
	"/analytics/templates",
	"/analytics/user-preferences",
}

// AnalyticsHandlers provides analytics API endpoints
type AnalyticsHandlers struct {
	store       DocumentStore
	syncer      Syncer
	clock       clock.Clock
	logger      *observability.Logger
	metrics     *observability.Metrics
	syncTimeout time.Duration
	version     string
}

// HandlerOption configures AnalyticsHandlers
type HandlerOption func(*AnalyticsHandlers)

// WithHandlerLogger sets the logger
func WithHandlerLogger(logger *observability.Logger) HandlerOption {
	return func(h *AnalyticsHandlers) {
		h.logger = logger
	}
}

// WithHandlerMetrics enables the refresh rejection counter
func WithHandlerMetrics(m *observability.Metrics) HandlerOption {
	return func(h *AnalyticsHandlers) {
		h.metrics = m
	}
}

// WithHandlerClock replaces the real clock
func WithHandlerClock(clk clock.Clock) HandlerOption {
	return func(h *AnalyticsHandlers) {
		h.clock = clk
	}
}

// WithSyncTimeout bounds a manual refresh. Zero leaves it bounded by the request only.
func WithSyncTimeout(d time.Duration) HandlerOption {
	return func(h *AnalyticsHandlers) {
		h.syncTimeout = d
	}
}

// WithVersion sets the version reported by /analytics/status
func WithVersion(v string) HandlerOption {
	return func(h *AnalyticsHandlers) {
		h.version = v
	}
}

// NewAnalyticsHandlers creates a new analytics handlers instance
func NewAnalyticsHandlers(store DocumentStore, syncer Syncer, opts ...HandlerOption) *AnalyticsHandlers {
	h := &AnalyticsHandlers{
		store:  store,
		syncer: syncer,
		clock:  clock.Real{},
		logger: observability.NewLogger(observability.ErrorLevel, io.Discard),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers analytics API routes
func (h *AnalyticsHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/analytics", h.getSummary).Methods(http.MethodGet)
	r.HandleFunc("/analytics/data", h.getData).Methods(http.MethodGet)
	r.HandleFunc("/analytics/refresh", h.refresh).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/analytics/status", h.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/analytics/{section}", h.getSection).Methods(http.MethodGet)
}

// getSummary handles GET /analytics
func (h *AnalyticsHandlers) getSummary(w http.ResponseWriter, r *http.Request) {
	doc := h.store.GetCachedData(r.Context())
	if doc == nil {
		httputil.WriteNotFoundError(w, "no analytics data available")
		return
	}
	httputil.WriteSuccess(w, doc.Summary())
}

// getData handles GET /analytics/data. The retained raw events are never served.
func (h *AnalyticsHandlers) getData(w http.ResponseWriter, r *http.Request) {
	doc := h.store.GetCachedData(r.Context())
	if doc == nil {
		httputil.WriteNotFoundError(w, "no analytics data available")
		return
	}
	httputil.WriteSuccess(w, doc.WithoutRawEvents())
}

// getSection handles GET /analytics/{section}
func (h *AnalyticsHandlers) getSection(w http.ResponseWriter, r *http.Request) {
	extract, known := sections[mux.Vars(r)["section"]]
	if !known {
		httputil.WriteNotFoundError(w, "not found")
		return
	}

	doc := h.store.GetCachedData(r.Context())
	if doc == nil {
		httputil.WriteNotFoundError(w, "no analytics data available")
		return
	}
	value, ok := extract(doc)
	if !ok {
		httputil.WriteNotFoundError(w, "no data for "+mux.Vars(r)["section"])
		return
	}
	httputil.WriteSuccess(w, value)
}

// RefreshResponse is returned by a successful refresh
type RefreshResponse struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	LastUpdated time.Time `json:"lastUpdated"`
	TotalEvents int       `json:"totalEvents"`
}

// refresh handles /analytics/refresh. Refreshes inside the cooldown are answered with 429
// and a Retry-After header.
func (h *AnalyticsHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	allowed, retryAfter, release := h.store.ClaimRefresh(ctx)
	if !allowed {
		if h.metrics != nil {
			h.metrics.RefreshRejectedTotal.Inc()
		}
		httputil.WriteTooManyRequests(w, "refresh rate limited", retryAfter)
		return
	}
	defer release(context.WithoutCancel(ctx))

	if h.syncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.syncTimeout)
		defer cancel()
	}

	doc, err := h.syncer.UpdateAnalytics(ctx)
	if err != nil {
		h.logger.WithError(err).WithField("request_id", observability.GetRequestID(ctx)).Error("Manual refresh failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, RefreshResponse{
		Success:     true,
		Message:     "analytics refreshed",
		LastUpdated: doc.LastUpdated,
		TotalEvents: doc.Usage.TotalEvents,
	})
}

// StatusResponse is returned by /analytics/status
type StatusResponse struct {
	Status    string      `json:"status"`
	Service   string      `json:"service"`
	Version   string      `json:"version,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Endpoints []string    `json:"endpoints"`
	Cache     CacheStatus `json:"cache"`
}

// CacheStatus describes the cached document
type CacheStatus struct {
	Available    bool       `json:"available"`
	LastUpdated  *time.Time `json:"lastUpdated,omitempty"`
	AgeSeconds   int64      `json:"ageSeconds,omitempty"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
}

// getStatus handles GET /analytics/status
func (h *AnalyticsHandlers) getStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.clock.Now()

	resp := StatusResponse{
		Status:    observability.StatusHealthy,
		Service:   "stackpulse",
		Version:   h.version,
		Timestamp: now,
		Endpoints: Endpoints,
	}
	if doc := h.store.GetCachedData(ctx); doc != nil {
		lastUpdated := doc.LastUpdated
		resp.Cache.Available = true
		resp.Cache.LastUpdated = &lastUpdated
		resp.Cache.AgeSeconds = int64(now.Sub(lastUpdated).Seconds())
	}
	if last, ok := h.store.GetLastSyncTimestamp(ctx); ok {
		resp.Cache.LastSyncTime = &last
	}
	httputil.WriteSuccess(w, resp)
}
