package metricsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/stackpulse/pkg/analytics"
	"github.com/platinummonkey/stackpulse/pkg/clock"
	"github.com/platinummonkey/stackpulse/pkg/observability"
	"github.com/platinummonkey/stackpulse/pkg/storage"
)

const (
	contentTypeJSON = "application/json"
	documentCacheID = "document"
)

// Options configures a Store
type Options struct {
	DocumentKey     string
	SyncStateKey    string
	CacheDuration   time.Duration
	RefreshCooldown time.Duration

	// RefreshLockTTL caps how long a running refresh holds the RefreshLock when its
	// release never arrives.
	RefreshLockTTL time.Duration

	// L1TTL bounds how long a decoded document is reused without re-reading the object
	// store. Zero disables the in-process cache.
	L1TTL time.Duration
}

// DefaultOptions returns the standard key layout and windows
func DefaultOptions() Options {
	return Options{
		DocumentKey:     "analytics/metrics.json",
		SyncStateKey:    "analytics/sync-state.json",
		CacheDuration:   6 * time.Hour,
		RefreshCooldown: 5 * time.Minute,
		RefreshLockTTL:  2 * time.Minute,
		L1TTL:           time.Minute,
	}
}

// SyncState records the last successful sync
type SyncState struct {
	LastSyncTime time.Time `json:"lastSyncTime"`
	EventCount   int       `json:"eventCount"`
}

// CacheObserver is told whether a document lookup was served from the L1 cache
type CacheObserver func(hit bool)

// Store reads and writes the metrics document and sync state
type Store struct {
	objects storage.ObjectStore
	clock   clock.Clock
	opts    Options
	logger  *observability.Logger
	l1      *lru.LRU[string, *analytics.MetricsDocument]
	lock    RefreshLock
	observe CacheObserver
}

// Option configures optional Store collaborators
type Option func(*Store)

// WithRefreshLock installs a lock claimed by ClaimRefresh
func WithRefreshLock(lock RefreshLock) Option {
	return func(s *Store) {
		s.lock = lock
	}
}

// WithCacheObserver registers a callback for L1 cache lookups
func WithCacheObserver(fn CacheObserver) Option {
	return func(s *Store) {
		s.observe = fn
	}
}

// New creates a Store. A nil clock uses the real clock; a nil logger discards logs.
func New(objects storage.ObjectStore, clk clock.Clock, logger *observability.Logger, opts Options, options ...Option) *Store {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	s := &Store{
		objects: objects,
		clock:   clk,
		opts:    opts,
		logger:  logger.WithField("component", "metricsstore"),
		observe: func(bool) {},
	}
	if opts.L1TTL > 0 {
		s.l1 = lru.NewLRU[string, *analytics.MetricsDocument](1, nil, opts.L1TTL)
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// GetCachedData returns the persisted document when its lastUpdated is within the cache
// duration, and nil otherwise. Read and decode failures are logged and reported as nil.
func (s *Store) GetCachedData(ctx context.Context) *analytics.MetricsDocument {
	doc := s.LoadDocument(ctx)
	if doc == nil {
		return nil
	}
	if s.clock.Now().Sub(doc.LastUpdated) > s.opts.CacheDuration {
		return nil
	}
	return doc
}

// LoadDocument returns the persisted document regardless of age, or nil when absent or
// unreadable.
func (s *Store) LoadDocument(ctx context.Context) *analytics.MetricsDocument {
	if s.l1 != nil {
		if doc, ok := s.l1.Get(documentCacheID); ok {
			s.observe(true)
			return doc
		}
		s.observe(false)
	}

	var doc analytics.MetricsDocument
	if !s.readJSON(ctx, s.opts.DocumentKey, &doc) {
		return nil
	}
	if s.l1 != nil {
		s.l1.Add(documentCacheID, &doc)
	}
	return &doc
}

// StoreCachedData writes doc, including its raw events, and the matching sync state.
func (s *Store) StoreCachedData(ctx context.Context, doc *analytics.MetricsDocument) error {
	if doc == nil {
		return errors.New("metrics document is nil")
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics document: %w", err)
	}
	if err := s.objects.Put(ctx, s.opts.DocumentKey, body, contentTypeJSON); err != nil {
		return fmt.Errorf("failed to write metrics document: %w", err)
	}
	if s.l1 != nil {
		s.l1.Add(documentCacheID, doc)
	}

	state := SyncState{LastSyncTime: doc.LastUpdated, EventCount: len(doc.RawEvents)}
	body, err = json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	if err := s.objects.Put(ctx, s.opts.SyncStateKey, body, contentTypeJSON); err != nil {
		return fmt.Errorf("failed to write sync state: %w", err)
	}
	return nil
}

// GetSyncState returns the persisted sync state, or nil when absent or unreadable
func (s *Store) GetSyncState(ctx context.Context) *SyncState {
	var state SyncState
	if !s.readJSON(ctx, s.opts.SyncStateKey, &state) {
		return nil
	}
	if state.LastSyncTime.IsZero() {
		return nil
	}
	return &state
}

// GetLastSyncTimestamp returns the last sync time. ok is false when no sync has been
// recorded. The timestamp never expires.
func (s *Store) GetLastSyncTimestamp(ctx context.Context) (t time.Time, ok bool) {
	state := s.GetSyncState(ctx)
	if state == nil {
		return time.Time{}, false
	}
	return state.LastSyncTime, true
}

// IsRefreshAllowed reports whether the refresh cooldown has elapsed since the document
// was last written. When it has not, retryAfter is the remaining wait.
func (s *Store) IsRefreshAllowed(ctx context.Context) (allowed bool, retryAfter time.Duration) {
	written, err := s.objects.LastModified(ctx, s.opts.DocumentKey)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.WithError(err).Warn("Failed to read document write time; allowing refresh")
		}
		return true, 0
	}

	elapsed := s.clock.Now().Sub(written)
	if elapsed >= s.opts.RefreshCooldown {
		return true, 0
	}
	return false, s.opts.RefreshCooldown - elapsed
}

// ClaimRefresh applies IsRefreshAllowed and then, when a RefreshLock is configured,
// claims the lock for the duration of the refresh so that only one caller runs at a
// time. When allowed, the caller must invoke release once the refresh returns,
// whatever its outcome.
func (s *Store) ClaimRefresh(ctx context.Context) (allowed bool, retryAfter time.Duration, release func(context.Context)) {
	noop := func(context.Context) {}

	allowed, retryAfter = s.IsRefreshAllowed(ctx)
	if !allowed || s.lock == nil {
		return allowed, retryAfter, noop
	}

	ttl := s.opts.RefreshLockTTL
	if ttl <= 0 {
		ttl = s.opts.RefreshCooldown
	}
	token, remaining, err := s.lock.TryAcquire(ctx, ttl)
	if err != nil {
		s.logger.WithError(err).Warn("Refresh lock unavailable; falling back to advisory check")
		return true, 0, noop
	}
	if token == "" {
		return false, remaining, noop
	}
	return true, 0, func(ctx context.Context) {
		if err := s.lock.Release(ctx, token); err != nil {
			s.logger.WithError(err).Warn("Failed to release refresh lock")
		}
	}
}

// Invalidate drops the in-process copy of the document
func (s *Store) Invalidate() {
	if s.l1 != nil {
		s.l1.Purge()
	}
}

// HealthCheck verifies the object store is reachable
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.objects.HealthCheck(ctx)
}

func (s *Store) readJSON(ctx context.Context, key string, out interface{}) bool {
	obj, err := s.objects.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.WithError(err).WithField("key", key).Warn("Failed to read object")
		}
		return false
	}
	if err := json.Unmarshal(obj.Body, out); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Discarding malformed object")
		return false
	}
	return true
}
