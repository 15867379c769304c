package ingest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/stackpulse/pkg/analytics"
	"github.com/platinummonkey/stackpulse/pkg/clock"
	"github.com/platinummonkey/stackpulse/pkg/events"
	"github.com/platinummonkey/stackpulse/pkg/metricsstore"
	"github.com/platinummonkey/stackpulse/pkg/observability"
	"github.com/platinummonkey/stackpulse/pkg/posthog"
)

var tracer = otel.Tracer("github.com/platinummonkey/stackpulse/pkg/ingest")

// Sync modes, also used as metric labels
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

// Source is the upstream event API
type Source interface {
	ValidateCredentials() error
	ProjectID() string
	FetchEvents(ctx context.Context, q posthog.EventQuery) (*posthog.EventsPage, error)
	FetchPersons(ctx context.Context, limit int) (*posthog.PersonsPage, error)
}

// DocumentStore persists the metrics document and the sync state
type DocumentStore interface {
	LoadDocument(ctx context.Context) *analytics.MetricsDocument
	GetLastSyncTimestamp(ctx context.Context) (time.Time, bool)
	StoreCachedData(ctx context.Context, doc *analytics.MetricsDocument) error
}

var _ DocumentStore = (*metricsstore.Store)(nil)
var _ Source = (*posthog.Client)(nil)

// Options bounds the fetches and the retained window
type Options struct {
	BootstrapLimit   int
	IncrementalLimit int
	PersonsLimit     int
	MaxRetained      int
}

// DefaultOptions returns the standard fetch limits and a 10,000 event window
func DefaultOptions() Options {
	return Options{
		BootstrapLimit:   5000,
		IncrementalLimit: 1000,
		PersonsLimit:     1000,
		MaxRetained:      10000,
	}
}

// Option configures optional Orchestrator collaborators
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(logger *observability.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock replaces the real clock
func WithClock(clk clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = clk
	}
}

// Orchestrator runs syncs. The scheduled trigger and manual refreshes share it.
type Orchestrator struct {
	source    Source
	store     DocumentStore
	processor *analytics.Processor
	opts      Options
	clock     clock.Clock
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(source Source, store DocumentStore, processor *analytics.Processor, opts Options, options ...Option) *Orchestrator {
	o := &Orchestrator{
		source:    source,
		store:     store,
		processor: processor,
		opts:      opts,
		clock:     clock.Real{},
		logger:    observability.NewLogger(observability.ErrorLevel, io.Discard),
	}
	for _, opt := range options {
		opt(o)
	}
	o.logger = o.logger.WithField("component", "ingest")
	return o
}

// UpdateAnalytics brings the stored document up to date and returns it. Missing
// credentials fail before any request is made.
func (o *Orchestrator) UpdateAnalytics(ctx context.Context) (*analytics.MetricsDocument, error) {
	if err := o.source.ValidateCredentials(); err != nil {
		return nil, err
	}

	mode := ModeFull
	lastSync, haveState := o.store.GetLastSyncTimestamp(ctx)
	var existing *analytics.MetricsDocument
	if haveState {
		existing = o.store.LoadDocument(ctx)
		if existing != nil {
			mode = ModeIncremental
		}
	}

	ctx, span := tracer.Start(ctx, "ingest.UpdateAnalytics",
		trace.WithAttributes(attribute.String("sync.mode", mode)),
	)
	defer span.End()

	start := o.clock.Now()
	var (
		doc *analytics.MetricsDocument
		err error
	)
	if mode == ModeIncremental {
		doc, err = o.incremental(ctx, existing, lastSync)
	} else {
		doc, err = o.bootstrap(ctx)
	}
	o.record(mode, start, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("sync.retained_events", len(doc.RawEvents)))
	span.SetStatus(codes.Ok, "sync complete")
	return doc, nil
}

func (o *Orchestrator) incremental(ctx context.Context, existing *analytics.MetricsDocument, lastSync time.Time) (*analytics.MetricsDocument, error) {
	fresh, persons, err := o.fetch(ctx, posthog.EventQuery{Limit: o.opts.IncrementalLimit, After: lastSync})
	if err != nil {
		return nil, err
	}
	o.observeFetched(ModeIncremental, len(fresh))

	fresh = Unseen(existing.RawEvents, fresh)
	if len(fresh) == 0 {
		o.logger.WithField("last_sync", lastSync).Info("No new events since last sync")
		return existing, nil
	}

	window := Merge(existing.RawEvents, fresh, o.opts.MaxRetained)
	o.logger.WithFields(map[string]interface{}{
		"new_events":      len(fresh),
		"retained_events": len(window),
	}).Info("Merged new events into retained window")
	return o.publish(ctx, window, persons)
}

func (o *Orchestrator) bootstrap(ctx context.Context) (*analytics.MetricsDocument, error) {
	batch, persons, err := o.fetch(ctx, posthog.EventQuery{Limit: o.opts.BootstrapLimit})
	if err != nil {
		return nil, err
	}
	o.observeFetched(ModeFull, len(batch))
	o.logger.WithField("events", len(batch)).Info("Bootstrapping retained window")

	return o.publish(ctx, Merge(nil, batch, o.opts.MaxRetained), persons)
}

// fetch loads events and the persons snapshot concurrently
func (o *Orchestrator) fetch(ctx context.Context, q posthog.EventQuery) ([]events.RawEvent, []events.Person, error) {
	var (
		evts    []events.RawEvent
		persons []events.Person
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := o.source.FetchEvents(gctx, q)
		if err != nil {
			return fmt.Errorf("failed to fetch events: %w", err)
		}
		evts = page.Results
		return nil
	})
	g.Go(func() error {
		page, err := o.source.FetchPersons(gctx, o.opts.PersonsLimit)
		if err != nil {
			return fmt.Errorf("failed to fetch persons: %w", err)
		}
		persons = page.Results
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return evts, persons, nil
}

func (o *Orchestrator) publish(ctx context.Context, window []events.RawEvent, persons []events.Person) (*analytics.MetricsDocument, error) {
	doc := o.processor.Process(window, persons, o.source.ProjectID(), o.clock.Now())
	doc.RawEvents = window
	if err := o.store.StoreCachedData(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to persist metrics document: %w", err)
	}
	if o.metrics != nil {
		o.metrics.RetainedEvents.Set(float64(len(window)))
		o.metrics.LastSyncTimestamp.Set(float64(doc.LastUpdated.Unix()))
	}
	return doc, nil
}

func (o *Orchestrator) observeFetched(mode string, n int) {
	if o.metrics != nil {
		o.metrics.EventsFetchedTotal.WithLabelValues(mode).Add(float64(n))
	}
}

func (o *Orchestrator) record(mode string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		o.logger.WithError(err).WithField("mode", mode).Error("Sync failed")
	}
	if o.metrics != nil {
		o.metrics.SyncRunsTotal.WithLabelValues(mode, status).Inc()
		o.metrics.SyncDuration.WithLabelValues(mode).Observe(o.clock.Now().Sub(start).Seconds())
	}
}

// Unseen returns the events of fresh whose identity key is neither retained nor repeated
// earlier in fresh.
func Unseen(retained, fresh []events.RawEvent) []events.RawEvent {
	seen := make(map[string]struct{}, len(retained)+len(fresh))
	for _, e := range retained {
		seen[e.IdentityKey()] = struct{}{}
	}
	var out []events.RawEvent
	for _, e := range fresh {
		key := e.IdentityKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Merge combines the retained window with newly fetched events. Duplicates are dropped by
// identity key with the retained copy kept, the result is ordered oldest first, and only
// the newest limit events survive.
func Merge(retained, fresh []events.RawEvent, limit int) []events.RawEvent {
	seen := make(map[string]struct{}, len(retained)+len(fresh))
	merged := make([]events.RawEvent, 0, len(retained)+len(fresh))
	for _, batch := range [][]events.RawEvent{retained, fresh} {
		for _, e := range batch {
			key := e.IdentityKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, e)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Time().Before(merged[j].Time())
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[len(merged)-limit:]
	}
	return merged
}
