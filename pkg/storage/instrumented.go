package storage

import (
	"context"
	"errors"
	"time"
)

// Operation outcome labels
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// OperationObserver is notified after every store operation
type OperationObserver func(operation, backend, status string)

// InstrumentedStore reports the outcome of every operation of the wrapped store
type InstrumentedStore struct {
	next    ObjectStore
	backend string
	observe OperationObserver
}

// NewInstrumentedStore wraps next
func NewInstrumentedStore(next ObjectStore, backend string, observe OperationObserver) *InstrumentedStore {
	return &InstrumentedStore{next: next, backend: backend, observe: observe}
}

func (s *InstrumentedStore) record(operation string, err error) {
	status := StatusOK
	switch {
	case errors.Is(err, ErrObjectNotFound):
		status = StatusNotFound
	case err != nil:
		status = StatusError
	}
	s.observe(operation, s.backend, status)
}

// Get implements ObjectReader.Get
func (s *InstrumentedStore) Get(ctx context.Context, key string) (*Object, error) {
	obj, err := s.next.Get(ctx, key)
	s.record("get", err)
	return obj, err
}

// LastModified implements ObjectReader.LastModified
func (s *InstrumentedStore) LastModified(ctx context.Context, key string) (time.Time, error) {
	t, err := s.next.LastModified(ctx, key)
	s.record("head", err)
	return t, err
}

// Put implements ObjectWriter.Put
func (s *InstrumentedStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	err := s.next.Put(ctx, key, body, contentType)
	s.record("put", err)
	return err
}

// HealthCheck implements HealthChecker
func (s *InstrumentedStore) HealthCheck(ctx context.Context) error {
	err := s.next.HealthCheck(ctx)
	s.record("health", err)
	return err
}
