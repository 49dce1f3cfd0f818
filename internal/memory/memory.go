// Package memory implements the match-memory store: persisted associations
// between normalized payer names and tenants, created when a human confirms
// or overrides a match.
//
// Memory is an optimization, never a correctness requirement. Callers treat
// a store failure as "no hit" and let the matching strategies run; the
// RetryingStore wrapper bounds how hard a flaky store is retried before the
// engine degrades.
package memory

import (
	"context"
	"sync"
	"time"

	"building-payment-reconciler/internal/models"

	"github.com/google/uuid"
)

// Store is the contract the engine needs from a name-mapping store.
//
// Lookup returns the tenant previously confirmed for a normalized payer name,
// with found=false when no mapping exists.
//
// Record is idempotent: confirming the same pairing again increments the
// confirmation count and refreshes the timestamp; confirming a different
// tenant for an existing name overwrites it (last human decision wins) and
// resets the count to 1. A Record call is durable once it returns.
type Store interface {
	Lookup(ctx context.Context, normalizedName string) (string, bool, error)
	Record(ctx context.Context, normalizedName, tenantID string, createdBy models.MappingCreatedBy) error
}

// InMemoryStore is a map-backed Store, used in tests and for single-run
// reconciliations with no persistence path configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]*models.NameMapping
	now      func() time.Time
}

// NewInMemoryStore creates an empty in-memory mapping store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		mappings: make(map[string]*models.NameMapping),
		now:      time.Now,
	}
}

// Lookup implements Store
func (s *InMemoryStore) Lookup(ctx context.Context, normalizedName string) (string, bool, error) {
	if normalizedName == "" {
		return "", false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	mapping, ok := s.mappings[normalizedName]
	if !ok {
		return "", false, nil
	}
	return mapping.TenantID, true, nil
}

// Record implements Store
func (s *InMemoryStore) Record(ctx context.Context, normalizedName, tenantID string, createdBy models.MappingCreatedBy) error {
	mapping := &models.NameMapping{
		NormalizedName: normalizedName,
		TenantID:       tenantID,
		ConfirmedCount: 1,
		CreatedBy:      createdBy,
	}
	if err := mapping.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.mappings[normalizedName]
	if ok && existing.TenantID == tenantID {
		existing.ConfirmedCount++
		existing.LastConfirmedAt = s.now()
		return nil
	}

	mapping.ID = uuid.NewString()
	mapping.LastConfirmedAt = s.now()
	s.mappings[normalizedName] = mapping
	return nil
}

// Get returns the full mapping record for a normalized name, for callers that
// need provenance (confirmation count, timestamps) rather than just the tenant.
func (s *InMemoryStore) Get(normalizedName string) (*models.NameMapping, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mapping, ok := s.mappings[normalizedName]
	if !ok {
		return nil, false
	}
	copied := *mapping
	return &copied, true
}

// Len returns the number of stored mappings
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mappings)
}

// RetryingStore wraps a Store with bounded retries on lookup failures.
// Writes are retried too, because a Record call must not be silently lost,
// but a persistently failing Record surfaces its error to the caller instead
// of degrading.
type RetryingStore struct {
	inner    Store
	attempts int
	backoff  time.Duration
}

// NewRetryingStore wraps a store with the given attempt budget. Attempts
// below 1 are treated as 1.
func NewRetryingStore(inner Store, attempts int, backoff time.Duration) *RetryingStore {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingStore{
		inner:    inner,
		attempts: attempts,
		backoff:  backoff,
	}
}

// Lookup implements Store with bounded retries
func (s *RetryingStore) Lookup(ctx context.Context, normalizedName string) (string, bool, error) {
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if attempt > 0 && s.backoff > 0 {
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(s.backoff):
			}
		}

		tenantID, found, err := s.inner.Lookup(ctx, normalizedName)
		if err == nil {
			return tenantID, found, nil
		}
		lastErr = err
	}
	return "", false, lastErr
}

// Record implements Store with bounded retries
func (s *RetryingStore) Record(ctx context.Context, normalizedName, tenantID string, createdBy models.MappingCreatedBy) error {
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if attempt > 0 && s.backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff):
			}
		}

		if err := s.inner.Record(ctx, normalizedName, tenantID, createdBy); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}
