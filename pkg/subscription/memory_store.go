package subscription

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is an in-memory Store for tests and local development.
// A single mutex around every operation gives the same per-row
// read-modify-write atomicity the Postgres store provides via row locks.
type memoryStore struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*Subscription
}

// NewMemoryStore creates an empty in-memory subscription store.
func NewMemoryStore() Store {
	return &memoryStore{subs: make(map[uuid.UUID]*Subscription)}
}

func (s *memoryStore) Create(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subs[sub.ID]; exists {
		return ErrDuplicateID
	}
	s.subs[sub.ID] = sub.Clone()
	return nil
}

func (s *memoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sub.Clone(), nil
}

func (s *memoryStore) GetByChargeReference(ctx context.Context, ref string) (*Subscription, error) {
	if ref == "" {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if sub.ChargeReferenceID == ref || sub.ExternalSubscriptionID == ref {
			return sub.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryStore) ListBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*Subscription
	for _, sub := range s.subs {
		if sub.SubscriberID == subscriberID {
			result = append(result, sub.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartDate.After(result[j].StartDate)
	})
	return result, nil
}

func (s *memoryStore) ListDueForBilling(ctx context.Context, asOf time.Time) ([]*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Subscription
	for _, sub := range s.subs {
		if sub.DueAt(asOf) {
			due = append(due, sub.Clone())
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextChargeDate.Before(due[j].NextChargeDate)
	})
	return due, nil
}

func (s *memoryStore) UpdateByID(ctx context.Context, id uuid.UUID, fn func(*Subscription) error) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrNotFound
	}

	// fn mutates a copy; the stored row only changes when fn succeeds.
	updated := sub.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	s.subs[id] = updated
	return updated.Clone(), nil
}
