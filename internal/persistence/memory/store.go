// Package memory provides an in-memory roster store for local development
// and tests, with an optional JSON seed file.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"example.com/daycare/internal/domain"
)

// Store keeps the roster in a map keyed by dog id. It satisfies the
// write-through contract by simply retaining the latest saved state.
type Store struct {
	mu   sync.Mutex
	dogs map[string]domain.Dog
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{dogs: make(map[string]domain.Dog)}
}

// NewStoreFromSeed constructs a Store preloaded from a JSON roster file. The
// open pointers in the seed are ignored and recomputed from the records, the
// same way the postgres loader derives them from end_time, so a stale or
// dangling open_id never reaches the tracking core. A ledger with more than
// one open record cannot be normalized and rejects the whole seed.
func NewStoreFromSeed(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster seed: %w", err)
	}

	var roster []domain.Dog
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parse roster seed: %w", err)
	}

	store := NewStore()
	for i := range roster {
		dog := roster[i]
		if err := normalizeLedger(&dog.Walks); err != nil {
			return nil, fmt.Errorf("roster seed: dog %s walks: %w", dog.ID, err)
		}
		if err := normalizeLedger(&dog.Indoors); err != nil {
			return nil, fmt.Errorf("roster seed: dog %s indoors: %w", dog.ID, err)
		}
		store.dogs[dog.ID] = dog.Clone()
	}
	return store, nil
}

func normalizeLedger(ledger *domain.Ledger) error {
	ledger.OpenID = ""
	for _, record := range ledger.Records {
		if !record.Open() {
			continue
		}
		if ledger.OpenID != "" {
			return fmt.Errorf("records %s and %s are both open", ledger.OpenID, record.ID)
		}
		ledger.OpenID = record.ID
	}
	return nil
}

// LoadRoster returns the current roster.
func (s *Store) LoadRoster(ctx context.Context) ([]domain.Dog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Dog, 0, len(s.dogs))
	for _, dog := range s.dogs {
		out = append(out, dog.Clone())
	}
	return out, nil
}

// SaveLedger retains the full post-mutation aggregate.
func (s *Store) SaveLedger(ctx context.Context, dog domain.Dog, kind domain.ActivityKind, change domain.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dogs[dog.ID] = dog.Clone()
	return nil
}

// UpsertDog creates or replaces the aggregate.
func (s *Store) UpsertDog(ctx context.Context, dog domain.Dog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dogs[dog.ID] = dog.Clone()
	return nil
}

// DeleteDog removes the aggregate.
func (s *Store) DeleteDog(ctx context.Context, dogID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.dogs, dogID)
	return nil
}
