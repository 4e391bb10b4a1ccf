package domain

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChangeType names the ledger mutation a write-through save was triggered by.
type ChangeType string

const (
	ChangeStarted ChangeType = "activity.started"
	ChangeEnded   ChangeType = "activity.ended"
	ChangeAmended ChangeType = "record.amended"
	ChangeDeleted ChangeType = "record.deleted"
)

// Change identifies the mutation behind a write-through save so stores can
// record downstream events without re-deriving the diff.
type Change struct {
	Type     ChangeType
	RecordID string
}

// RosterStore is the persistence collaborator. The service hands it the full
// post-mutation ledger state after every operation; the store owns the schema.
type RosterStore interface {
	LoadRoster(ctx context.Context) ([]Dog, error)
	SaveLedger(ctx context.Context, dog Dog, kind ActivityKind, change Change) error
	UpsertDog(ctx context.Context, dog Dog) error
	DeleteDog(ctx context.Context, dogID string) error
}

// Clock supplies wall-clock reads; tests substitute it for determinism.
type Clock func() time.Time

// Service is the roster-level tracking facade. It owns the roster as a map
// keyed by dog id and serializes every mutation behind one mutex, so ledger
// operations run to completion without interleaving.
type Service struct {
	mu    sync.Mutex
	store RosterStore
	clock Clock

	dogs  map[string]*Dog
	order []string

	currentRound int
}

// Option configures optional Service behaviour.
type Option func(*Service)

// WithClock overrides the timestamp source.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs a Service. Call Load before serving traffic.
func NewService(store RosterStore, opts ...Option) *Service {
	s := &Service{
		store:        store,
		clock:        func() time.Time { return time.Now().UTC() },
		dogs:         make(map[string]*Dog),
		currentRound: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load populates the roster from the store. Dogs are ordered by name so the
// board renders stably across restarts.
func (s *Service) Load(ctx context.Context) error {
	roster, err := s.store.LoadRoster(ctx)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dogs = make(map[string]*Dog, len(roster))
	s.order = make([]string, 0, len(roster))
	for i := range roster {
		dog := roster[i]
		s.dogs[dog.ID] = &dog
		s.order = append(s.order, dog.ID)
	}
	sort.Slice(s.order, func(i, j int) bool {
		return s.dogs[s.order[i]].Profile.Name < s.dogs[s.order[j]].Profile.Name
	})
	return nil
}

// StartActivity opens a new session of the given kind for the dog.
func (s *Service) StartActivity(ctx context.Context, dogID string, kind ActivityKind) (string, error) {
	return s.mutateLedger(ctx, dogID, kind, func(ledger *Ledger) (Change, error) {
		id, err := ledger.Start(s.clock())
		if err != nil {
			return Change{}, err
		}
		return Change{Type: ChangeStarted, RecordID: id}, nil
	})
}

// EndActivity closes the open session and returns its record id, which the
// caller uses to pre-populate the edit view for outcome metadata.
func (s *Service) EndActivity(ctx context.Context, dogID string, kind ActivityKind) (string, error) {
	return s.mutateLedger(ctx, dogID, kind, func(ledger *Ledger) (Change, error) {
		id, err := ledger.End(s.clock())
		if err != nil {
			return Change{}, err
		}
		return Change{Type: ChangeEnded, RecordID: id}, nil
	})
}

// UpdateRecord amends a historical record. Poop and pee statuses are tracked
// for walks only, so they are dropped from indoor amendments.
func (s *Service) UpdateRecord(ctx context.Context, dogID string, kind ActivityKind, recordID string, update RecordUpdate) error {
	if kind != ActivityWalk {
		update.PoopStatus = ""
		update.PeeStatus = ""
	}
	_, err := s.mutateLedger(ctx, dogID, kind, func(ledger *Ledger) (Change, error) {
		if err := ledger.Amend(recordID, update); err != nil {
			return Change{}, err
		}
		return Change{Type: ChangeAmended, RecordID: recordID}, nil
	})
	return err
}

// DeleteRecord removes a historical record.
func (s *Service) DeleteRecord(ctx context.Context, dogID string, kind ActivityKind, recordID string) error {
	_, err := s.mutateLedger(ctx, dogID, kind, func(ledger *Ledger) (Change, error) {
		if err := ledger.Delete(recordID); err != nil {
			return Change{}, err
		}
		return Change{Type: ChangeDeleted, RecordID: recordID}, nil
	})
	return err
}

// mutateLedger runs a ledger mutation against a copy of the dog, persists the
// result, and only then commits it to the roster. A store failure therefore
// leaves the in-memory state untouched.
func (s *Service) mutateLedger(ctx context.Context, dogID string, kind ActivityKind, mutate func(*Ledger) (Change, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.dogs[dogID]
	if !ok {
		return "", ErrDogNotFound
	}

	updated := current.Clone()
	ledger, err := updated.Ledger(kind)
	if err != nil {
		return "", err
	}

	change, err := mutate(ledger)
	if err != nil {
		return "", err
	}

	if err := s.store.SaveLedger(ctx, updated, kind, change); err != nil {
		return "", fmt.Errorf("persist %s ledger for dog %s: %w", kind, dogID, err)
	}

	s.dogs[dogID] = &updated
	return change.RecordID, nil
}

// GetDog returns a snapshot of the dog, or ok=false when absent. Lookups
// never fail; a missing dog is not an error at this surface.
func (s *Service) GetDog(dogID string) (Dog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dog, ok := s.dogs[dogID]
	if !ok {
		return Dog{}, false
	}
	return dog.Clone(), true
}

// Roster returns snapshots of every dog in display order.
func (s *Service) Roster() []Dog {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Dog, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.dogs[id].Clone())
	}
	return out
}

// CreateDog onboards a dog with empty ledgers.
func (s *Service) CreateDog(ctx context.Context, profile DogProfile) (Dog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dog := Dog{ID: uuid.NewString(), Profile: profile}
	if err := s.store.UpsertDog(ctx, dog); err != nil {
		return Dog{}, fmt.Errorf("persist dog %s: %w", dog.ID, err)
	}

	s.dogs[dog.ID] = &dog
	s.order = append(s.order, dog.ID)
	sort.Slice(s.order, func(i, j int) bool {
		return s.dogs[s.order[i]].Profile.Name < s.dogs[s.order[j]].Profile.Name
	})
	return dog.Clone(), nil
}

// UpdateDogProfile replaces the profile fields, leaving both ledgers as-is.
func (s *Service) UpdateDogProfile(ctx context.Context, dogID string, profile DogProfile) (Dog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.dogs[dogID]
	if !ok {
		return Dog{}, ErrDogNotFound
	}

	updated := current.Clone()
	updated.Profile = profile
	if err := s.store.UpsertDog(ctx, updated); err != nil {
		return Dog{}, fmt.Errorf("persist dog %s: %w", dogID, err)
	}

	s.dogs[dogID] = &updated
	return updated.Clone(), nil
}

// DeleteDog removes the dog and both of its ledgers.
func (s *Service) DeleteDog(ctx context.Context, dogID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dogs[dogID]; !ok {
		return ErrDogNotFound
	}
	if err := s.store.DeleteDog(ctx, dogID); err != nil {
		return fmt.Errorf("delete dog %s: %w", dogID, err)
	}

	delete(s.dogs, dogID)
	for i, id := range s.order {
		if id == dogID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// CurrentRound returns the externally-selected round index.
func (s *Service) CurrentRound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRound
}

// SetCurrentRound switches the board to another round.
func (s *Service) SetCurrentRound(round int) error {
	if round < 1 || round > RoundCount {
		return ErrInvalidRound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRound = round
	return nil
}

// BoardRow is one dog's slice of the round view.
type BoardRow struct {
	DogID        string
	Name         string
	RoomColor    RoomColor
	RoomNumber   int
	Size         DogSize
	WalkStatus   RoundStatus
	WalkRecord   *ActivityRecord
	IndoorStatus RoundStatus
	IndoorRecord *ActivityRecord
}

// Board projects the Nth record of every ledger as "the" record for that
// round, with the derived idle/active/finished status per slot.
func (s *Service) Board(round int) ([]BoardRow, error) {
	if round < 1 || round > RoundCount {
		return nil, ErrInvalidRound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]BoardRow, 0, len(s.order))
	for _, id := range s.order {
		dog := s.dogs[id]
		row := BoardRow{
			DogID:        dog.ID,
			Name:         dog.Profile.Name,
			RoomColor:    dog.Profile.RoomColor,
			RoomNumber:   dog.Profile.RoomNumber,
			Size:         dog.Profile.Size,
			WalkStatus:   dog.Walks.RoundStatus(round),
			IndoorStatus: dog.Indoors.RoundStatus(round),
		}
		if record, ok := dog.Walks.RoundRecord(round); ok {
			row.WalkRecord = &record
		}
		if record, ok := dog.Indoors.RoundRecord(round); ok {
			row.IndoorRecord = &record
		}
		rows = append(rows, row)
	}
	return rows, nil
}
