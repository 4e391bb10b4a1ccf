// Package postgres provides the pgx-backed roster store. Every write-through
// save rewrites the ledger rows and records outbox events in one transaction.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/daycare/internal/domain"
	"example.com/daycare/internal/events"
	"example.com/daycare/internal/observability"
)

// Repository provides Postgres-backed persistence for dogs, activity records,
// and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadRoster reads all dogs and reassembles both ledgers per dog. The open
// pointer is recomputed from end_time IS NULL, so it can never dangle after a
// reload regardless of what a previous writer stored.
func (r *Repository) LoadRoster(ctx context.Context) ([]domain.Dog, error) {
	const dogQuery = `SELECT dog_id, name, breed, photo_url, room_color, room_number, indoor_space, size, walking_notes, food_info, medication_info, additional_notes
        FROM dogs ORDER BY name`

	rows, err := r.pool.Query(ctx, dogQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*domain.Dog)
	order := make([]string, 0)
	for rows.Next() {
		var dog domain.Dog
		var walkingNotes, foodInfo, medicationInfo []byte
		if err := rows.Scan(&dog.ID, &dog.Profile.Name, &dog.Profile.Breed, &dog.Profile.PhotoURL, &dog.Profile.RoomColor, &dog.Profile.RoomNumber, &dog.Profile.IndoorSpace, &dog.Profile.Size, &walkingNotes, &foodInfo, &medicationInfo, &dog.Profile.AdditionalNotes); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(walkingNotes, &dog.Profile.WalkingNotes); err != nil {
			return nil, fmt.Errorf("walking_notes for dog %s: %w", dog.ID, err)
		}
		if err := json.Unmarshal(foodInfo, &dog.Profile.Food); err != nil {
			return nil, fmt.Errorf("food_info for dog %s: %w", dog.ID, err)
		}
		if err := json.Unmarshal(medicationInfo, &dog.Profile.Medication); err != nil {
			return nil, fmt.Errorf("medication_info for dog %s: %w", dog.ID, err)
		}
		byID[dog.ID] = &dog
		order = append(order, dog.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const recordQuery = `SELECT record_id, dog_id, activity_kind, start_time, end_time, poop_status, pee_status, notes
        FROM activity_records ORDER BY dog_id, activity_kind, position`

	recordRows, err := r.pool.Query(ctx, recordQuery)
	if err != nil {
		return nil, err
	}
	defer recordRows.Close()

	for recordRows.Next() {
		var record domain.ActivityRecord
		var dogID, kind string
		var poop, pee, notes *string
		if err := recordRows.Scan(&record.ID, &dogID, &kind, &record.StartTime, &record.EndTime, &poop, &pee, &notes); err != nil {
			return nil, err
		}
		if poop != nil {
			record.PoopStatus = domain.PoopStatus(*poop)
		}
		if pee != nil {
			record.PeeStatus = domain.PeeStatus(*pee)
		}
		if notes != nil {
			record.Notes = *notes
		}

		dog, ok := byID[dogID]
		if !ok {
			continue
		}
		ledger, err := dog.Ledger(domain.ActivityKind(kind))
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", record.ID, err)
		}
		ledger.Records = append(ledger.Records, record)
		if record.Open() {
			ledger.OpenID = record.ID
		}
	}
	if err := recordRows.Err(); err != nil {
		return nil, err
	}

	roster := make([]domain.Dog, 0, len(order))
	for _, id := range order {
		roster = append(roster, *byID[id])
	}
	return roster, nil
}

// SaveLedger rewrites the ledger rows for one (dog, kind) pair and records the
// matching outbox event inside a single transaction.
func (r *Repository) SaveLedger(ctx context.Context, dog domain.Dog, kind domain.ActivityKind, change domain.Change) error {
	ledger, err := dog.Ledger(kind)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM activity_records WHERE dog_id=$1 AND activity_kind=$2`, dog.ID, kind); err != nil {
		return err
	}

	const insertRecord = `INSERT INTO activity_records (record_id, dog_id, activity_kind, position, start_time, end_time, poop_status, pee_status, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	for position, record := range ledger.Records {
		_, err = tx.Exec(ctx, insertRecord,
			record.ID,
			dog.ID,
			string(kind),
			position,
			record.StartTime,
			record.EndTime,
			nullIfEmpty(string(record.PoopStatus)),
			nullIfEmpty(string(record.PeeStatus)),
			nullIfEmpty(record.Notes),
		)
		if err != nil {
			return err
		}
	}

	if err = r.insertOutbox(ctx, tx, dog, kind, *ledger, change); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordLedgerPersisted(time.Now().UTC())
	return nil
}

// UpsertDog creates or updates the profile row. Ledger rows are untouched.
func (r *Repository) UpsertDog(ctx context.Context, dog domain.Dog) error {
	walkingNotes, err := json.Marshal(dog.Profile.WalkingNotes)
	if err != nil {
		return err
	}
	foodInfo, err := json.Marshal(dog.Profile.Food)
	if err != nil {
		return err
	}
	medicationInfo, err := json.Marshal(dog.Profile.Medication)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO dogs (dog_id, name, breed, photo_url, room_color, room_number, indoor_space, size, walking_notes, food_info, medication_info, additional_notes, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())
        ON CONFLICT (dog_id) DO UPDATE SET
            name=EXCLUDED.name, breed=EXCLUDED.breed, photo_url=EXCLUDED.photo_url,
            room_color=EXCLUDED.room_color, room_number=EXCLUDED.room_number,
            indoor_space=EXCLUDED.indoor_space, size=EXCLUDED.size,
            walking_notes=EXCLUDED.walking_notes, food_info=EXCLUDED.food_info,
            medication_info=EXCLUDED.medication_info, additional_notes=EXCLUDED.additional_notes,
            updated_at=NOW()`

	_, err = r.pool.Exec(ctx, stmt,
		dog.ID,
		dog.Profile.Name,
		dog.Profile.Breed,
		dog.Profile.PhotoURL,
		string(dog.Profile.RoomColor),
		dog.Profile.RoomNumber,
		dog.Profile.IndoorSpace,
		string(dog.Profile.Size),
		walkingNotes,
		foodInfo,
		medicationInfo,
		dog.Profile.AdditionalNotes,
	)
	return err
}

// DeleteDog removes the dog; activity rows follow via ON DELETE CASCADE.
func (r *Repository) DeleteDog(ctx context.Context, dogID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM dogs WHERE dog_id=$1`, dogID)
	return err
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, dog domain.Dog, kind domain.ActivityKind, ledger domain.Ledger, change domain.Change) error {
	meta, ok := eventCatalog[change.Type]
	if !ok {
		return fmt.Errorf("unknown change type: %s", change.Type)
	}

	payload, err := meta.PayloadFn(dog, kind, ledger, change)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	dedupeKey := fmt.Sprintf("%s:%s:%d", change.RecordID, change.Type, time.Now().UTC().UnixNano())

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		"dog",
		dog.ID,
		string(change.Type),
		meta.Topic,
		meta.SchemaSubject,
		dog.ID,
		body,
		dedupeKey,
	)
	return err
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
	PayloadFn     func(domain.Dog, domain.ActivityKind, domain.Ledger, domain.Change) (interface{}, error)
}

var eventCatalog = map[domain.ChangeType]EventMetadata{
	domain.ChangeStarted: {
		Topic:         "activity_started",
		SchemaSubject: "activity_started-value",
		PayloadFn: func(dog domain.Dog, kind domain.ActivityKind, ledger domain.Ledger, change domain.Change) (interface{}, error) {
			record, ok := ledger.Record(change.RecordID)
			if !ok {
				return nil, fmt.Errorf("started record %s missing from ledger", change.RecordID)
			}
			return events.ActivityStarted{
				RecordID:     record.ID,
				DogID:        dog.ID,
				ActivityKind: string(kind),
				StartTime:    record.StartTime,
			}, nil
		},
	},
	domain.ChangeEnded: {
		Topic:         "activity_ended",
		SchemaSubject: "activity_ended-value",
		PayloadFn: func(dog domain.Dog, kind domain.ActivityKind, ledger domain.Ledger, change domain.Change) (interface{}, error) {
			record, ok := ledger.Record(change.RecordID)
			if !ok || record.EndTime == nil {
				return nil, fmt.Errorf("ended record %s missing or still open", change.RecordID)
			}
			return events.ActivityEnded{
				RecordID:     record.ID,
				DogID:        dog.ID,
				ActivityKind: string(kind),
				StartTime:    record.StartTime,
				EndTime:      *record.EndTime,
			}, nil
		},
	},
	domain.ChangeAmended: {
		Topic:         "activity_record_amended",
		SchemaSubject: "activity_record_amended-value",
		PayloadFn: func(dog domain.Dog, kind domain.ActivityKind, ledger domain.Ledger, change domain.Change) (interface{}, error) {
			record, ok := ledger.Record(change.RecordID)
			if !ok {
				return nil, fmt.Errorf("amended record %s missing from ledger", change.RecordID)
			}
			return events.RecordAmended{
				RecordID:     record.ID,
				DogID:        dog.ID,
				ActivityKind: string(kind),
				StartTime:    record.StartTime,
				EndTime:      record.EndTime,
				PoopStatus:   string(record.PoopStatus),
				PeeStatus:    string(record.PeeStatus),
				OccurredAt:   time.Now().UTC(),
			}, nil
		},
	},
	domain.ChangeDeleted: {
		Topic:         "activity_record_deleted",
		SchemaSubject: "activity_record_deleted-value",
		PayloadFn: func(dog domain.Dog, kind domain.ActivityKind, ledger domain.Ledger, change domain.Change) (interface{}, error) {
			return events.RecordDeleted{
				RecordID:     change.RecordID,
				DogID:        dog.ID,
				ActivityKind: string(kind),
				OccurredAt:   time.Now().UTC(),
			}, nil
		},
	},
}
