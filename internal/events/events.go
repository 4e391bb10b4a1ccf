// Package events defines the payloads published for downstream consumers.
package events

import "time"

// ActivityStarted is emitted when a walk or indoor session opens.
type ActivityStarted struct {
	RecordID     string    `json:"record_id"`
	DogID        string    `json:"dog_id"`
	ActivityKind string    `json:"activity_kind"`
	StartTime    time.Time `json:"start_time"`
}

// ActivityEnded is emitted when the open session closes.
type ActivityEnded struct {
	RecordID     string    `json:"record_id"`
	DogID        string    `json:"dog_id"`
	ActivityKind string    `json:"activity_kind"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

// RecordAmended is emitted when a historical record is corrected.
type RecordAmended struct {
	RecordID     string     `json:"record_id"`
	DogID        string     `json:"dog_id"`
	ActivityKind string     `json:"activity_kind"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	PoopStatus   string     `json:"poop_status,omitempty"`
	PeeStatus    string     `json:"pee_status,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// RecordDeleted is emitted when a historical record is removed.
type RecordDeleted struct {
	RecordID     string    `json:"record_id"`
	DogID        string    `json:"dog_id"`
	ActivityKind string    `json:"activity_kind"`
	OccurredAt   time.Time `json:"occurred_at"`
}
