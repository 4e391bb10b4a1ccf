// Package domain defines the activity tracking core for the daycare service.
package domain

import "time"

// ActivityKind identifies one of the two tracked recurring activities.
type ActivityKind string

const (
	// ActivityWalk is the outdoor walk.
	ActivityWalk ActivityKind = "walk"
	// ActivityIndoor is the indoor free-roam session.
	ActivityIndoor ActivityKind = "indoor"
)

// ParseActivityKind validates a kind supplied by the transport layer.
func ParseActivityKind(raw string) (ActivityKind, error) {
	switch ActivityKind(raw) {
	case ActivityWalk:
		return ActivityWalk, nil
	case ActivityIndoor:
		return ActivityIndoor, nil
	default:
		return "", ErrUnknownActivityKind
	}
}

// PoopStatus is the post-walk elimination observation. Empty means unrecorded.
type PoopStatus string

const (
	PoopNormal   PoopStatus = "normal"
	PoopWatery   PoopStatus = "watery"
	PoopUnformed PoopStatus = "unformed"
	PoopNone     PoopStatus = "none"
)

// PeeStatus is the second, independent post-walk observation. Empty means unrecorded.
type PeeStatus string

const (
	PeeNormal PeeStatus = "normal"
	PeeLittle PeeStatus = "little"
	PeeNone   PeeStatus = "none"
)

// ActivityRecord is one historical session. EndTime nil means the session is
// still in progress. Poop/pee statuses are only meaningful for walk records.
type ActivityRecord struct {
	ID         string     `json:"id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	PoopStatus PoopStatus `json:"poop_status,omitempty"`
	PeeStatus  PeeStatus  `json:"pee_status,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// Open reports whether the session is still in progress.
func (r ActivityRecord) Open() bool {
	return r.EndTime == nil
}

// RecordUpdate carries the replacement field values for an amendment.
// Every field overwrites the stored record; a nil EndTime reopens it.
type RecordUpdate struct {
	StartTime  time.Time
	EndTime    *time.Time
	PoopStatus PoopStatus
	PeeStatus  PeeStatus
	Notes      string
}
