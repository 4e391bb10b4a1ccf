package domain

import (
	"time"

	"github.com/google/uuid"
)

// Ledger is the ordered activity history of one kind for one dog, plus the
// pointer to the record currently in progress. Records keep their creation
// order; appends happen only through Start and removals only through Delete.
type Ledger struct {
	Records []ActivityRecord `json:"records"`
	OpenID  string           `json:"open_id,omitempty"`
}

// Start appends a new open record and points OpenID at it. At most one record
// per ledger may be open, so a second Start without an End fails.
func (l *Ledger) Start(now time.Time) (string, error) {
	if l.OpenID != "" {
		return "", ErrAlreadyOpen
	}
	record := ActivityRecord{
		ID:        uuid.NewString(),
		StartTime: now,
	}
	l.Records = append(l.Records, record)
	l.OpenID = record.ID
	return record.ID, nil
}

// End closes the open record and returns its id so callers can route the
// operator straight to its edit view.
func (l *Ledger) End(now time.Time) (string, error) {
	if l.OpenID == "" {
		return "", ErrNothingOpen
	}
	idx, ok := l.index(l.OpenID)
	if !ok {
		// The pointer is maintained by the mutation paths below, so a
		// dangling OpenID would be a bug rather than a caller error.
		panic("ledger: open pointer references missing record")
	}
	ended := now
	l.Records[idx].EndTime = &ended
	closedID := l.OpenID
	l.OpenID = ""
	return closedID, nil
}

// Amend overwrites the record's time window, statuses, and notes. Supplying a
// nil EndTime reopens a closed record; that is rejected when a different
// record is already open, keeping the single-open invariant intact.
func (l *Ledger) Amend(recordID string, update RecordUpdate) error {
	idx, ok := l.index(recordID)
	if !ok {
		return ErrRecordNotFound
	}
	if update.EndTime == nil && l.OpenID != "" && l.OpenID != recordID {
		return ErrConflictingOpenRecord
	}

	record := &l.Records[idx]
	record.StartTime = update.StartTime
	record.EndTime = update.EndTime
	record.PoopStatus = update.PoopStatus
	record.PeeStatus = update.PeeStatus
	record.Notes = update.Notes

	if update.EndTime == nil {
		l.OpenID = recordID
	} else if l.OpenID == recordID {
		l.OpenID = ""
	}
	return nil
}

// Delete removes the record. Deleting the open record frees the slot for a
// subsequent Start in the same operation.
func (l *Ledger) Delete(recordID string) error {
	idx, ok := l.index(recordID)
	if !ok {
		return ErrRecordNotFound
	}
	l.Records = append(l.Records[:idx], l.Records[idx+1:]...)
	if l.OpenID == recordID {
		l.OpenID = ""
	}
	return nil
}

// Record returns a copy of the record with the given id.
func (l *Ledger) Record(recordID string) (ActivityRecord, bool) {
	idx, ok := l.index(recordID)
	if !ok {
		return ActivityRecord{}, false
	}
	return l.Records[idx], true
}

// Clone deep-copies the ledger so callers can mutate it in isolation.
func (l Ledger) Clone() Ledger {
	out := Ledger{OpenID: l.OpenID}
	if len(l.Records) > 0 {
		out.Records = make([]ActivityRecord, len(l.Records))
		copy(out.Records, l.Records)
	}
	return out
}

func (l *Ledger) index(recordID string) (int, bool) {
	for i := range l.Records {
		if l.Records[i].ID == recordID {
			return i, true
		}
	}
	return 0, false
}
