package domain

// RoundCount is the number of ordinal rounds a day is divided into for
// deployments that present one round at a time.
const RoundCount = 3

// RoundStatus is the derived state of one round slot.
type RoundStatus string

const (
	RoundIdle     RoundStatus = "idle"
	RoundActive   RoundStatus = "active"
	RoundFinished RoundStatus = "finished"
)

// RoundRecord returns the record at the 1-based round position, by creation
// order. The round index selects a view over the ledger; it is not a storage
// key, so starting past a finished slot appends a new record.
func (l *Ledger) RoundRecord(round int) (ActivityRecord, bool) {
	if round < 1 || round > len(l.Records) {
		return ActivityRecord{}, false
	}
	return l.Records[round-1], true
}

// RoundStatus derives the classic three-state view for a round slot: no
// record yet is idle, an open record is active, a closed one is finished.
func (l *Ledger) RoundStatus(round int) RoundStatus {
	record, ok := l.RoundRecord(round)
	if !ok {
		return RoundIdle
	}
	if record.Open() {
		return RoundActive
	}
	return RoundFinished
}
