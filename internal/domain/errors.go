package domain

import "errors"

var (
	// ErrDogNotFound is returned when a dog id is absent from the roster.
	ErrDogNotFound = errors.New("dog not found")
	// ErrAlreadyOpen indicates a session of this kind is already in progress.
	ErrAlreadyOpen = errors.New("activity already in progress")
	// ErrNothingOpen indicates there is no session in progress to end.
	ErrNothingOpen = errors.New("no activity in progress")
	// ErrRecordNotFound is returned when a record id is absent from the ledger.
	ErrRecordNotFound = errors.New("activity record not found")
	// ErrConflictingOpenRecord rejects amendments that would leave two open records in one ledger.
	ErrConflictingOpenRecord = errors.New("another activity record is already open")
	// ErrUnknownActivityKind is returned for activity kinds other than walk or indoor.
	ErrUnknownActivityKind = errors.New("unknown activity kind")
	// ErrInvalidRound is returned for round indexes outside 1..RoundCount.
	ErrInvalidRound = errors.New("round index out of range")
)
