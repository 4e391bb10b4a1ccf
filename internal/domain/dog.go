package domain

// DogSize buckets dogs for walk pairing decisions.
type DogSize string

const (
	SizeSmall  DogSize = "S"
	SizeMedium DogSize = "M"
	SizeLarge  DogSize = "L"
)

// RoomColor is the color code of the dog's assigned room.
type RoomColor string

const (
	RoomYellow RoomColor = "yellow"
	RoomGreen  RoomColor = "green"
	RoomBlue   RoomColor = "blue"
	RoomRed    RoomColor = "red"
)

// WalkingNotes captures handling flags the walker needs before leashing up.
type WalkingNotes struct {
	PullsOnLeash        bool   `json:"pulls_on_leash"`
	ReactiveToOtherDogs bool   `json:"reactive_to_other_dogs"`
	NeedsMuzzle         bool   `json:"needs_muzzle"`
	MustWalkAlone       bool   `json:"must_walk_alone"`
	Notes               string `json:"notes,omitempty"`
}

// FoodInfo describes the feeding routine.
type FoodInfo struct {
	FoodType            string `json:"food_type,omitempty"`
	FeedingTime         string `json:"feeding_time,omitempty"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
	ForbiddenFood       string `json:"forbidden_food,omitempty"`
}

// MedicationInfo describes an ongoing medication, if any.
type MedicationInfo struct {
	MedicationName string `json:"medication_name,omitempty"`
	Frequency      string `json:"frequency,omitempty"`
	HowToGive      string `json:"how_to_give,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// DogProfile holds the static fields owned by the profile-management surface.
// The tracking core reads them for display context only.
type DogProfile struct {
	Name            string         `json:"name"`
	Breed           string         `json:"breed"`
	PhotoURL        string         `json:"photo_url,omitempty"`
	RoomColor       RoomColor      `json:"room_color"`
	RoomNumber      int            `json:"room_number"`
	IndoorSpace     string         `json:"indoor_space"`
	Size            DogSize        `json:"size"`
	WalkingNotes    WalkingNotes   `json:"walking_notes"`
	Food            FoodInfo       `json:"food"`
	Medication      MedicationInfo `json:"medication"`
	AdditionalNotes string         `json:"additional_notes,omitempty"`
}

// Dog is the roster aggregate: a profile plus exactly two activity ledgers.
type Dog struct {
	ID      string     `json:"id"`
	Profile DogProfile `json:"profile"`
	Walks   Ledger     `json:"walks"`
	Indoors Ledger     `json:"indoors"`
}

// Ledger resolves the ledger for an activity kind. The kind is mapped to its
// collection once here instead of being re-derived per field access.
func (d *Dog) Ledger(kind ActivityKind) (*Ledger, error) {
	switch kind {
	case ActivityWalk:
		return &d.Walks, nil
	case ActivityIndoor:
		return &d.Indoors, nil
	default:
		return nil, ErrUnknownActivityKind
	}
}

// Clone deep-copies the aggregate so snapshots handed to readers stay stable.
func (d Dog) Clone() Dog {
	out := d
	out.Walks = d.Walks.Clone()
	out.Indoors = d.Indoors.Clone()
	return out
}
