package domain

import "time"

// Dimension selects one of the two independent status state machines.
type Dimension string

const (
	DimensionNone         Dimension = ""
	DimensionRelease      Dimension = "release"
	DimensionAvailability Dimension = "availability"
)

func (d Dimension) Valid() bool {
	return d == DimensionNone || d == DimensionRelease || d == DimensionAvailability
}

// StatusHistoryEntry is an immutable record of one detected transition. A nil
// previous/new pair means that dimension was untouched by this entry.
type StatusHistoryEntry struct {
	ID                         int64               `db:"id"`
	GameID                     int64               `db:"game_id"`
	PreviousReleaseStatus      *ReleaseStatus      `db:"previous_release_status"`
	NewReleaseStatus           *ReleaseStatus      `db:"new_release_status"`
	PreviousAvailabilityStatus *AvailabilityStatus `db:"previous_availability_status"`
	NewAvailabilityStatus      *AvailabilityStatus `db:"new_availability_status"`
	Reason                     string              `db:"reason"`
	ActorID                    *int64              `db:"actor_id"`
	CreatedAt                  time.Time           `db:"created_at"`
}

// TransitionRequest carries the requested targets. Nil targets are left alone.
// A non-empty OnlyFrom limits the transition to games whose current release
// status is one of the listed values; any other game is left unchanged.
type TransitionRequest struct {
	NewReleaseStatus      *ReleaseStatus
	NewAvailabilityStatus *AvailabilityStatus
	OnlyFrom              []ReleaseStatus
	Reason                string
	ActorID               *int64
}

type TransitionResult struct {
	Changed bool
	Game    *Game
	Entry   *StatusHistoryEntry
}

// TransitionEvent describes one changed dimension for notification purposes.
type TransitionEvent struct {
	GameID         int64
	GameTitle      string
	PreviousStatus string
	NewStatus      string
	Dimension      Dimension
}

// Events splits a history entry into one event per touched dimension.
func (e *StatusHistoryEntry) Events(gameTitle string) []TransitionEvent {
	var events []TransitionEvent
	if e.NewReleaseStatus != nil {
		events = append(events, TransitionEvent{
			GameID:         e.GameID,
			GameTitle:      gameTitle,
			PreviousStatus: derefString(e.PreviousReleaseStatus),
			NewStatus:      string(*e.NewReleaseStatus),
			Dimension:      DimensionRelease,
		})
	}
	if e.NewAvailabilityStatus != nil {
		events = append(events, TransitionEvent{
			GameID:         e.GameID,
			GameTitle:      gameTitle,
			PreviousStatus: derefString(e.PreviousAvailabilityStatus),
			NewStatus:      string(*e.NewAvailabilityStatus),
			Dimension:      DimensionAvailability,
		})
	}
	return events
}

func derefString[T ~string](v *T) string {
	if v == nil {
		return ""
	}
	return string(*v)
}
