package stats

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownEventType   = errors.New("unknown event type")
	ErrInvalidShotPoints  = errors.New("shot points must be 2 or 3")
	ErrInvalidFreeThrow   = errors.New("free throw points must be 1")
	ErrInvalidReboundType = errors.New("rebound type must be offensive or defensive")
	ErrInvalidTeam        = errors.New("team must be team_a or team_b")
	ErrMissingPlayer      = errors.New("event player must be provided")
)

type EventType string

const (
	EventShot      EventType = "shot"
	EventFreeThrow EventType = "free_throw"
	EventRebound   EventType = "rebound"
	EventTurnover  EventType = "turnover"
	EventSteal     EventType = "steal"
	EventBlock     EventType = "block"
	EventFoul      EventType = "foul"
	EventAssist    EventType = "assist"
)

// EventTypes lists every type the ledger accepts.
var EventTypes = []EventType{
	EventShot, EventFreeThrow, EventRebound, EventTurnover, EventSteal, EventBlock, EventFoul,
	EventAssist,
}

type ReboundType string

const (
	ReboundOffensive ReboundType = "offensive"
	ReboundDefensive ReboundType = "defensive"
)

type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Event is one entry of a game ledger. Which payload fields are meaningful depends on Type:
// shots carry Location, Made and Points; free throws carry Made; rebounds carry ReboundType.
type Event struct {
	Type         EventType   `json:"type"`
	PlayerID     uuid.UUID   `json:"player_id"`
	Team         Team        `json:"team"`
	Timestamp    time.Time   `json:"timestamp"`
	Location     *Location   `json:"location,omitempty"`
	Made         bool        `json:"made,omitempty"`
	Points       int         `json:"points,omitempty"`
	ReboundType  ReboundType `json:"rebound_type,omitempty"`
	TurnoverType string      `json:"turnover_type,omitempty"`
}

// Validate checks the type-specific payload. Roster membership is checked by the ledger.
func (e Event) Validate() error {
	if e.PlayerID == uuid.Nil {
		return ErrMissingPlayer
	}
	if !e.Team.Valid() {
		return ErrInvalidTeam
	}
	if !slices.Contains(EventTypes, e.Type) {
		return ErrUnknownEventType
	}

	switch e.Type {
	case EventShot:
		if e.Points != 2 && e.Points != 3 {
			return ErrInvalidShotPoints
		}
	case EventFreeThrow:
		if e.Points != 0 && e.Points != 1 {
			return ErrInvalidFreeThrow
		}
	case EventRebound:
		if e.ReboundType != "" && e.ReboundType != ReboundOffensive &&
			e.ReboundType != ReboundDefensive {
			return ErrInvalidReboundType
		}
	}

	return nil
}

// ScoredPoints returns the points a made shot or made free throw adds to the team score.
func (e Event) ScoredPoints() int {
	if !e.Made {
		return 0
	}

	switch e.Type {
	case EventShot:
		return e.Points
	case EventFreeThrow:
		return 1
	default:
		return 0
	}
}

func (e Event) IsThree() bool {
	return e.Type == EventShot && e.Points == 3
}
