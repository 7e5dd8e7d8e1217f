// Package ledger appends events to a game's play-by-play. The ledger is append only: entries
// are never rewritten or removed, and append order is the authoritative order.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/stats"

	"github.com/google/uuid"
)

var (
	ErrNotInProgress     = errors.New("game is not in progress")
	ErrPlayerNotInRoster = errors.New("player is not part of this game")
	ErrTeamMismatch      = errors.New("event team does not match the player's team")
)

// Append validates e against the game, stamps it with at and appends it. A made shot or free
// throw adds its points to the team's final score. The game is left untouched on error.
func Append(g *data.Game, e stats.Event, at time.Time) error {
	if g.Status != data.StatusInProgress {
		return fmt.Errorf("%w: game is %s", ErrNotInProgress, g.Status)
	}

	if e.PlayerID == uuid.Nil {
		return stats.ErrMissingPlayer
	}

	side, ok := g.SideOf(e.PlayerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotInRoster, e.PlayerID)
	}
	switch {
	case e.Team == "":
		e.Team = side
	case e.Team != side:
		return fmt.Errorf("%w: player %s plays for %s", ErrTeamMismatch, e.PlayerID, side)
	}

	if err := e.Validate(); err != nil {
		return err
	}

	if e.Type == stats.EventFreeThrow && e.Points == 0 {
		e.Points = 1
	}
	e.Timestamp = at.UTC()

	g.Events = append(g.Events, e)
	g.FinalScore.Add(e.Team, e.ScoredPoints())

	return nil
}
