// Package career folds finished and canceled games into each player's career record.
package career

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/jsonlog"
	"PickupStatsApi/internal/metrics"
	"PickupStatsApi/internal/stats"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentUpdates bounds the per-game fan-out.
const maxConcurrentUpdates = 8

type Updater interface {
	ApplyCareer(ctx context.Context, playerID uuid.UUID, delta data.CareerDelta) error
}

type Accumulator struct {
	players Updater
	logger  *jsonlog.Logger
	metrics metrics.Recorder
}

func New(players Updater, logger *jsonlog.Logger, recorder metrics.Recorder) *Accumulator {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Accumulator{players: players, logger: logger, metrics: recorder}
}

// Delta is what game adds to one player's record: one game played, the win or loss (finished
// games with a winner only), every box score counter and the player's shots in ledger order.
func Delta(game *data.Game, playerID uuid.UUID) data.CareerDelta {
	side, _ := game.SideOf(playerID)
	win, loss := stats.Attribution(game.Status == data.StatusFinished, game.Winner, side)
	b := game.Summary[playerID]

	delta := data.CareerDelta{
		Stats: data.OverallStats{
			GamesPlayed:    1,
			Wins:           win,
			Losses:         loss,
			TotalPoints:    b.Pts,
			TotalFga:       b.Fga,
			TotalFgm:       b.Fgm,
			Total3pa:       b.ThreePa,
			Total3pm:       b.ThreePm,
			Total2pa:       b.TwoPa(),
			Total2pm:       b.TwoPm(),
			TotalFta:       b.Fta,
			TotalFtm:       b.Ftm,
			TotalRebounds:  b.Reb,
			TotalOreb:      b.Oreb,
			TotalDreb:      b.Dreb,
			TotalAssists:   b.Ast,
			TotalTurnovers: b.Tov,
			TotalSteals:    b.Stl,
			TotalBlocks:    b.Blk,
			TotalFouls:     b.Pf,
		},
		Shots: []data.Shot{},
	}
	if b.IsDoubleDouble {
		delta.Stats.TotalDoubleDoubles = 1
	}
	if b.IsTripleDouble {
		delta.Stats.TotalTripleDoubles = 1
	}

	for _, e := range game.Events {
		if e.Type != stats.EventShot || e.PlayerID != playerID {
			continue
		}
		shot := data.Shot{Made: e.Made, Points: e.Points, GameID: game.ID, Timestamp: e.Timestamp}
		if e.Location != nil {
			x, y := e.Location.X, e.Location.Y
			shot.X, shot.Y = &x, &y
		}
		delta.Shots = append(delta.Shots, shot)
	}

	return delta
}

// Apply updates every rostered player concurrently. A failed update is logged and counted but
// does not stop or undo the others. The returned error joins every failure.
func (a *Accumulator) Apply(ctx context.Context, game *data.Game) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(maxConcurrentUpdates)

	for _, playerID := range game.AllPlayerIDs {
		playerID := playerID
		g.Go(func() error {
			if err := a.ApplyPlayer(ctx, game, playerID); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// ApplyPlayer folds game into a single player's record.
func (a *Accumulator) ApplyPlayer(ctx context.Context, game *data.Game, playerID uuid.UUID) error {
	err := a.players.ApplyCareer(ctx, playerID, Delta(game, playerID))
	a.metrics.CareerUpdate(err == nil)
	if err != nil {
		a.logger.PrintError(err, map[string]string{
			"game_id":   game.ID.String(),
			"player_id": playerID.String(),
			"status":    string(game.Status),
		})
		return fmt.Errorf("career update for player %s: %w", playerID, err)
	}

	return nil
}
