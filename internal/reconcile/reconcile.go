// Package reconcile finds players whose career record drifted from their game history and
// optionally rebuilds it.
package reconcile

import (
	"context"
	"fmt"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/jsonlog"
	"PickupStatsApi/internal/stats"

	"github.com/google/uuid"
)

type PlayerStore interface {
	CareerDivergences(ctx context.Context) ([]data.CareerDivergence, error)
	ResetCareer(ctx context.Context, playerID uuid.UUID) error
}

type GameHistory interface {
	TerminalForPlayer(ctx context.Context, playerID uuid.UUID) ([]*data.Game, error)
}

type CareerApplier interface {
	ApplyPlayer(ctx context.Context, game *data.Game, playerID uuid.UUID) error
}

type Job struct {
	players PlayerStore
	games   GameHistory
	career  CareerApplier
	logger  *jsonlog.Logger
}

func New(players PlayerStore, games GameHistory, career CareerApplier, logger *jsonlog.Logger) *Job {
	return &Job{players: players, games: games, career: career, logger: logger}
}

type Report struct {
	Divergences []data.CareerDivergence `json:"divergences"`
	Repaired    []uuid.UUID             `json:"repaired"`
	Failed      map[uuid.UUID]string    `json:"failed"`
}

// Run lists diverging players. With repair set, each one's record is cleared and rebuilt from
// every finished or canceled game that references them, oldest first.
func (j *Job) Run(ctx context.Context, repair bool) (*Report, error) {
	divergences, err := j.players.CareerDivergences(ctx)
	if err != nil {
		return nil, fmt.Errorf("list divergences: %w", err)
	}

	report := &Report{
		Divergences: divergences,
		Repaired:    []uuid.UUID{},
		Failed:      map[uuid.UUID]string{},
	}
	for _, d := range divergences {
		j.logger.PrintInfo("career divergence", map[string]string{
			"player_id":      d.PlayerID.String(),
			"games_played":   fmt.Sprint(d.GamesPlayed),
			"terminal_games": fmt.Sprint(d.TerminalGames),
		})
	}

	if !repair {
		return report, nil
	}

	for _, d := range divergences {
		if err := j.rebuild(ctx, d.PlayerID); err != nil {
			j.logger.PrintError(err, map[string]string{"player_id": d.PlayerID.String()})
			report.Failed[d.PlayerID] = err.Error()
			continue
		}
		report.Repaired = append(report.Repaired, d.PlayerID)
	}

	return report, nil
}

func (j *Job) rebuild(ctx context.Context, playerID uuid.UUID) error {
	games, err := j.games.TerminalForPlayer(ctx, playerID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if err := j.players.ResetCareer(ctx, playerID); err != nil {
		return fmt.Errorf("reset career: %w", err)
	}

	for _, game := range games {
		if _, ok := game.Summary[playerID]; !ok {
			game.Summary = stats.ComputeBoxScores(game.AllPlayerIDs, game.Events)
		}
		if err := j.career.ApplyPlayer(ctx, game, playerID); err != nil {
			return fmt.Errorf("replay game %s: %w", game.ID, err)
		}
	}

	return nil
}
