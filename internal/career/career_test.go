package career

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/jsonlog"
	"PickupStatsApi/internal/ledger"
	"PickupStatsApi/internal/metrics"
	"PickupStatsApi/internal/stats"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	p1 = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	p2 = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	p3 = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

type fakeUpdater struct {
	mu      sync.Mutex
	applied map[uuid.UUID][]data.CareerDelta
	fail    map[uuid.UUID]error
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{applied: map[uuid.UUID][]data.CareerDelta{}, fail: map[uuid.UUID]error{}}
}

func (f *fakeUpdater) ApplyCareer(_ context.Context, playerID uuid.UUID, delta data.CareerDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[playerID]; ok {
		return err
	}
	f.applied[playerID] = append(f.applied[playerID], delta)
	return nil
}

// playedGame builds a 2v1 game where team_a wins 5 to 2.
func playedGame(t *testing.T, status data.GameStatus) *data.Game {
	t.Helper()

	g := data.NewGame(data.GameType2v2, []uuid.UUID{p1, p2}, []uuid.UUID{p3}, nil, nil)
	g.ID = uuid.New()
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	events := []stats.Event{
		{Type: stats.EventShot, PlayerID: p1, Made: true, Points: 3, Location: &stats.Location{X: 20, Y: 5}},
		{Type: stats.EventShot, PlayerID: p1, Made: false, Points: 2, Location: &stats.Location{X: 4, Y: 2}},
		{Type: stats.EventFreeThrow, PlayerID: p1, Made: true},
		{Type: stats.EventShot, PlayerID: p3, Made: true, Points: 2},
		{Type: stats.EventAssist, PlayerID: p2},
		{Type: stats.EventShot, PlayerID: p2, Made: false, Points: 3},
		{Type: stats.EventFreeThrow, PlayerID: p2, Made: true},
	}
	for i, e := range events {
		require.NoError(t, ledger.Append(g, e, at.Add(time.Duration(i)*time.Second)))
	}

	g.Summary = stats.ComputeBoxScores(g.AllPlayerIDs, g.Events)
	g.Status = status
	if status == data.StatusFinished {
		g.Winner = stats.ResolveOutcome(g.FinalScore)
	}
	return g
}

func TestDeltaFinishedGame(t *testing.T) {
	g := playedGame(t, data.StatusFinished)
	require.NotNil(t, g.Winner)
	require.Equal(t, stats.TeamA, *g.Winner)

	d := Delta(g, p1)
	assert.Equal(t, 1, d.Stats.GamesPlayed)
	assert.Equal(t, 1, d.Stats.Wins)
	assert.Equal(t, 0, d.Stats.Losses)
	assert.Equal(t, 4, d.Stats.TotalPoints)
	assert.Equal(t, 2, d.Stats.TotalFga)
	assert.Equal(t, 1, d.Stats.Total3pa)
	assert.Equal(t, 1, d.Stats.Total2pa)
	assert.Equal(t, 0, d.Stats.Total2pm)
	assert.Equal(t, 1, d.Stats.TotalFtm)

	require.Len(t, d.Shots, 2)
	x, y := 20.0, 5.0
	assert.Equal(t, data.Shot{X: &x, Y: &y, Made: true, Points: 3, GameID: g.ID,
		Timestamp: g.Events[0].Timestamp}, d.Shots[0])
	assert.False(t, d.Shots[1].Made)

	loser := Delta(g, p3)
	assert.Equal(t, 0, loser.Stats.Wins)
	assert.Equal(t, 1, loser.Stats.Losses)
	assert.Equal(t, 2, loser.Stats.TotalPoints)
	require.Len(t, loser.Shots, 1)
	assert.Nil(t, loser.Shots[0].X)
	assert.Nil(t, loser.Shots[0].Y)

	assert.Equal(t, 1, Delta(g, p2).Stats.TotalAssists)
}

func TestDeltaCanceledGameHasNoDecision(t *testing.T) {
	g := playedGame(t, data.StatusCanceled)
	assert.Nil(t, g.Winner)

	for _, id := range g.AllPlayerIDs {
		d := Delta(g, id)
		assert.Equal(t, 1, d.Stats.GamesPlayed)
		assert.Equal(t, 0, d.Stats.Wins)
		assert.Equal(t, 0, d.Stats.Losses)
	}
	assert.Equal(t, 4, Delta(g, p1).Stats.TotalPoints)
}

func TestDeltaTieHasNoDecision(t *testing.T) {
	g := data.NewGame(data.GameType1v1, []uuid.UUID{p1}, []uuid.UUID{p3}, nil, nil)
	g.Status = data.StatusFinished
	g.Summary = stats.ComputeBoxScores(g.AllPlayerIDs, nil)

	d := Delta(g, p1)
	assert.Equal(t, 1, d.Stats.GamesPlayed)
	assert.Equal(t, 0, d.Stats.Wins+d.Stats.Losses)
	assert.Empty(t, d.Shots)
}

func TestDeltaDoubleDouble(t *testing.T) {
	g := data.NewGame(data.GameType1v1, []uuid.UUID{p1}, []uuid.UUID{p3}, nil, nil)
	g.Status = data.StatusFinished
	g.Summary = stats.Summary{
		p1: {Pts: 10, Reb: 10, Ast: 10, IsDoubleDouble: true, IsTripleDouble: true},
		p3: {},
	}

	d := Delta(g, p1)
	assert.Equal(t, 1, d.Stats.TotalDoubleDoubles)
	assert.Equal(t, 1, d.Stats.TotalTripleDoubles)
	assert.Equal(t, 0, Delta(g, p3).Stats.TotalDoubleDoubles)
}

func TestApplyUpdatesEveryPlayer(t *testing.T) {
	updater := newFakeUpdater()
	acc := New(updater, jsonlog.Discard(), metrics.Noop{})
	g := playedGame(t, data.StatusFinished)

	require.NoError(t, acc.Apply(context.Background(), g))

	for _, id := range g.AllPlayerIDs {
		require.Len(t, updater.applied[id], 1)
		assert.Equal(t, Delta(g, id), updater.applied[id][0])
	}
}

func TestApplyFailureDoesNotStopOthers(t *testing.T) {
	updater := newFakeUpdater()
	errStore := errors.New("connection reset")
	updater.fail[p2] = errStore

	acc := New(updater, jsonlog.Discard(), nil)
	g := playedGame(t, data.StatusFinished)

	err := acc.Apply(context.Background(), g)
	assert.ErrorIs(t, err, errStore)
	assert.Len(t, updater.applied[p1], 1)
	assert.Len(t, updater.applied[p3], 1)
	assert.Empty(t, updater.applied[p2])
}
