package cache

import (
	"context"
	"errors"
	"testing"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/stats"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func newGame(status data.GameStatus) *data.Game {
	a, b := uuid.New(), uuid.New()
	g := data.NewGame(data.GameType1v1, []uuid.UUID{a}, []uuid.UUID{b}, nil, nil)
	g.ID = uuid.New()
	g.Status = status
	g.FinalScore = stats.Score{TeamA: 11, TeamB: 7}
	g.Summary = stats.Summary{a: {Pts: 11}, b: {Pts: 7}}
	return g
}

func TestGameCacheWritesWithStatusTTL(t *testing.T) {
	mr, client := newRedis(t)
	cache := NewGameCache(client)
	ctx := context.Background()

	live := newGame(data.StatusInProgress)
	require.NoError(t, cache.Notify(ctx, live))
	assert.Equal(t, LiveGameTTL, mr.TTL(summaryKey(live.ID)))
	assert.Equal(t, BoxScoreTTL, mr.TTL(boxScoreKey(live.ID)))

	final := newGame(data.StatusFinished)
	require.NoError(t, cache.Notify(ctx, final))
	assert.Equal(t, FinalGameTTL, mr.TTL(summaryKey(final.ID)))

	got, err := cache.ReadGame(ctx, final.ID)
	require.NoError(t, err)
	assert.Equal(t, final.FinalScore, got.FinalScore)
	assert.Equal(t, data.StatusFinished, got.Status)

	box, err := cache.ReadBoxScore(ctx, final.ID)
	require.NoError(t, err)
	assert.Equal(t, final.Summary, box)
}

func TestGameCacheMiss(t *testing.T) {
	_, client := newRedis(t)

	_, err := NewGameCache(client).ReadGame(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, redis.Nil))
}

func TestStreamPublisher(t *testing.T) {
	_, client := newRedis(t)
	publisher := NewStreamPublisher(client)
	ctx := context.Background()

	g := newGame(data.StatusCanceled)
	require.NoError(t, publisher.Notify(ctx, g))
	require.NoError(t, publisher.Notify(ctx, g))

	entries, err := client.XRange(ctx, UpdatesStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, g.ID.String(), entries[0].Values["game_id"])
	assert.Equal(t, "canceled", entries[0].Values["status"])
	assert.Equal(t, "0", entries[0].Values["version"])
	assert.Contains(t, entries[0].Values["data"], `"team_a":11`)
}

func TestGameCacheIgnoresOlderVersions(t *testing.T) {
	mr, client := newRedis(t)
	cache := NewGameCache(client)
	ctx := context.Background()

	final := newGame(data.StatusFinished)
	final.Version = 6

	live := *final
	live.Version = 5
	live.Status = data.StatusInProgress
	live.FinalScore = stats.Score{TeamA: 9, TeamB: 7}

	require.NoError(t, cache.Notify(ctx, final))
	require.NoError(t, cache.Notify(ctx, &live))

	got, err := cache.ReadGame(ctx, final.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.Version)
	assert.Equal(t, data.StatusFinished, got.Status)
	assert.Equal(t, stats.Score{TeamA: 11, TeamB: 7}, got.FinalScore)
	assert.Equal(t, FinalGameTTL, mr.TTL(summaryKey(final.ID)))

	newer := *final
	newer.Version = 7
	newer.Status = data.StatusCanceled
	require.NoError(t, cache.Notify(ctx, &newer))

	got, err = cache.ReadGame(ctx, final.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Version)
	assert.Equal(t, data.StatusCanceled, got.Status)
}
