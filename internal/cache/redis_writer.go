// Package cache mirrors game state into Redis for external scoreboards.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/stats"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	LiveGameTTL  = 2 * time.Hour
	FinalGameTTL = 6 * time.Hour
	BoxScoreTTL  = 6 * time.Hour
)

// GameCache writes every game it is notified about under game:{id}:summary and the box score
// under game:{id}:boxscore.
type GameCache struct {
	client *redis.Client
}

func NewGameCache(client *redis.Client) *GameCache {
	return &GameCache{client: client}
}

// writeIfNewer stores the game and its box score unless a newer version is already cached.
// KEYS: summary, boxscore, version. ARGV: version, summary, summary ttl ms, boxscore,
// boxscore ttl ms.
var writeIfNewer = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[3]) or '-1')
local incoming = tonumber(ARGV[1])
if incoming < current then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[4], 'PX', ARGV[5])
redis.call('SET', KEYS[3], ARGV[1], 'PX', ARGV[3])
return 1
`)

func summaryKey(gameID uuid.UUID) string {
	return fmt.Sprintf("game:%s:summary", gameID)
}

func boxScoreKey(gameID uuid.UUID) string {
	return fmt.Sprintf("game:%s:boxscore", gameID)
}

func versionKey(gameID uuid.UUID) string {
	return fmt.Sprintf("game:%s:version", gameID)
}

func ttlFor(status data.GameStatus) time.Duration {
	if status.IsTerminal() {
		return FinalGameTTL
	}
	return LiveGameTTL
}

// Notify caches the game. Versions older than the cached one are ignored, so updates that
// arrive out of order never replace a newer game.
func (c *GameCache) Notify(ctx context.Context, game *data.Game) error {
	summary, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshaling game: %w", err)
	}
	boxScore, err := json.Marshal(game.Summary)
	if err != nil {
		return fmt.Errorf("marshaling boxscore: %w", err)
	}

	keys := []string{summaryKey(game.ID), boxScoreKey(game.ID), versionKey(game.ID)}
	return writeIfNewer.Run(ctx, c.client, keys,
		game.Version,
		summary,
		ttlFor(game.Status).Milliseconds(),
		boxScore,
		BoxScoreTTL.Milliseconds(),
	).Err()
}

// ReadGame returns the cached game, or redis.Nil when it is not cached.
func (c *GameCache) ReadGame(ctx context.Context, gameID uuid.UUID) (*data.Game, error) {
	raw, err := c.client.Get(ctx, summaryKey(gameID)).Bytes()
	if err != nil {
		return nil, err
	}

	var game data.Game
	if err := json.Unmarshal(raw, &game); err != nil {
		return nil, fmt.Errorf("unmarshaling game: %w", err)
	}
	return &game, nil
}

func (c *GameCache) ReadBoxScore(ctx context.Context, gameID uuid.UUID) (stats.Summary, error) {
	raw, err := c.client.Get(ctx, boxScoreKey(gameID)).Bytes()
	if err != nil {
		return nil, err
	}

	var summary stats.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("unmarshaling boxscore: %w", err)
	}
	return summary, nil
}
