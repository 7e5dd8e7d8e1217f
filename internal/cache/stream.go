package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"PickupStatsApi/internal/data"

	"github.com/redis/go-redis/v9"
)

const (
	UpdatesStream = "games.updates"
	// streamMaxLen caps the stream, trimmed approximately.
	streamMaxLen = 10000
)

// StreamPublisher appends every game change to the games.updates stream.
type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client) *StreamPublisher {
	return &StreamPublisher{client: client, stream: UpdatesStream}
}

func (p *StreamPublisher) Notify(ctx context.Context, game *data.Game) error {
	payload, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshaling game update: %w", err)
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":    string(payload),
			"game_id": game.ID.String(),
			"status":  string(game.Status),
			"version": game.Version,
			"events":  len(game.Events),
		},
	}).Err()
}
