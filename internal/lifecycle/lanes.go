package lifecycle

import (
	"context"
	"fmt"

	"PickupStatsApi/internal/data"

	"github.com/google/uuid"
)

// lane serializes the writers of one game and delivers their snapshots to the notifiers in
// save order. pending, draining and users are guarded by Controller.lanesMu.
type lane struct {
	writer   chan struct{}
	pending  []*data.Game
	draining bool
	users    int
}

// acquire blocks until the caller is the only writer of the game in this process.
func (c *Controller) acquire(ctx context.Context, gameID uuid.UUID) (*lane, error) {
	c.lanesMu.Lock()
	l, ok := c.lanes[gameID]
	if !ok {
		l = &lane{writer: make(chan struct{}, 1)}
		c.lanes[gameID] = l
	}
	l.users++
	c.lanesMu.Unlock()

	select {
	case l.writer <- struct{}{}:
		return l, nil
	case <-ctx.Done():
		c.lanesMu.Lock()
		l.users--
		c.dropIdle(gameID, l)
		c.lanesMu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *Controller) release(gameID uuid.UUID, l *lane) {
	<-l.writer

	c.lanesMu.Lock()
	defer c.lanesMu.Unlock()
	l.users--
	c.dropIdle(gameID, l)
}

// dropIdle forgets a lane nobody is writing to or delivering from. Callers hold lanesMu.
func (c *Controller) dropIdle(gameID uuid.UUID, l *lane) {
	if l.users == 0 && !l.draining && len(l.pending) == 0 {
		delete(c.lanes, gameID)
	}
}

// notify queues a snapshot of the saved game. The caller still holds the lane, so snapshots
// enter the queue in version order.
func (c *Controller) notify(l *lane, game *data.Game) {
	if len(c.notifiers) == 0 {
		return
	}

	snapshot := *game
	withLiveSummary(&snapshot)

	c.lanesMu.Lock()
	l.pending = append(l.pending, &snapshot)
	start := !l.draining
	l.draining = true
	c.lanesMu.Unlock()

	if start {
		c.background(func() { c.drain(game.ID, l) })
	}
}

func (c *Controller) drain(gameID uuid.UUID, l *lane) {
	for {
		c.lanesMu.Lock()
		if len(l.pending) == 0 {
			l.draining = false
			c.dropIdle(gameID, l)
			c.lanesMu.Unlock()
			return
		}
		next := l.pending[0]
		l.pending = l.pending[1:]
		c.lanesMu.Unlock()

		c.deliver(next)
	}
}

func (c *Controller) deliver(snapshot *data.Game) {
	for _, n := range c.notifiers {
		if err := n.Notify(context.Background(), snapshot); err != nil {
			c.logger.PrintError(err, map[string]string{
				"game_id":  snapshot.ID.String(),
				"version":  fmt.Sprint(snapshot.Version),
				"notifier": fmt.Sprintf("%T", n),
			})
		}
	}
}
