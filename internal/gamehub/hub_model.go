// Package gamehub streams live game updates to websocket watchers.
package gamehub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/jsonlog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Update is the frame sent to watchers for every change to a game.
type Update struct {
	Type string     `json:"type"`
	Game *data.Game `json:"game"`
}

// HubModel keeps one hub per game that has watchers.
type HubModel struct {
	mu     sync.Mutex
	Active map[uuid.UUID]*Hub
	logger *jsonlog.Logger
}

func NewHubModel(logger *jsonlog.Logger) *HubModel {
	return &HubModel{
		Active: make(map[uuid.UUID]*Hub),
		logger: logger,
	}
}

func (m *HubModel) hubFor(gameID uuid.UUID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.Active[gameID]; ok {
		return hub
	}

	hub := newHub(gameID)
	m.Active[gameID] = hub
	go func() {
		hub.Run()
		m.retire(hub)
	}()

	return hub
}

func (m *HubModel) retire(hub *Hub) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Active[hub.GameID] == hub {
		delete(m.Active, hub.GameID)
	}
}

// Watch subscribes conn to the game. The first frame is the game as passed in. Watchers of a
// game that is already over get that frame and a close. The hub owns conn afterwards.
func (m *HubModel) Watch(game *data.Game, conn *websocket.Conn) error {
	snapshot, err := json.Marshal(Update{Type: "game_snapshot", Game: game})
	if err != nil {
		return err
	}

	if game.Status.IsTerminal() {
		w := &Watcher{Conn: conn, Receive: make(chan []byte, 1)}
		w.Receive <- snapshot
		close(w.Receive)
		go w.WriteEvents()
		return nil
	}

	var w *Watcher
	for {
		hub := m.hubFor(game.ID)
		w = newWatcher(hub, conn)
		w.Receive <- snapshot

		err := hub.Join(w)
		if err == nil {
			break
		}
		if !errors.Is(err, errHubIdle) {
			return err
		}
		// The last watcher left between lookup and join.
		m.retire(hub)
	}

	m.logger.PrintInfo("watcher joined", map[string]string{"game_id": game.ID.String()})

	go w.WriteEvents()
	go w.ReadEvents()

	return nil
}

// Notify forwards the game to its watchers, if any. Terminal games close the hub.
func (m *HubModel) Notify(_ context.Context, game *data.Game) error {
	m.mu.Lock()
	hub, ok := m.Active[game.ID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	payload, err := json.Marshal(Update{Type: "game_update", Game: game})
	if err != nil {
		return err
	}

	hub.Broadcast(payload, game.Status.IsTerminal())
	return nil
}

// Shutdown closes every live hub and its watchers.
func (m *HubModel) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, hub := range m.Active {
		hub.Stop()
	}
}

// Live reports how many games currently have a hub.
func (m *HubModel) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Active)
}
