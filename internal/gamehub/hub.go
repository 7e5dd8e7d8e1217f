package gamehub

import (
	"errors"

	"github.com/google/uuid"
)

var errHubIdle = errors.New("hub stopped after its last watcher left")

type message struct {
	payload []byte
	final   bool
}

// Hub fans the updates of one game out to its watchers. A final message closes every watcher
// and stops the hub. The hub also stops once its last watcher is gone; closed tells the two
// apart and is only read after done.
type Hub struct {
	GameID    uuid.UUID
	watchers  map[*Watcher]bool
	closed    bool
	join      chan *Watcher
	leave     chan *Watcher
	broadcast chan message
	stop      chan struct{}
	done      chan struct{}
}

func newHub(gameID uuid.UUID) *Hub {
	return &Hub{
		GameID:    gameID,
		watchers:  make(map[*Watcher]bool),
		join:      make(chan *Watcher),
		leave:     make(chan *Watcher),
		broadcast: make(chan message),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case watcher := <-h.join:
			h.watchers[watcher] = true
		case watcher := <-h.leave:
			if _, ok := h.watchers[watcher]; ok {
				delete(h.watchers, watcher)
				close(watcher.Receive)
			}
			if len(h.watchers) == 0 {
				return
			}
		case msg := <-h.broadcast:
			h.ToAllWatchers(msg.payload)
			if msg.final {
				h.closed = true
				h.closeAll()
				return
			}
			if len(h.watchers) == 0 {
				return
			}
		case <-h.stop:
			h.closed = true
			h.closeAll()
			return
		}
	}
}

func (h *Hub) ToAllWatchers(msg []byte) {
	for watcher := range h.watchers {
		select {
		case watcher.Receive <- msg:
		default:
			close(watcher.Receive)
			delete(h.watchers, watcher)
		}
	}
}

func (h *Hub) closeAll() {
	for watcher := range h.watchers {
		close(watcher.Receive)
		delete(h.watchers, watcher)
	}
}

func (h *Hub) Join(w *Watcher) error {
	select {
	case h.join <- w:
		return nil
	case <-h.done:
		if h.closed {
			return ErrGameClosed
		}
		return errHubIdle
	}
}

func (h *Hub) Leave(w *Watcher) {
	select {
	case h.leave <- w:
	case <-h.done:
	}
}

func (h *Hub) Broadcast(payload []byte, final bool) {
	select {
	case h.broadcast <- message{payload: payload, final: final}:
	case <-h.done:
	}
}

func (h *Hub) Stop() {
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
}
