package gamehub

import (
	"errors"
	"time"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 1 * time.Minute

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Watchers only send control frames.
	maxMessageSize = 512

	// Updates queued per watcher before it is dropped as too slow.
	sendBuffer = 16
)

var (
	newline       = []byte{'\n'}
	ErrGameClosed = errors.New("game is no longer live")
)
