package gamehub

import (
	"time"

	"github.com/gorilla/websocket"
)

// Watcher is a read-only websocket client following one game.
type Watcher struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Receive chan []byte
}

func newWatcher(hub *Hub, conn *websocket.Conn) *Watcher {
	return &Watcher{
		Hub:     hub,
		Conn:    conn,
		Receive: make(chan []byte, sendBuffer),
	}
}

// WriteEvents pumps queued updates to the connection until the hub closes Receive.
func (w *Watcher) WriteEvents() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = w.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-w.Receive:
			_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game closed")
				_ = w.Conn.WriteMessage(websocket.CloseMessage, closeMessage)
				return
			}

			writer, err := w.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = writer.Write(message)

			// Updates still queued go out in the same frame, one per line.
			n := len(w.Receive)
			for i := 0; i < n; i++ {
				next, ok := <-w.Receive
				if !ok {
					break
				}
				_, _ = writer.Write(newline)
				_, _ = writer.Write(next)
			}

			if err := writer.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadEvents drains control frames so pongs and client closes are noticed.
func (w *Watcher) ReadEvents() {
	defer w.Hub.Leave(w)

	w.Conn.SetReadLimit(maxMessageSize)
	_ = w.Conn.SetReadDeadline(time.Now().Add(pongWait))
	w.Conn.SetPongHandler(func(string) error {
		return w.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := w.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
