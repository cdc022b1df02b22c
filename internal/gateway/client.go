package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/user"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsReadWindow   = 60 * time.Second
	ctrlTimeout    = 5 * time.Second
)

// client wraps one authenticated websocket connection. The write mutex
// serializes application writes, control frames and the close frame;
// gorilla/websocket allows only one concurrent writer.
type client struct {
	id           string
	userID       string
	capabilities user.CapabilitySet
	conn         *websocket.Conn
	mu           sync.Mutex
}

// sendJSON marshals v and writes a single text frame under the write lock.
func (c *client) sendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// ping sends a control ping; a failure means the peer is gone.
func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
}

// writeClose sends a close control frame with the given code and reason.
func (c *client) writeClose(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(ctrlTimeout),
	)
}
