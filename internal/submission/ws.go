package submission

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowforge/flowcore/internal/protocol"
)

const (
	wsWriteWait = 10 * time.Second
	wsReadWait  = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSChannel implements contextfns.ClientChannel over a single websocket
// connection to a submission's external client. The protocol is strict
// request/response, so Send serializes the whole round trip under one
// mutex: write the server message, then block for the next client message
// on the connection (spec.md §5's shared-resource policy already
// serializes calls to a given context function through its single function
// instance; this mutex additionally protects the connection itself when a
// submission wires more than one context function over it).
type WSChannel struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewWSChannel upgrades an inbound HTTP request to a websocket connection
// and wraps it as a ClientChannel.
func NewWSChannel(w http.ResponseWriter, r *http.Request) (*WSChannel, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrading websocket: %w", err)
	}
	return &WSChannel{conn: conn}, nil
}

// Send writes msg and blocks for the matching client response.
func (c *WSChannel) Send(ctx context.Context, msg protocol.ServerMessage) (protocol.ClientMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero protocol.ClientMessage

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
	} else {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return zero, fmt.Errorf("writing %s: %w", msg.Type, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(deadline)
	} else {
		c.conn.SetReadDeadline(time.Now().Add(wsReadWait))
	}

	var resp protocol.ClientMessage
	if err := c.conn.ReadJSON(&resp); err != nil {
		return zero, fmt.Errorf("reading response to %s: %w", msg.Type, err)
	}
	return resp, nil
}

// Close closes the underlying connection.
func (c *WSChannel) Close() error {
	return c.conn.Close()
}
