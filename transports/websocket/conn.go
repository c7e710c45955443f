// Package websocket is the meeting transport: one WebSocket connection per
// client, JSON envelopes both ways.
package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/protocol"
)

// Conn wraps a gorilla connection with a write mutex so the drive loop, the
// audio workers and the read loop can all send without interleaving frames.
// Implements protocol.Sender.
type Conn struct {
	conn *websocket.Conn
	mu   sync.Mutex // protects writes
}

// NewConn wraps an already-upgraded connection.
func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

// Send marshals an envelope and writes it as one text frame.
func (c *Conn) Send(msgType protocol.MessageType, payload interface{}) error {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ReadEnvelope blocks for the next inbound envelope.
func (c *Conn) ReadEnvelope() (protocol.MessageType, json.RawMessage, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return "", nil, err
	}
	return protocol.Unmarshal(data)
}

// Close shuts the underlying connection down.
func (c *Conn) Close() error {
	return c.conn.Close()
}
