package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one live websocket connection bound to an authenticated user.
// sessionID is minted per connection and stamped onto the user's seat, so a
// disconnect from a superseded socket can be told apart from the live one.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	userID    string
	username  string
	sessionID string
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, userID, username, sessionID string) *Client {
	return &Client{
		conn:      conn,
		send:      make(chan []byte, 32),
		userID:    userID,
		username:  username,
		sessionID: sessionID,
	}
}

// enqueue queues a frame for the write loop. Sending on a closed channel
// panics, so a racing close is absorbed here.
func (c *Client) enqueue(msg []byte) {
	defer func() { _ = recover() }()
	c.send <- msg
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) writeLoop() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
