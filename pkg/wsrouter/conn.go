package wsrouter

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn serializes writes to a websocket connection. The read side is only
// touched by ServeConn; the write side is shared between message handlers
// and notification pumps.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) ReadJSON(v any) error {
	return c.ws.ReadJSON(v)
}

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ws.WriteJSON(v)
}

func (c *Conn) WriteClose(code int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
