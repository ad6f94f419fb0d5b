package ws

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// sessionCounter disambiguates clients behind the same address.
var sessionCounter atomic.Uint64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The canvas is open to anonymous browsers on any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla websocket to the hub's Conn interface. gorilla
// permits only one concurrent writer, so writes are serialized with a
// mutex.
type wsConn struct {
	id   string
	sock *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) WriteText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.sock.Close()
}

// ServeWS upgrades an HTTP request to a websocket session and pumps inbound
// frames into the hub until the client goes away.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Warningf("websocket upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	c := &wsConn{
		id:   fmt.Sprintf("%s#%d", r.RemoteAddr, sessionCounter.Add(1)),
		sock: sock,
	}

	hub.OnConnect(c)
	defer func() {
		hub.OnDisconnect(c)
		_ = c.Close()
	}()

	for {
		kind, frame, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Logger.Debugf("client %s read error: %v", c.id, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		hub.HandleInbound(c.id, frame)
	}
}
