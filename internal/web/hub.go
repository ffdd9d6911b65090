package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	sendBuf      = 16
	broadcastBuf = 64
)

// envelope is the wire format for websocket messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// hub tracks connected websocket clients and fans out broadcasts.
// A client whose queue is full is disconnected rather than slowing the
// others down.
type hub struct {
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{} // closed when run returns

	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{
		broadcast:  make(chan []byte, broadcastBuf),
		register:   make(chan *client, 16),
		unregister: make(chan *client, 16),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
	}
}

// run processes hub events until ctx is canceled, then disconnects every
// client.
func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			h.drainPending()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			log.Info().Str("remote_addr", c.remoteAddr).Int("clients", n).Msg("ws client connected")

		case c := <-h.unregister:
			h.remove(c, "unregister")

		case msg := <-h.broadcast:
			var slow []*client
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.remove(c, "slow_client")
			}
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		c.closeSend()
		delete(h.clients, c)
	}
}

// drainPending closes clients that were queued for registration after run
// stopped reading.
func (h *hub) drainPending() {
	for {
		select {
		case c := <-h.register:
			c.conn.Close()
			c.closeSend()
		case <-h.unregister:
		default:
			return
		}
	}
}

// add queues c for registration. It returns false once the hub has stopped.
func (h *hub) add(c *client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// drop queues c for removal unless the hub has stopped, in which case
// closeAll already released it.
func (h *hub) drop(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *hub) remove(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.conn.Close()
	c.closeSend()
	log.Info().Str("remote_addr", c.remoteAddr).Str("reason", reason).Int("clients", n).Msg("ws client disconnected")
}

// count returns the number of registered clients.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcastBytes enqueues a serialized frame. It never blocks; a full
// queue drops the frame.
func (h *hub) broadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		log.Warn().Int("bytes", len(msg)).Msg("ws broadcast queue full, dropping message")
	}
}

type client struct {
	hub        *hub
	conn       *websocket.Conn
	send       chan []byte
	closeOnce  sync.Once
	remoteAddr string
}

func newClient(h *hub, conn *websocket.Conn, remoteAddr string) *client {
	return &client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: remoteAddr,
	}
}

func (c *client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// writePump writes queued frames and keepalive pings. It exits on write
// error or when send is closed.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("write", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("ping", err)
				return
			}
		}
	}
}

// readPump discards incoming messages to service control frames and detect
// disconnects, then unregisters the client.
func (c *client) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logExit("read", err)
			c.hub.drop(c)
			return
		}
	}
}

func (c *client) logExit(op string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	ev := log.Debug().Str("remote_addr", c.remoteAddr).Str("op", op)
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		ev.Int("code", ce.Code).Str("reason", ce.Text).Msg("ws pump exiting (close)")
		return
	}
	ev.Err(err).Msg("ws pump exiting")
}
