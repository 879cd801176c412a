package announce

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"arrodes-economy/internal/logging"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

type client struct {
	id   uint64
	user string
	send chan []byte
}

// Hub streams reveals over websockets to every connection a user has open.
// Users without a connection get nothing; their reveals are still logged.
type Hub struct {
	log      zerolog.Logger
	delay    time.Duration
	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu      sync.RWMutex
	clients map[string]map[uint64]*client
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithAllowedOrigins accepts browser connections whose Origin header matches
// one of origins; "*" accepts any. Requests without an Origin header come
// from non-browser clients and are always accepted. Without this option
// only same-host origins connect.
func WithAllowedOrigins(origins ...string) HubOption {
	return func(h *Hub) {
		if len(origins) == 0 {
			return
		}
		if slices.Contains(origins, "*") {
			h.upgrader.CheckOrigin = func(*http.Request) bool { return true }
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return slices.ContainsFunc(origins, func(o string) bool {
				return strings.EqualFold(o, origin)
			})
		}
	}
}

// NewHub returns a hub pacing reveals delay apart.
func NewHub(logger zerolog.Logger, delay time.Duration, opts ...HubOption) *Hub {
	h := &Hub{
		log:   logging.Component(logger, "announce"),
		delay: delay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients: make(map[string]map[uint64]*client),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connections returns the number of open connections for user.
func (h *Hub) Connections(user string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[user])
}

func (h *Hub) Announce(ctx context.Context, a Announcement) error {
	return pace(ctx, a, h.delay, func(r Reveal) {
		msg, err := json.Marshal(r)
		if err != nil {
			h.log.Error().Err(err).Msg("encode reveal")
			return
		}
		h.broadcast(r.User, msg)
		if r.Type == RevealDone {
			h.log.Info().Str("user", r.User).Str("title", r.Title).Int("items", r.Total).Int("connections", h.Connections(r.User)).Msg("reward revealed")
		}
	})
}

func (h *Hub) broadcast(user string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients[user] {
		select {
		case c.send <- msg:
		default:
			h.log.Warn().Str("user", user).Uint64("conn", c.id).Msg("client too slow, dropping reveal")
		}
	}
}

func (h *Hub) register(user string) *client {
	c := &client{id: h.nextID.Add(1), user: user, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[user] == nil {
		h.clients[user] = make(map[uint64]*client)
	}
	h.clients[user][c.id] = c
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[c.user], c.id)
	if len(h.clients[c.user]) == 0 {
		delete(h.clients, c.user)
	}
}

// Serve upgrades the request and streams user's reveals until the client
// disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, user string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Str("user", user).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	c := h.register(user)
	defer h.unregister(c)
	h.log.Debug().Str("user", user).Uint64("conn", c.id).Msg("client connected")

	done := make(chan struct{})
	go h.writePump(conn, c, done)

	// Reader loop only keeps the connection alive and notices disconnects.
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	h.log.Debug().Str("user", user).Uint64("conn", c.id).Msg("client disconnected")
}

func (h *Hub) writePump(conn *websocket.Conn, c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
			return
		case msg := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
