package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/darknet-duel/duel-server-go/internal/match"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 64
)

// Seat tokens authenticate websocket clients, so any origin may connect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Websocket message types.
const (
	msgMove   = "move"
	msgState  = "state"
	msgResult = "result"
	msgError  = "error"
)

// inbound is a message from a player.
type inbound struct {
	Type string   `json:"type"`
	Move string   `json:"move,omitempty"`
	Args []string `json:"args,omitempty"`
}

// outbound is a message to a player.
type outbound struct {
	Type     string `json:"type"`
	MatchID  string `json:"match_id,omitempty"`
	Accepted *bool  `json:"accepted,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Data     any    `json:"data,omitempty"`
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	matchID string
	role    rules.Role
	token   string
}

type directMessage struct {
	client *client
	data   []byte
}

// Hub pushes per-role match views to connected players. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	matches *match.Manager
	logger  *zap.Logger

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	updates    chan string
	direct     chan directMessage
	done       chan struct{}
}

// NewHub creates a hub over matches. Call Run before serving clients.
func NewHub(matches *match.Manager, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		matches:    matches,
		logger:     logger,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		updates:    make(chan string, 64),
		direct:     make(chan directMessage, 64),
		done:       make(chan struct{}),
	}
}

// Notify is a match.NotificationHandler.
func (h *Hub) Notify(n match.Notification) {
	select {
	case h.updates <- n.MatchID:
	case <-h.done:
	}
}

// Run serves the hub until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("websocket client registered",
				zap.String("match_id", c.matchID),
				zap.String("role", string(c.role)),
			)
			if data, err := h.stateMessage(c.matchID, c.role); err == nil {
				h.deliver(c, data)
			}

		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
				h.logger.Debug("websocket client unregistered", zap.String("match_id", c.matchID))
			}

		case matchID := <-h.updates:
			h.broadcast(matchID)

		case d := <-h.direct:
			if h.clients[d.client] {
				h.deliver(d.client, d.data)
			}
		}
	}
}

// broadcast sends each client of matchID its own view.
func (h *Hub) broadcast(matchID string) {
	views := make(map[rules.Role][]byte, 2)
	for c := range h.clients {
		if c.matchID != matchID {
			continue
		}
		data, ok := views[c.role]
		if !ok {
			var err error
			if data, err = h.stateMessage(matchID, c.role); err != nil {
				h.logger.Debug("no state to broadcast", zap.String("match_id", matchID), zap.Error(err))
				return
			}
			views[c.role] = data
		}
		h.deliver(c, data)
	}
}

// deliver queues data for c, dropping clients that cannot keep up.
func (h *Hub) deliver(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn("dropping slow websocket client", zap.String("match_id", c.matchID))
		h.drop(c)
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) stateMessage(matchID string, role rules.Role) ([]byte, error) {
	view, err := h.matches.View(matchID, role)
	if err != nil {
		return nil, err
	}
	return json.Marshal(outbound{Type: msgState, MatchID: matchID, Data: view})
}

// reply queues a message for a single client from outside Run.
func (h *Hub) reply(c *client, msg outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode websocket message", zap.Error(err))
		return
	}
	select {
	case h.direct <- directMessage{client: c, data: data}:
	case <-h.done:
	}
}

// ServeWS upgrades /ws/{matchID}?token=... to a websocket for the seat
// holding token.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchID"]
	token := r.URL.Query().Get("token")

	role, err := h.matches.Authenticate(matchID, token)
	if err != nil {
		code := http.StatusUnauthorized
		if errors.Is(err, match.ErrMatchNotFound) {
			code = http.StatusNotFound
		}
		http.Error(w, err.Error(), code)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("match_id", matchID), zap.Error(err))
		return
	}

	c := &client{
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		matchID: matchID,
		role:    role,
		token:   token,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", zap.String("match_id", c.matchID), zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(c, outbound{Type: msgError, Error: "malformed message"})
			continue
		}
		h.handle(c, msg)
	}
}

func (h *Hub) handle(c *client, msg inbound) {
	switch msg.Type {
	case msgMove:
		// The connection outlives its HTTP request, so moves get their own context.
		out, err := h.matches.Apply(context.Background(), c.matchID, c.token, rules.Move(msg.Move), msg.Args...)
		if err != nil {
			h.reply(c, outbound{Type: msgError, MatchID: c.matchID, Error: err.Error()})
			return
		}
		accepted := out.Accepted
		h.reply(c, outbound{Type: msgResult, MatchID: c.matchID, Accepted: &accepted, Message: out.Message})

	case msgState:
		data, err := h.stateMessage(c.matchID, c.role)
		if err != nil {
			h.reply(c, outbound{Type: msgError, MatchID: c.matchID, Error: err.Error()})
			return
		}
		select {
		case h.direct <- directMessage{client: c, data: data}:
		case <-h.done:
		}

	default:
		h.reply(c, outbound{Type: msgError, Error: "unknown message type " + msg.Type})
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
