package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// envelope is the wire format in both directions: a tagged event name plus
// an event-specific JSON payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(event string, data any) {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		log.Printf("marshal event failed event=%s error=%v", event, err)
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteMessage(websocket.TextMessage, payload)
}

func marshalEnvelope(event string, data any) ([]byte, error) {
	msg := envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}

// hub is the process-scoped connection registry: room membership, the
// conn-to-player binding, and direct routing by connection id. It starts
// empty and has no teardown beyond process exit.
type hub struct {
	mu      sync.Mutex
	rooms   map[string]map[*client]struct{}
	byID    map[string]*client
	members map[*client]map[string]struct{}
	players map[*client]string
}

func newHub() *hub {
	return &hub{
		rooms:   make(map[string]map[*client]struct{}),
		byID:    make(map[string]*client),
		members: make(map[*client]map[string]struct{}),
		players: make(map[*client]string),
	}
}

func (h *hub) Register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byID[c.id] = c
}

// Unregister removes the connection and reports the player identifier and
// room codes it was bound to, for disconnect handling.
func (h *hub) Unregister(c *client) (string, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	playerID := h.players[c]
	codes := make([]string, 0, len(h.members[c]))
	for code := range h.members[c] {
		codes = append(codes, code)
		if group, ok := h.rooms[code]; ok {
			delete(group, c)
			if len(group) == 0 {
				delete(h.rooms, code)
			}
		}
	}
	delete(h.members, c)
	delete(h.players, c)
	delete(h.byID, c.id)
	_ = c.conn.Close()
	return playerID, codes
}

func (h *hub) JoinRoom(code string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[code]
	if group == nil {
		group = make(map[*client]struct{})
		h.rooms[code] = group
	}
	group[c] = struct{}{}
	membership := h.members[c]
	if membership == nil {
		membership = make(map[string]struct{})
		h.members[c] = membership
	}
	membership[code] = struct{}{}
}

func (h *hub) BindPlayer(c *client, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.players[c] = playerID
}

func (h *hub) Broadcast(code, event string, data any) {
	h.mu.Lock()
	group := h.rooms[code]
	conns := make([]*client, 0, len(group))
	for c := range group {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	payload, err := marshalEnvelope(event, data)
	if err != nil {
		log.Printf("marshal broadcast failed event=%s error=%v", event, err)
		return
	}
	for _, c := range conns {
		c.writeMu.Lock()
		err := c.conn.WriteMessage(websocket.TextMessage, payload)
		c.writeMu.Unlock()
		if err != nil {
			_ = c.conn.Close()
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: uuid.New().String(), conn: conn}
	s.hub.Register(c)
	log.Printf("ws connected conn=%s remote=%s", c.id, r.RemoteAddr)
	go s.readLoop(c)
}

func (s *Server) readLoop(c *client) {
	defer s.handleDisconnect(c)
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected conn=%s error=%v", c.id, err)
			return
		}
		s.dispatch(c, payload)
	}
}
