// Package realtime fans live match events out to websocket viewers.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Dosada05/uniplay/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	clientBufferSize = 256
)

// Envelope is the frame written to viewers for every event.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

// NewEnvelope encodes payload into a ready-to-send frame.
func NewEnvelope(room, event string, payload interface{}, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		ID:      uuid.NewString(),
		Type:    event,
		RoomID:  room,
		Payload: raw,
		SentAt:  at.UTC(),
	})
}

// Publisher hands an encoded envelope to other instances. Publish reports
// false when the envelope was not accepted and must be delivered locally.
type Publisher interface {
	Publish(env []byte) bool
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string
}

func NewClient(hub *Hub, conn *websocket.Conn, room string) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan []byte, clientBufferSize), room: room}
}

// Queue buffers a frame for this client only. It must be called before the
// client is registered.
func (c *Client) Queue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

type Hub struct {
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]struct{}
	deliver    chan delivery
	done       chan struct{}

	publisher Publisher
	recorder  *metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

type delivery struct {
	room  string
	event string
	msg   []byte
}

func NewHub(recorder *metrics.Recorder, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]struct{}),
		deliver:    make(chan delivery, clientBufferSize),
		done:       make(chan struct{}),
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
}

// SetPublisher routes broadcasts through p instead of delivering them
// directly. Call before Run.
func (h *Hub) SetPublisher(p Publisher) {
	h.publisher = p
}

// Run owns the room membership until ctx is cancelled, then closes every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for room, clients := range h.rooms {
				for c := range clients {
					close(c.send)
				}
				h.recorder.AddViewers(-len(clients))
				delete(h.rooms, room)
			}
			h.recorder.SetRooms(0)
			return

		case c := <-h.register:
			if _, ok := h.rooms[c.room]; !ok {
				h.rooms[c.room] = make(map[*Client]struct{})
			}
			h.rooms[c.room][c] = struct{}{}
			h.recorder.AddViewers(1)
			h.recorder.SetRooms(len(h.rooms))
			h.logger.Debug("viewer joined", slog.String("room", c.room), slog.Int("viewers", len(h.rooms[c.room])))

		case c := <-h.unregister:
			clients, ok := h.rooms[c.room]
			if !ok {
				continue
			}
			if _, ok := clients[c]; !ok {
				continue
			}
			delete(clients, c)
			close(c.send)
			h.recorder.AddViewers(-1)
			if len(clients) == 0 {
				delete(h.rooms, c.room)
				h.recorder.SetRooms(len(h.rooms))
			}

		case d := <-h.deliver:
			clients, ok := h.rooms[d.room]
			if !ok {
				continue
			}
			for c := range clients {
				select {
				case c.send <- d.msg:
				default:
					// A viewer that cannot keep up is dropped; it reconnects
					// and receives a fresh snapshot.
					delete(clients, c)
					close(c.send)
					h.recorder.AddViewers(-1)
					h.recorder.RecordBroadcast(d.event, metrics.OutcomeDropped)
				}
			}
			if len(clients) == 0 {
				delete(h.rooms, d.room)
				h.recorder.SetRooms(len(h.rooms))
			}
		}
	}
}

// Register adds a client to its room. It returns false once the hub stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast implements services.Broadcaster. It never blocks on viewers and
// never reports failures to the caller.
func (h *Hub) Broadcast(room, event string, payload interface{}) {
	msg, err := NewEnvelope(room, event, payload, h.now())
	if err != nil {
		h.logger.Error("failed to encode broadcast", slog.String("room", room), slog.String("event", event), slog.Any("error", err))
		h.recorder.RecordBroadcast(event, metrics.OutcomeError)
		return
	}

	if h.publisher != nil && h.publisher.Publish(msg) {
		h.recorder.RecordBroadcast(event, metrics.OutcomeRelayed)
		return
	}
	h.DeliverLocal(room, event, msg)
}

// DeliverLocal queues an encoded envelope for this instance's viewers.
func (h *Hub) DeliverLocal(room, event string, msg []byte) {
	select {
	case h.deliver <- delivery{room: room, event: event, msg: msg}:
		h.recorder.RecordBroadcast(event, metrics.OutcomeOK)
	case <-h.done:
	default:
		h.logger.Warn("broadcast queue full, dropping event", slog.String("room", room), slog.String("event", event))
		h.recorder.RecordBroadcast(event, metrics.OutcomeDropped)
	}
}

// ReadPump discards inbound messages and unregisters the client when the
// connection closes.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("viewer connection closed", slog.String("room", c.room), slog.Any("error", err))
			}
			return
		}
	}
}

// WritePump writes queued frames, one per websocket message, and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
