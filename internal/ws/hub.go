package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/statuspulse/statuspulse/internal/api"
	"github.com/statuspulse/statuspulse/internal/engine"
)

const (
	// writeWait bounds a single frame write to a session.
	writeWait = 10 * time.Second

	// pongTimeout is how long a session may stay silent before it is
	// considered dead. pingInterval must stay below it.
	pongTimeout  = 60 * time.Second
	pingInterval = (pongTimeout * 9) / 10

	// outDepth is the per-session outgoing buffer. A session that falls
	// this far behind is disconnected rather than allowed to stall the
	// broadcast path.
	outDepth = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin policy is left to the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the envelope for everything the hub sends. Event is either
// "snapshot" (full service state) or "transition" (one detector event).
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// session is one connected observer.
type session struct {
	conn *websocket.Conn
	out  chan []byte
}

// Hub streams engine state to WebSocket observers: a full snapshot every
// interval plus transition events the moment they are emitted. The observer
// count doubles as the visibility signal for the poll scheduler.
type Hub struct {
	engine   *engine.Engine
	interval time.Duration

	// OnObserverChange, when set, receives the session count after every
	// connect and disconnect. Assign it before serving traffic.
	OnObserverChange func(count int)

	mu       sync.RWMutex
	sessions map[*session]struct{}
}

// New creates a Hub reading from eng, snapshotting every interval.
func New(eng *engine.Engine, interval time.Duration) *Hub {
	return &Hub{
		engine:   eng,
		interval: interval,
		sessions: make(map[*session]struct{}),
	}
}

// Run drives the broadcast loop until ctx is cancelled, then disconnects
// every session. Transition events are relayed as they arrive; snapshots go
// out on the interval regardless.
func (h *Hub) Run(ctx context.Context) {
	sub := h.engine.Subscribe()
	defer sub.Close()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.detachAll()
			return
		case <-ticker.C:
			h.fanout(Message{Event: "snapshot", Data: api.BuildSnapshot(h.engine)})
		case ev := <-sub.C:
			h.fanout(Message{Event: "transition", Data: ev})
		}
	}
}

// ServeHTTP upgrades the request and serves the session until it
// disconnects. A fresh snapshot is queued before anything else so the
// observer never starts blank.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade failures have already been answered on w.
		return
	}

	s := &session{conn: conn, out: make(chan []byte, outDepth)}

	// Queue the initial snapshot before the session is visible to anyone
	// else; nothing can close out yet, and the buffer is empty.
	if payload, err := json.Marshal(Message{Event: "snapshot", Data: api.BuildSnapshot(h.engine)}); err == nil {
		s.out <- payload
	}

	h.attach(s)
	defer h.detach(s)

	go s.writeLoop()
	s.readLoop()
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) attach(s *session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	n := len(h.sessions)
	h.mu.Unlock()

	slog.Debug("ws: observer connected", "observers", n)
	if h.OnObserverChange != nil {
		h.OnObserverChange(n)
	}
}

func (h *Hub) detach(s *session) {
	h.mu.Lock()
	_, present := h.sessions[s]
	if present {
		delete(h.sessions, s)
		close(s.out)
	}
	n := len(h.sessions)
	h.mu.Unlock()

	if !present {
		return
	}
	slog.Debug("ws: observer disconnected", "observers", n)
	if h.OnObserverChange != nil {
		h.OnObserverChange(n)
	}
}

func (h *Hub) detachAll() {
	h.mu.Lock()
	for s := range h.sessions {
		close(s.out)
		delete(h.sessions, s)
	}
	h.mu.Unlock()
}

// fanout marshals msg once and queues it to every session. Sessions whose
// buffer is full are detached so one slow reader cannot hold up the rest.
//
// The sends happen under the read lock: detach closes out under the write
// lock, so a session still in the map cannot have its channel closed out
// from under the send. Slow sessions are detached after the lock is
// released.
func (h *Hub) fanout(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Error("ws: marshal broadcast", "err", err)
		return
	}

	var stalled []*session
	h.mu.RLock()
	for s := range h.sessions {
		select {
		case s.out <- payload:
		default:
			stalled = append(stalled, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range stalled {
		h.detach(s)
	}
}

// writeLoop forwards queued payloads to the connection and keeps it alive
// with pings. One goroutine per session; it owns all writes.
func (s *session) writeLoop() {
	pings := time.NewTicker(pingInterval)
	defer func() {
		pings.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, open := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				s.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-pings.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop consumes control frames (pong, close) and returns when the peer
// goes away. Observers never send application data; anything readable is
// discarded.
func (s *session) readLoop() {
	defer s.conn.Close()
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
