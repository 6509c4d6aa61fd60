package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dm/fleetmon-go/internal/engine"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	clientBuffer = 8
	maxReadBytes = 512
)

type streamClient struct {
	send chan StreamMessage
	done chan struct{}
	once sync.Once
}

func newStreamClient() *streamClient {
	return &streamClient{
		send: make(chan StreamMessage, clientBuffer),
		done: make(chan struct{}),
	}
}

func (c *streamClient) close() {
	c.once.Do(func() { close(c.done) })
}

// hub fans cycle updates out to websocket clients. A client whose buffer is
// full is disconnected rather than allowed to stall the scheduler.
type hub struct {
	logger  zerolog.Logger
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool
}

func newHub(logger zerolog.Logger) *hub {
	return &hub{
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
	}
}

func (h *hub) add(c *streamClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *hub) remove(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast is registered with Source.Subscribe and runs on the cycle
// goroutine; it never blocks.
func (h *hub) broadcast(u engine.Update) {
	msg := toStreamMessage(uuid.NewString(), u)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			c.close()
			h.logger.Warn().Msg("Stream client too slow; disconnecting")
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.close()
	}
	h.clients = map[*streamClient]struct{}{}
}

// handleStream upgrades to a websocket, sends the current aggregate as a
// "snapshot" message, then one "cycle" message per completed cycle.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if s.origins != nil {
		upgrader.CheckOrigin = s.checkOrigin
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Str("origin", r.Header.Get("Origin")).
			Msg("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close()

	c := newStreamClient()
	if !s.hub.add(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		return
	}
	defer s.hub.remove(c)

	s.logger.Debug().Str("remote_addr", r.RemoteAddr).Msg("Stream client connected")

	snap := s.source.Snapshot()
	initial := toStreamMessage(uuid.NewString(), engine.Update{
		Snapshot:  snap,
		Aggregate: engine.CalcAggregate(snap),
		Completed: s.now(),
	})
	initial.Type = "snapshot"
	if err := writeMessage(conn, initial); err != nil {
		return
	}

	go readPump(conn, c)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			s.logger.Debug().Str("remote_addr", r.RemoteAddr).Msg("Stream client disconnected")
			return
		case msg := <-c.send:
			if err := writeMessage(conn, msg); err != nil {
				s.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and closes c when the peer goes away.
func readPump(conn *websocket.Conn, c *streamClient) {
	defer c.close()

	conn.SetReadLimit(maxReadBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeMessage(conn *websocket.Conn, msg StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	_, ok := s.origins[origin]
	return ok
}
