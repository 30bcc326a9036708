package fanout

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mfortuna/raceodds/internal/events"
	"github.com/mfortuna/raceodds/internal/telemetry"
)

const (
	clientSendBuf = 256
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type oddsClient struct {
	session string // empty means every session
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
}

// Server fans out race events to connected WebSocket viewers.
type Server struct {
	mu      sync.Mutex
	clients map[*oddsClient]struct{}
}

func NewServer(bus *events.Bus) *Server {
	s := &Server{
		clients: make(map[*oddsClient]struct{}),
	}
	bus.Subscribe(events.EventScoreUpdate, s.forward)
	bus.Subscribe(events.EventOddsUpdate, s.forward)
	bus.Subscribe(events.EventRaceFinish, s.forward)
	return s
}

// forward is called on the publisher's goroutine. It serializes the
// event once and enqueues it to matching clients' send channels,
// non-blocking: a viewer that cannot keep up loses messages, the
// tracker never waits.
func (s *Server) forward(evt events.Event) error {
	data, err := MarshalEvent(evt)
	if err != nil {
		telemetry.Warnf("fanout: marshal error: %v", err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		if c.session != "" && c.session != evt.SessionID {
			continue
		}
		select {
		case c.send <- data:
			telemetry.Metrics.FanoutBroadcasts.Inc()
		default:
			telemetry.Metrics.SlowClientDrops.Inc()
			telemetry.Warnf("fanout: dropping message for slow client session=%s", clientLabel(c))
		}
	}
	return nil
}

// HandleWS is the HTTP handler for WebSocket upgrade requests.
// Viewers connect bare for the full stream or with ?session=<id> to
// follow one race.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		telemetry.Warnf("fanout: upgrade failed: %v", err)
		return
	}

	c := &oddsClient{
		session: r.URL.Query().Get("session"),
		conn:    conn,
		send:    make(chan []byte, clientSendBuf),
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	telemetry.Metrics.FanoutClients.Set(int64(len(s.clients)))
	s.mu.Unlock()

	telemetry.Plainf("fanout: client connected [%s]", clientLabel(c))

	go s.writePump(c)
	go s.readPump(c)
}

// writePump drains the client's send channel and writes to the WS
// connection. It owns the client lifecycle: on exit it removes the
// client from the map (so forward never sends to a stale channel) and
// closes the connection.
func (s *Server) writePump(c *oddsClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.removeClient(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				telemetry.Warnf("fanout: write error session=%s: %v", clientLabel(c), err)
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection alive by reading pongs / close frames.
// No upstream messages are expected from viewers. On exit it signals
// writePump via c.done (never closes c.send).
func (s *Server) readPump(c *oddsClient) {
	defer close(c.done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
	}
}

func (s *Server) removeClient(c *oddsClient) {
	s.mu.Lock()
	delete(s.clients, c)
	telemetry.Metrics.FanoutClients.Set(int64(len(s.clients)))
	s.mu.Unlock()
	telemetry.Plainf("fanout: client disconnected [%s]", clientLabel(c))
}

// ClientCount reports connected viewers.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func clientLabel(c *oddsClient) string {
	if c.session == "" {
		return "all"
	}
	return c.session
}

// ListenAndServe starts the fanout WebSocket server on addr.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)

	telemetry.Plainf("fanout: server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
