// Package monitor serves live station status over HTTP and WebSocket so an
// operator UI can watch calibration states and stage positions during a
// measurement run.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"mover-go/pkg/log"
)

// StageStatus is the reported state of one stage.
type StageStatus struct {
	ID          string    `json:"id"`
	State       string    `json:"state"`
	Orientation string    `json:"orientation"`
	Port        string    `json:"port"`
	Pairings    int       `json:"pairings"`
	ChipX       *float64  `json:"chip_x,omitempty"`
	ChipY       *float64  `json:"chip_y,omitempty"`
	ChipZ       *float64  `json:"chip_z,omitempty"`
}

// StationStatus is one status snapshot of the whole station.
type StationStatus struct {
	Time   time.Time     `json:"time"`
	State  string        `json:"state"`
	ChipID string        `json:"chip_id,omitempty"`
	Stages []StageStatus `json:"stages"`
}

// Provider supplies status snapshots. Snapshots must be safe to take while
// moves are in flight.
type Provider interface {
	Snapshot() StationStatus
}

// Server pushes status snapshots to WebSocket clients at a fixed interval
// and answers one-shot GET /status queries.
type Server struct {
	provider Provider
	addr     string
	interval time.Duration
	logger   *log.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader

	clientMu sync.Mutex
	clients  map[int64]*websocket.Conn
	nextID   int64

	running atomic.Bool
}

// NewServer creates a monitor server listening on addr.
func NewServer(provider Provider, addr string, interval time.Duration) *Server {
	return &Server{
		provider: provider,
		addr:     addr,
		interval: interval,
		logger:   log.GetLogger("monitor"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[int64]*websocket.Conn),
	}
}

// Start runs the server until Stop is called. It blocks.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}
	s.running.Store(true)
	s.logger.Info("monitor listening on %s", s.addr)

	go s.broadcastLoop()

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down and closes all WebSocket clients.
func (s *Server) Stop() error {
	s.running.Store(false)

	s.clientMu.Lock()
	for _, conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[int64]*websocket.Conn)
	s.clientMu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.provider.Snapshot()); err != nil {
		s.logger.Error("encoding status failed: %v", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed: %v", err)
		return
	}

	s.clientMu.Lock()
	s.nextID++
	id := s.nextID
	s.clients[id] = conn
	s.clientMu.Unlock()
	s.logger.Debug("websocket client %d connected from %s", id, r.RemoteAddr)

	// Drain incoming messages; the stream is push-only.
	go func() {
		defer s.dropClient(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send an immediate snapshot so the client does not wait a full
	// interval for its first update.
	s.send(id, conn, s.provider.Snapshot())
}

func (s *Server) dropClient(id int64) {
	s.clientMu.Lock()
	if conn, ok := s.clients[id]; ok {
		conn.Close()
		delete(s.clients, id)
	}
	s.clientMu.Unlock()
}

func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for range ticker.C {
		if !s.running.Load() {
			return
		}

		s.clientMu.Lock()
		if len(s.clients) == 0 {
			s.clientMu.Unlock()
			continue
		}
		conns := make(map[int64]*websocket.Conn, len(s.clients))
		for id, conn := range s.clients {
			conns[id] = conn
		}
		s.clientMu.Unlock()

		status := s.provider.Snapshot()
		for id, conn := range conns {
			s.send(id, conn, status)
		}
	}
}

func (s *Server) send(id int64, conn *websocket.Conn, status StationStatus) {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(status); err != nil {
		s.logger.Debug("websocket client %d dropped: %v", id, err)
		s.dropClient(id)
	}
}
