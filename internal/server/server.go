package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"JackpotWheel/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 45 * time.Second
	sendBuffer     = 64
	broadcastEvery = time.Second
)

// WheelState is the payload pushed to every websocket client and served on
// /state. One snapshot of everything a frontend needs to draw the wheel.
type WheelState struct {
	Phase     string            `json:"phase"`
	Round     *model.Round      `json:"round,omitempty"`
	Tiles     []model.Tile      `json:"tiles"`
	StopIndex int               `json:"stopIndex"`
	Degen     *model.DegenEntry `json:"degen,omitempty"`
	Snapshot  time.Time         `json:"snapshot"`
}

// StateProvider supplies the current wheel state. Implemented by the
// coordinator.
type StateProvider interface {
	WheelState() WheelState
}

// Submitter places an optimistic entry and returns its pending id. A nil
// submitter disables the endpoint.
type Submitter interface {
	Submit(amount float64) (string, error)
}

// Server exposes the wheel over HTTP: a websocket state stream, small JSON
// endpoints for polling clients and health checks, and entry submission.
type Server struct {
	provider  StateProvider
	submitter Submitter
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// New creates a server around the given state provider and submitter.
func New(provider StateProvider, submitter Submitter) *Server {
	return &Server{
		provider:  provider,
		submitter: submitter,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Run serves until the context is cancelled. The broadcast loop pushes one
// pre-encoded state frame per second to all clients.
func (s *Server) Run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/submit", s.handleSubmit)
	mux.HandleFunc("/healthz", s.handleHealthz)

	srv := &http.Server{Addr: addr, Handler: mux}
	go s.broadcastLoop(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[INFO] http server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(broadcastEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := s.provider.WheelState()
			frame, err := json.Marshal(state)
			if err != nil {
				log.Printf("[ERROR] marshal wheel state: %v", err)
				continue
			}
			s.broadcast(frame)
		}
	}
}

// broadcast fans one encoded frame out to every client. A client that cannot
// keep up gets dropped rather than stalling the loop.
func (s *Server) broadcast(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		select {
		case c.send <- frame:
		default:
			log.Printf("[WARN] client %s too slow, dropping", id)
			close(c.send)
			delete(s.clients, id)
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WARN] websocket upgrade failed: %v", err)
		return
	}
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	s.mu.Lock()
	s.clients[c.id] = c
	n := len(s.clients)
	s.mu.Unlock()
	log.Printf("[INFO] client %s connected (%d total)", c.id, n)

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only consumes pongs and detects disconnects; the stream is one-way.
func (s *Server) readPump(c *client) {
	defer func() {
		c.conn.Close()
		s.remove(c.id)
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WARN] client %s read error: %v", c.id, err)
			}
			return
		}
	}
}

func (s *Server) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[id]; ok {
		close(c.send)
		delete(s.clients, id)
		log.Printf("[INFO] client %s disconnected (%d total)", id, len(s.clients))
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.provider.WheelState()); err != nil {
		log.Printf("[WARN] encode state: %v", err)
	}
}

// handleSubmit places an entry for the configured player account. The tile
// shows on the wheel immediately; the ledger confirms it asynchronously.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(map[string]string{"error": "POST only"})
		return
	}
	if s.submitter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "submission not configured"})
		return
	}
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid body"})
		return
	}
	id, err := s.submitter.Submit(req.Amount)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"pending_id": id})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.clients)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": n,
	})
}
