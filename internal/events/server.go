// Package events provides a real-time WebSocket feed of sync activity.
//
// The server broadcasts sync lifecycle events, push results, and card
// change notifications to connected WebSocket clients, so a household
// dashboard can watch the deck converge without polling the sheet.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// MessageType defines the type of broadcast message
type MessageType string

const (
	// MessageTypeCardUpdate indicates card state changed outside a sync
	MessageTypeCardUpdate MessageType = "card_update"

	// MessageTypeSyncStarted indicates a full sync began
	MessageTypeSyncStarted MessageType = "sync_started"

	// MessageTypeSyncComplete indicates a full sync completed
	MessageTypeSyncComplete MessageType = "sync_complete"

	// MessageTypeSyncFailed indicates a sync or push failed
	MessageTypeSyncFailed MessageType = "sync_failed"

	// MessageTypePushComplete indicates an auto-push completed
	MessageTypePushComplete MessageType = "push_complete"

	// MessageTypeStats indicates updated deck statistics
	MessageTypeStats MessageType = "stats"
)

// Message is the envelope every feed event travels in.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// CardUpdateData describes a card change picked up outside a sync
type CardUpdateData struct {
	Source string `json:"source"` // local_edit, import
}

// SyncStartedData identifies the endpoint a sync is running against
type SyncStartedData struct {
	Endpoint string `json:"endpoint"`
}

// SyncCompleteData contains sync completion information
type SyncCompleteData struct {
	Strategy string        `json:"strategy"`
	Pulled   int           `json:"pulled"`
	Merged   int           `json:"merged"`
	Pushed   int           `json:"pushed"`
	Duration time.Duration `json:"duration"`
}

// SyncFailedData carries the failure message
type SyncFailedData struct {
	Error string `json:"error"`
}

// PushCompleteData contains auto-push completion information
type PushCompleteData struct {
	Rows int `json:"rows"`
}

// StatsData contains deck statistics
type StatsData struct {
	Total      int `json:"total"`
	PlayerOne  int `json:"player_one"`
	PlayerTwo  int `json:"player_two"`
	Shared     int `json:"shared"`
	Unassigned int `json:"unassigned"`
	Trimmed    int `json:"trimmed"`
}

// subscriber is one connected feed client. Each subscriber gets its own
// buffered outbox and writer goroutine, so one slow dashboard can never
// stall a broadcast or another client: when its outbox fills, it is
// dropped instead.
type subscriber struct {
	conn   *websocket.Conn
	outbox chan []byte
}

// Server fans sync events out to WebSocket subscribers and serves the
// small HTTP surface next to the feed.
type Server struct {
	addr     string
	listener net.Listener
	httpSrv  *http.Server

	// status supplies the /status payload; may be nil
	status func() (any, error)

	mu   sync.Mutex
	subs map[*subscriber]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Addr to listen on (default: 127.0.0.1:8377)
	Addr string

	// Status supplies the payload served at /status. May be nil, in
	// which case /status reports connected clients only.
	Status func() (any, error)

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Addr:   "127.0.0.1:8377",
		Logger: log.Default(),
	}
}

// NewServer creates a new events WebSocket server
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	if config.Addr == "" {
		config.Addr = "127.0.0.1:8377"
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:   config.Addr,
		status: config.Status,
		subs:   make(map[*subscriber]struct{}),
		ctx:    ctx,
		cancel: cancel,
		logger: config.Logger,
	}
}

// Start binds the listener and begins serving. It returns once the
// server is accepting; serving continues in the background until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/", s.handleRoot)

	s.httpSrv = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Events server listening on %s", ln.Addr())
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop disconnects every subscriber and shuts the HTTP server down.
func (s *Server) Stop() error {
	s.logger.Println("Stopping events server")
	s.cancel()

	s.mu.Lock()
	leaving := make([]*subscriber, 0, len(s.subs))
	for sub := range s.subs {
		close(sub.outbox)
		delete(s.subs, sub)
		leaving = append(leaving, sub)
	}
	s.mu.Unlock()
	for _, sub := range leaving {
		_ = sub.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()
	s.logger.Println("Events server stopped")
	return nil
}

// Broadcast fans msg out to every subscriber. Subscribers whose outbox
// is full are disconnected rather than waited on.
func (s *Server) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Printf("Failed to marshal %s message: %v", msg.Type, err)
		return
	}

	var stalled []*subscriber
	s.mu.Lock()
	for sub := range s.subs {
		select {
		case sub.outbox <- data:
		default:
			stalled = append(stalled, sub)
		}
	}
	for _, sub := range stalled {
		close(sub.outbox)
		delete(s.subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range stalled {
		s.logger.Println("Dropping stalled feed client")
		_ = sub.conn.Close(websocket.StatusPolicyViolation, "too slow")
	}
}

// handleWebSocket upgrades the connection and registers a subscriber.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // household LAN, any origin
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	sub := &subscriber{conn: conn, outbox: make(chan []byte, 64)}

	// The welcome frame doubles as a protocol hint: the first thing a
	// dashboard sees is a stats envelope, even before any sync runs.
	welcome, _ := json.Marshal(Message{Type: MessageTypeStats, Timestamp: time.Now()})
	sub.outbox <- welcome

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	total := len(s.subs)
	s.mu.Unlock()
	s.logger.Printf("Feed client connected (total: %d)", total)

	s.wg.Add(2)
	go s.writeLoop(sub)
	go s.readLoop(sub)
}

// writeLoop drains one subscriber's outbox onto its connection.
func (s *Server) writeLoop(sub *subscriber) {
	defer s.wg.Done()

	for data := range sub.outbox {
		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		err := sub.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			s.unsubscribe(sub, true)
			return
		}
	}
}

// readLoop discards inbound frames; the feed is one-way. Its real job
// is noticing the peer going away.
func (s *Server) readLoop(sub *subscriber) {
	defer s.wg.Done()

	for {
		if _, _, err := sub.conn.Read(s.ctx); err != nil {
			s.unsubscribe(sub, false)
			return
		}
	}
}

// unsubscribe removes a subscriber once, whichever loop loses its
// connection first.
func (s *Server) unsubscribe(sub *subscriber, drain bool) {
	s.mu.Lock()
	_, live := s.subs[sub]
	if live {
		delete(s.subs, sub)
		close(sub.outbox)
	}
	total := len(s.subs)
	s.mu.Unlock()

	if !live {
		return
	}
	if drain {
		for range sub.outbox {
		}
	}
	_ = sub.conn.Close(websocket.StatusNormalClosure, "")
	s.logger.Printf("Feed client disconnected (total: %d)", total)
}

// handleHealth reports liveness and the subscriber count.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

// handleStatus returns the sync session and deck counts
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.status == nil {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"clients": s.ClientCount(),
		})
		return
	}

	payload, err := s.status()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// handleRoot returns basic server information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Fair Play Sync Monitor</title>
</head>
<body>
    <h1>Fair Play Sync Monitor</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Health check: <a href="/health">/health</a></p>
    <p>Session status: <a href="/status">/status</a></p>
    <p>Connect a WebSocket client to receive real-time sync events.</p>
</body>
</html>`, r.Host)
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected subscribers.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
