// Package bridge exposes the console tools over a websocket so that
// external controllers can drive the console without speaking telnet.
//
// Clients send one JSON request per message:
//
//	{"id": "1", "tool": "execute_sequence", "args": {"sequence_id": 1, "action": "go"}}
//
// and receive one reply per request, in request order for that client:
//
//	{"id": "1", "ok": true, "result": {"message": "Executed Sequence 1", ...}}
//
// Session state changes are pushed to every client as
// {"event": "state", "from": "Ready", "to": "Reconnecting"}.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/chienchuanw/gma2-mcp/internal/tools"
	"github.com/chienchuanw/gma2-mcp/ma2protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	maxMessage    = 64 << 10
	sendBuffer    = 64
)

// Caller runs named tools. *tools.Dispatcher satisfies it.
type Caller interface {
	Call(ctx context.Context, name string, args map[string]any) (tools.Result, error)
	Tools() []tools.Tool
}

// Console reports session identity and state. *ma2protocol.Session
// satisfies it.
type Console interface {
	ID() string
	State() ma2protocol.State
}

// Request is a tool invocation sent by a client.
type Request struct {
	ID   string         `json:"id"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Reply answers one Request.
type Reply struct {
	ID        string        `json:"id"`
	OK        bool          `json:"ok"`
	Result    *tools.Result `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	Retryable bool          `json:"retryable,omitempty"`
}

// Event is an unsolicited notification.
type Event struct {
	Event string `json:"event"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
}

// Health is the /healthz body.
type Health struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Clients   int    `json:"clients"`
}

// Server serves the websocket and health endpoints.
type Server struct {
	tools    Caller
	console  Console
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	server *Server
}

// New creates a bridge server. A nil logger discards.
func New(caller Caller, console Console, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		tools:   caller,
		console: console,
		log:     logger,
		upgrader: websocket.Upgrader{
			// The bridge is meant for local controllers and binds to
			// loopback by default.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /tools", s.handleTools)
	return mux
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("bridge listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeClients()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// NotifyState pushes a state change to every client. It has the shape of
// ma2protocol.StateHandler.
func (s *Server) NotifyState(from, to ma2protocol.State) {
	data, err := json.Marshal(Event{Event: "state", From: from.String(), To: to.String()})
	if err != nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		// Slow clients miss events rather than stall the session.
		select {
		case c.send <- data:
		default:
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	n := len(s.clients)
	s.mu.RUnlock()

	state := s.console.State()
	status := http.StatusOK
	if state != ma2protocol.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, Health{SessionID: s.console.ID(), State: state.String(), Clients: n})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tools.Tools())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		server: s,
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("bridge client connected", "remote", conn.RemoteAddr().String())

	go c.writePump()
	go c.readPump()
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
}

func (s *Server) closeClients() {
	s.mu.Lock()
	list := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		list = append(list, c)
	}
	s.mu.Unlock()
	for _, c := range list {
		c.close()
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// readPump handles requests one at a time, so a client's replies keep
// its request order.
func (c *client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.server.removeClient(c)
	}()

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.log.Warn("websocket read failed", "error", err)
			}
			return
		}

		reply := c.server.handle(ctx, message)
		data, err := json.Marshal(reply)
		if err != nil {
			c.server.log.Error("encode reply", "error", err)
			continue
		}
		select {
		case c.send <- data:
		case <-c.done:
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handle decodes and runs one request. Numbers are kept as json.Number so
// integer arguments are not rounded through float64.
func (s *Server) handle(ctx context.Context, message []byte) Reply {
	var req Request
	dec := json.NewDecoder(bytes.NewReader(message))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return Reply{ID: uuid.NewString(), Error: fmt.Sprintf("invalid request: %v", err)}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Tool == "" {
		return Reply{ID: req.ID, Error: "invalid request: tool is required"}
	}

	logger := s.log.With("request_id", req.ID, "tool", req.Tool)
	res, err := s.tools.Call(ctx, req.Tool, req.Args)
	if err != nil {
		logger.Warn("tool failed", "error", err)
		reply := Reply{ID: req.ID, Error: err.Error(), Retryable: ma2protocol.Retryable(err)}
		if len(res.Commands) > 0 {
			reply.Result = &res
		}
		return reply
	}
	logger.Debug("tool done", "commands", len(res.Commands))
	return Reply{ID: req.ID, OK: true, Result: &res}
}
