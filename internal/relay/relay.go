// Package relay bridges GUI telemetry between the running user application
// and a single visualization peer. It tracks at most one current peer: a new
// connection replaces (and closes) the previous one, and outbound sends with
// no peer attached are silently dropped.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait       = 5 * time.Second
	shutdownTimeout = 3 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The peer is a local visualization template, not a browser origin we
	// need to vet.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server is the telemetry relay listener.
type Server struct {
	addr      string
	onMessage func(payload map[string]any)

	httpSrv *http.Server
	ln      net.Listener

	mu   sync.Mutex
	peer *websocket.Conn
}

// New creates a relay bound to addr (host:port). onMessage is invoked
// synchronously on the relay's reader goroutine for every decoded inbound
// frame; it must not assume it runs on the dispatcher thread.
func New(addr string, onMessage func(payload map[string]any)) *Server {
	return &Server{addr: addr, onMessage: onMessage}
}

// Start begins accepting connections. It returns once the listener is bound;
// accept and read loops run on their own goroutines.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("relay listen %s: %w", s.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	srv := &http.Server{Handler: mux}
	s.httpSrv = srv
	s.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("relay serve", "err", err)
		}
	}()

	slog.Info("Telemetry relay listening.", "addr", s.addr)
	return nil
}

// Addr reports the bound listen address, useful when the configured port
// was 0. Empty before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop closes the current peer and shuts the listener down. Stopping a
// relay that never started is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.peer != nil {
		_ = s.peer.Close()
		s.peer = nil
	}
	srv := s.httpSrv
	s.httpSrv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Send delivers data verbatim to the current peer. With no peer attached it
// is a no-op. A failed write drops the peer so later sends do not keep
// hitting a dead connection.
func (s *Server) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peer == nil {
		return nil
	}

	_ = s.peer.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.peer.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = s.peer.Close()
		s.peer = nil
		return fmt.Errorf("relay send: %w", err)
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("relay upgrade failed", "err", err)
		return
	}

	// Most recently accepted connection wins; close the one it replaces so
	// a stale peer cannot linger half-connected.
	s.mu.Lock()
	if s.peer != nil {
		_ = s.peer.Close()
	}
	s.peer = conn
	s.mu.Unlock()

	slog.Info("Telemetry peer connected.", "remote", conn.RemoteAddr())
	s.readLoop(conn)
}

func (s *Server) readLoop(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		// Only clear the field if it still points at this connection; a
		// replacement may already be current.
		if s.peer == conn {
			s.peer = nil
		}
		s.mu.Unlock()
		slog.Info("Telemetry peer disconnected.", "remote", conn.RemoteAddr())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			slog.Warn("relay frame is not a structured payload", "err", err)
			continue
		}
		if s.onMessage != nil {
			s.onMessage(payload)
		}
	}
}
