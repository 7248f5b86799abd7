// Package comms is the control transport: a websocket endpoint the operator
// frontend connects to. Inbound frames become Commands on the session's
// queue; outbound messages go to the currently connected client.
package comms

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

	"robolab"
)

const (
	writeWait       = 5 * time.Second
	shutdownTimeout = 3 * time.Second
	// queueDepth bounds inbound commands awaiting dispatch. The frontend is
	// a single interactive client; 64 is generous.
	queueDepth = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 8192,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Consumer accepts operator connections and queues their commands.
type Consumer struct {
	addr     string
	commands chan robolab.Command

	httpSrv *http.Server
	ln      net.Listener

	mu     sync.Mutex
	client *websocket.Conn
}

// New creates a Consumer bound to addr (host:port).
func New(addr string) *Consumer {
	return &Consumer{
		addr:     addr,
		commands: make(chan robolab.Command, queueDepth),
	}
}

// Commands is the inbound command queue the dispatcher consumes.
func (c *Consumer) Commands() <-chan robolab.Command {
	return c.commands
}

// Start binds the listener and begins accepting clients.
func (c *Consumer) Start() error {
	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("transport listen %s: %w", c.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", c.handle)
	srv := &http.Server{Handler: mux}
	c.httpSrv = srv
	c.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("transport serve", "err", err)
		}
	}()

	slog.Info("Command transport listening.", "addr", c.addr)
	return nil
}

// Addr reports the bound listen address. Empty before Start.
func (c *Consumer) Addr() string {
	if c.ln == nil {
		return ""
	}
	return c.ln.Addr().String()
}

// Stop shuts the listener down and closes the current client.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if c.client != nil {
		_ = c.client.Close()
		c.client = nil
	}
	srv := c.httpSrv
	c.httpSrv = nil
	c.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Disconnect drops the current client but keeps listening, so a session
// reset does not require restarting the daemon.
func (c *Consumer) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// Send delivers msg to the current client. Safe to call from any goroutine;
// with no client connected the message is dropped.
func (c *Consumer) Send(msg robolab.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}

	_ = c.client.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.client.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = c.client.Close()
		c.client = nil
		return fmt.Errorf("transport send: %w", err)
	}
	return nil
}

func (c *Consumer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("transport upgrade failed", "err", err)
		return
	}

	c.mu.Lock()
	if c.client != nil {
		_ = c.client.Close()
	}
	c.client = conn
	c.mu.Unlock()

	slog.Info("Control client connected.", "remote", conn.RemoteAddr())
	c.readLoop(conn)
}

func (c *Consumer) readLoop(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
		c.mu.Lock()
		if c.client == conn {
			c.client = nil
		}
		c.mu.Unlock()
		slog.Info("Control client disconnected.", "remote", conn.RemoteAddr())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd robolab.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			slog.Warn("malformed command frame", "err", err)
			_ = c.Send(robolab.Message{Command: "error", Data: map[string]string{"message": "malformed command frame"}})
			continue
		}
		if cmd.Name == "" {
			_ = c.Send(robolab.Message{ID: cmd.ID, Command: "error", Data: map[string]string{"message": "command name missing"}})
			continue
		}

		select {
		case c.commands <- cmd:
		default:
			// Queue full: the dispatcher is wedged on a slow transition.
			// Refusing is better than blocking the read loop.
			slog.Warn("command queue full, rejecting", "command", cmd.Name, "id", cmd.ID)
			_ = c.Send(cmd.ErrorMessage(errors.New("command queue full")))
		}
	}
}
