package comms

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"robolab"
)

func startTestConsumer(t *testing.T) *Consumer {
	t.Helper()
	c := New("127.0.0.1:0")
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = c.Stop() })
	return c
}

func dialTestConsumer(t *testing.T, c *Consumer) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+c.Addr(), nil)
	if err != nil {
		t.Fatalf("dial transport: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClient(t *testing.T, c *Consumer) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		attached := c.client != nil
		c.mu.Unlock()
		if attached {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no client attached within deadline")
}

func TestCommandsQueued(t *testing.T) {
	c := startTestConsumer(t)
	conn := dialTestConsumer(t, c)

	frame := `{"id": "c1", "command": "connect", "data": {"k": "v"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case cmd := <-c.Commands():
		if cmd.ID != "c1" || cmd.Name != "connect" {
			t.Fatalf("cmd = %+v", cmd)
		}
		var data map[string]string
		if err := json.Unmarshal(cmd.Data, &data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if data["k"] != "v" {
			t.Fatalf("data = %v", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command never queued")
	}
}

func TestMalformedFrameRejected(t *testing.T) {
	c := startTestConsumer(t)
	conn := dialTestConsumer(t, c)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{broken")); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply robolab.Message
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read error reply: %v", err)
	}
	if reply.Command != "error" {
		t.Fatalf("reply = %+v", reply)
	}

	select {
	case cmd := <-c.Commands():
		t.Fatalf("malformed frame queued as %+v", cmd)
	default:
	}
}

func TestNamelessCommandRejected(t *testing.T) {
	c := startTestConsumer(t)
	conn := dialTestConsumer(t, c)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"id": "c9"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply robolab.Message
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read error reply: %v", err)
	}
	if reply.Command != "error" || reply.ID != "c9" {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestSendReachesClient(t *testing.T) {
	c := startTestConsumer(t)
	conn := dialTestConsumer(t, c)
	waitForClient(t, c)

	msg := robolab.Message{ID: "c1", Command: "ack", Data: map[string]string{"state": "connected"}}
	if err := c.Send(msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got robolab.Message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.ID != "c1" || got.Command != "ack" {
		t.Fatalf("got = %+v", got)
	}
}

func TestSendWithoutClient(t *testing.T) {
	c := startTestConsumer(t)
	if err := c.Send(robolab.Message{Command: "update"}); err != nil {
		t.Fatalf("Send with no client: %v", err)
	}
}

func TestDisconnectKeepsListening(t *testing.T) {
	c := startTestConsumer(t)
	first := dialTestConsumer(t, c)
	waitForClient(t, c)

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatal("disconnected client still readable")
	}

	// A new client can attach to the same listener.
	second := dialTestConsumer(t, c)
	if err := second.WriteMessage(websocket.TextMessage, []byte(`{"command": "connect"}`)); err != nil {
		t.Fatalf("second client write: %v", err)
	}
	select {
	case cmd := <-c.Commands():
		if cmd.Name != "connect" {
			t.Fatalf("cmd = %+v", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command from second client never queued")
	}
}
