package transport

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"
)

// echoServer starts a server on loopback that echoes every frame back.
func echoServer(t *testing.T) *Server {
	t.Helper()

	server := NewServer(ServerConfig{
		Address: "127.0.0.1:0",
		OnMessage: func(conn *ServerConn, msg []byte) {
			_ = conn.Send(msg)
		},
	})
	if err := server.Start(); err != nil {
		t.Fatalf("server start: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

// collectHandler records messages and the close error.
type collectHandler struct {
	mu       sync.Mutex
	messages [][]byte
	closed   chan error
}

func newCollectHandler() *collectHandler {
	return &collectHandler{closed: make(chan error, 1)}
}

func (h *collectHandler) OnMessage(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	h.messages = append(h.messages, buf)
}

func (h *collectHandler) OnClosed(err error) {
	h.closed <- err
}

func (h *collectHandler) Messages() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]byte, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *collectHandler) waitForMessages(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(h.Messages()) >= n {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return false
}

func TestConnEcho(t *testing.T) {
	server := echoServer(t)
	handler := newCollectHandler()

	conn, err := Dial(context.Background(), server.Addr().String(), DefaultConnConfig(), handler)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if conn.ID() == "" {
		t.Error("connection has no ID")
	}

	frames := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, frame := range frames {
		if err := conn.Send(frame); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	if !handler.waitForMessages(len(frames), 2*time.Second) {
		t.Fatalf("echoed messages = %d, want %d", len(handler.Messages()), len(frames))
	}
	for i, want := range frames {
		if got := handler.Messages()[i]; !bytes.Equal(got, want) {
			t.Errorf("message #%d = %q, want %q", i, got, want)
		}
	}
}

func TestConnLocalCloseReportsNil(t *testing.T) {
	server := echoServer(t)
	handler := newCollectHandler()

	conn, err := Dial(context.Background(), server.Addr().String(), DefaultConnConfig(), handler)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case closeErr := <-handler.closed:
		if closeErr != nil {
			t.Errorf("OnClosed(%v) after local close, want nil", closeErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnClosed never called")
	}

	if err := conn.Send([]byte("late")); err == nil {
		t.Error("Send after Close succeeded")
	}
}

func TestConnPeerDropReportsError(t *testing.T) {
	server := echoServer(t)
	handler := newCollectHandler()

	conn, err := Dial(context.Background(), server.Addr().String(), DefaultConnConfig(), handler)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := server.Stop(); err != nil {
		t.Fatalf("server stop: %v", err)
	}

	select {
	case closeErr := <-handler.closed:
		if closeErr == nil {
			t.Error("OnClosed(nil) after peer drop, want error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnClosed never called after peer drop")
	}
}

func TestDialRefused(t *testing.T) {
	handler := newCollectHandler()

	// A port that nothing listens on.
	_, err := Dial(context.Background(), "127.0.0.1:1", DefaultConnConfig(), handler)
	if err == nil {
		t.Fatal("Dial to a closed port succeeded")
	}
}

func TestServerTracksConnections(t *testing.T) {
	connected := make(chan *ServerConn, 1)
	disconnected := make(chan *ServerConn, 1)

	server := NewServer(ServerConfig{
		Address:      "127.0.0.1:0",
		OnConnect:    func(c *ServerConn) { connected <- c },
		OnDisconnect: func(c *ServerConn) { disconnected <- c },
	})
	if err := server.Start(); err != nil {
		t.Fatalf("server start: %v", err)
	}
	defer server.Stop()

	conn, err := Dial(context.Background(), server.Addr().String(), DefaultConnConfig(), newCollectHandler())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	select {
	case sc := <-connected:
		if sc.ID() == "" {
			t.Error("server connection has no ID")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnConnect never called")
	}
	if server.ConnectionCount() != 1 {
		t.Errorf("ConnectionCount() = %d, want 1", server.ConnectionCount())
	}

	conn.Close()

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect never called")
	}
}
