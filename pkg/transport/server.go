package transport

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hapticlink/haptic-go/pkg/log"
)

// ServerConfig configures an accepting endpoint. The real device-control
// service is an external program; this server exists for the simulator and
// for tests.
type ServerConfig struct {
	// Address to listen on (e.g., ":7373" or "127.0.0.1:7373").
	Address string

	// TLSConfig enables TLS when non-nil.
	TLSConfig *tls.Config

	// MaxMessageSize is the maximum frame payload size (default: 64KB).
	MaxMessageSize uint32

	// Logger for transport events (optional).
	Logger log.Logger

	// OnConnect fires after a connection is accepted and registered.
	OnConnect func(conn *ServerConn)

	// OnDisconnect fires after a connection leaves the active set.
	OnDisconnect func(conn *ServerConn)

	// OnMessage fires once per received frame.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError fires on accept or read errors. A nil conn means the
	// error came from the listener.
	OnError func(conn *ServerConn, err error)
}

// Server accepts framed connections from haptic bus clients.
type Server struct {
	config   ServerConfig
	listener net.Listener

	mu     sync.RWMutex
	active map[*ServerConn]struct{}

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewServer creates a server. Call Start to begin accepting.
func NewServer(config ServerConfig) *Server {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		config: config,
		active: make(map[*ServerConn]struct{}),
	}
}

// Start begins listening and accepting connections.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("server already running")
	}

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("failed to listen: %w", err)
	}
	if s.config.TLSConfig != nil {
		ln = tls.NewListener(ln, s.config.TLSConfig)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Stop closes the listener and every active connection, then waits for
// the per-connection goroutines to drain.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.listener != nil {
		s.listener.Close()
	}
	for _, conn := range s.snapshot() {
		conn.Close()
	}

	s.wg.Wait()
	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

func (s *Server) snapshot() []*ServerConn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conns := make([]*ServerConn, 0, len(s.active))
	for conn := range s.active {
		conns = append(conns, conn)
	}
	return conns
}

func (s *Server) track(conn *ServerConn) {
	s.mu.Lock()
	s.active[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn *ServerConn) {
	s.mu.Lock()
	delete(s.active, conn)
	s.mu.Unlock()
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		netConn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.running.Load() {
				return
			}
			if s.config.OnError != nil {
				s.config.OnError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}

		s.wg.Add(1)
		go s.serveConn(netConn)
	}
}

// serveConn owns one accepted connection from registration to teardown.
func (s *Server) serveConn(netConn net.Conn) {
	defer s.wg.Done()

	connID := uuid.New().String()
	framer := NewFramerWithMaxSize(netConn, s.config.MaxMessageSize)
	if s.config.Logger != nil {
		framer.SetLogger(s.config.Logger, connID)
	}

	conn := &ServerConn{
		conn:       netConn,
		framer:     framer,
		srv:        s,
		remoteAddr: netConn.RemoteAddr(),
		connID:     connID,
		closeCh:    make(chan struct{}),
	}

	s.logState(conn, "", "CONNECTED")
	s.track(conn)
	if s.config.OnConnect != nil {
		s.config.OnConnect(conn)
	}

	conn.readLoop()

	s.untrack(conn)
	s.logState(conn, "CONNECTED", "DISCONNECTED")
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(conn)
	}
}

func (s *Server) logState(conn *ServerConn, oldState, newState string) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: conn.connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   conn.remoteAddr.String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.EntityConnection,
			OldState: oldState,
			NewState: newState,
		},
	})
}

// ServerConn is one accepted client connection.
type ServerConn struct {
	conn       net.Conn
	framer     *Framer
	srv        *Server
	remoteAddr net.Addr
	connID     string

	closeOnce sync.Once
	closeCh   chan struct{}
}

// ID returns the server-generated connection ID (UUID).
func (c *ServerConn) ID() string {
	return c.connID
}

// RemoteAddr returns the peer address.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// Send writes one frame to the client. Thread-safe.
func (c *ServerConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Close closes the connection. Safe to call multiple times.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

// SetReadDeadline sets the read deadline on the underlying connection.
func (c *ServerConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// readLoop reads frames until the connection fails or is closed.
func (c *ServerConn) readLoop() {
	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			select {
			case <-c.closeCh:
			default:
				// A plain EOF is the client hanging up, not a failure
				if err != io.EOF && c.srv.config.OnError != nil {
					c.srv.config.OnError(c, err)
				}
			}
			c.Close()
			return
		}
		if c.srv.config.OnMessage != nil {
			c.srv.config.OnMessage(c, data)
		}
	}
}
