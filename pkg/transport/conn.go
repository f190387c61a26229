package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hapticlink/haptic-go/pkg/log"
)

// Connection errors.
var (
	ErrConnClosed = errors.New("connection closed")
)

// DefaultConnectTimeout applies when neither the context nor the config
// carries a deadline.
const DefaultConnectTimeout = 10 * time.Second

// ConnConfig configures a client connection.
type ConnConfig struct {
	// TLSConfig enables TLS when non-nil. The device-control service
	// usually runs locally, so plain TCP is the default.
	TLSConfig *tls.Config

	// MaxMessageSize is the maximum frame payload size (default: 64KB).
	MaxMessageSize uint32

	// ConnectTimeout is the dial timeout (default: 10s).
	ConnectTimeout time.Duration

	// Logger for transport events (optional).
	Logger log.Logger
}

// DefaultConnConfig returns the default connection configuration.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		MaxMessageSize: DefaultMaxMessageSize,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// ConnHandler receives connection events.
type ConnHandler interface {
	// OnMessage is called from the read loop for every complete frame.
	OnMessage(data []byte)

	// OnClosed is called once when the read loop ends. err is nil on a
	// locally initiated close, non-nil when the peer dropped the link.
	OnClosed(err error)
}

// Conn is a framed client connection to the device-control service.
type Conn struct {
	config  ConnConfig
	handler ConnHandler

	id         string
	conn       net.Conn
	framer     *Framer
	remoteAddr net.Addr

	closeOnce sync.Once
	closedCh  chan struct{}
	wg        sync.WaitGroup
}

// Dial connects to the service at address and starts the read loop.
func Dial(ctx context.Context, address string, config ConnConfig, handler ConnHandler) (*Conn, error) {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	nc, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	if config.TLSConfig != nil {
		tlsConn := tls.Client(nc, config.TLSConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			nc.Close()
			return nil, fmt.Errorf("TLS handshake failed: %w", err)
		}
		nc = tlsConn
	}

	c := &Conn{
		config:     config,
		handler:    handler,
		id:         uuid.New().String(),
		conn:       nc,
		framer:     NewFramerWithMaxSize(nc, config.MaxMessageSize),
		remoteAddr: nc.RemoteAddr(),
		closedCh:   make(chan struct{}),
	}
	if config.Logger != nil {
		c.framer.SetLogger(config.Logger, c.id)
	}

	c.logState("", "CONNECTED", "")

	c.wg.Add(1)
	go c.readLoop()

	return c, nil
}

// ID returns the locally generated connection ID (UUID).
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// Send writes one frame. Thread-safe.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.closedCh:
		return ErrConnClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Close tears down the connection and waits for the read loop to exit.
// Safe to call multiple times.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closedCh)
		err = c.conn.Close()
		c.wg.Wait()
		c.logState("CONNECTED", "DISCONNECTED", "local close")
	})
	return err
}

// readLoop reads frames until the connection fails or is closed.
func (c *Conn) readLoop() {
	defer c.wg.Done()

	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			select {
			case <-c.closedCh:
				// Local close, not a peer failure
				c.handler.OnClosed(nil)
			default:
				c.logState("CONNECTED", "DISCONNECTED", err.Error())
				c.handler.OnClosed(err)
			}
			return
		}
		c.handler.OnMessage(data)
	}
}

// logState emits a connection state-change event.
func (c *Conn) logState(oldState, newState, reason string) {
	if c.config.Logger == nil {
		return
	}
	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   c.remoteAddr.String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.EntityConnection,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
