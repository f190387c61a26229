package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hapticlink/haptic-go/pkg/actuator"
	"github.com/hapticlink/haptic-go/pkg/log"
	"github.com/hapticlink/haptic-go/pkg/transport"
	"github.com/hapticlink/haptic-go/pkg/wire"
)

// Bus errors.
var (
	// ErrConnectionFailed indicates the service was unreachable or the
	// handshake failed. Fatal: no session should be built on this bus.
	ErrConnectionFailed = errors.New("connection to device-control service failed")

	// ErrBusClosed indicates the bus has been disconnected.
	ErrBusClosed = errors.New("bus is closed")

	// ErrRequestTimeout indicates the service did not answer in time.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrRejected indicates the service answered with an error message.
	ErrRejected = errors.New("request rejected by service")
)

// DefaultRequestTimeout bounds every request/response exchange.
const DefaultRequestTimeout = 5 * time.Second

// DefaultClientName is sent in Hello when the config leaves it empty.
const DefaultClientName = "haptic-go"

// Config configures a bus connection.
type Config struct {
	// ClientName is announced to the service in Hello.
	ClientName string

	// RequestTimeout bounds each request/response exchange (default: 5s).
	RequestTimeout time.Duration

	// Transport carries dial and framing settings.
	Transport transport.ConnConfig

	// KeepAlive carries ping settings.
	KeepAlive transport.KeepAliveConfig

	// DisableKeepAlive turns off liveness pings (useful in tests).
	DisableKeepAlive bool

	// Logger receives bus and transport events (optional).
	Logger log.Logger
}

// DefaultConfig returns the default bus configuration.
func DefaultConfig() Config {
	return Config{
		ClientName:     DefaultClientName,
		RequestTimeout: DefaultRequestTimeout,
		Transport:      transport.DefaultConnConfig(),
		KeepAlive:      transport.DefaultKeepAliveConfig(),
	}
}

// Bus is an established connection to the device-control service.
type Bus struct {
	config   Config
	logger   log.Logger
	conn     *transport.Conn
	registry *actuator.Registry

	keepAlive *transport.KeepAlive
	kaCancel  context.CancelFunc

	// Pending requests awaiting responses, by message ID.
	nextMsgID uint32
	pending   map[uint32]chan *wire.Message
	pendingMu sync.Mutex

	serverName string
	closed     atomic.Bool

	// Called once when the service drops the link (not on Disconnect).
	onDropped   func(error)
	onDroppedMu sync.Mutex
}

// Connect dials the device-control service and performs the handshake.
// Any failure here wraps ErrConnectionFailed; the bus is unusable and no
// background loops should be started on it.
func Connect(ctx context.Context, address string, config Config) (*Bus, error) {
	if config.ClientName == "" {
		config.ClientName = DefaultClientName
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}
	config.Transport.Logger = config.Logger

	b := &Bus{
		config:   config,
		logger:   config.Logger,
		registry: actuator.NewRegistry(),
		pending:  make(map[uint32]chan *wire.Message),
	}

	conn, err := transport.Dial(ctx, address, config.Transport, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	b.conn = conn

	if err := b.handshake(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	if !config.DisableKeepAlive {
		b.startKeepAlive()
	}

	return b, nil
}

// handshake runs Hello/Welcome and fetches the initial device list.
func (b *Bus) handshake(ctx context.Context) error {
	resp, err := b.request(ctx, wire.TypeHello, &wire.HelloPayload{
		ClientName: b.config.ClientName,
		Version:    wire.ProtocolVersion,
	})
	if err != nil {
		return err
	}
	if resp.Type != wire.TypeWelcome {
		return fmt.Errorf("expected WELCOME, got %s", resp.Type)
	}

	var welcome wire.WelcomePayload
	if err := wire.DecodePayload(resp, &welcome); err != nil {
		return err
	}
	if welcome.Version != wire.ProtocolVersion {
		return fmt.Errorf("protocol version mismatch: server speaks %d, client speaks %d",
			welcome.Version, wire.ProtocolVersion)
	}
	b.serverName = welcome.ServerName

	resp, err = b.request(ctx, wire.TypeRequestDeviceList, nil)
	if err != nil {
		return err
	}
	if resp.Type != wire.TypeDeviceList {
		return fmt.Errorf("expected DEVICE_LIST, got %s", resp.Type)
	}

	var list wire.DeviceListPayload
	if err := wire.DecodePayload(resp, &list); err != nil {
		return err
	}
	for _, desc := range list.Devices {
		b.addDevice(desc)
	}
	return nil
}

// ServerName returns the name the service announced in Welcome.
func (b *Bus) ServerName() string {
	return b.serverName
}

// ConnectionID returns the transport connection ID.
func (b *Bus) ConnectionID() string {
	return b.conn.ID()
}

// Registry returns the live device registry.
func (b *Bus) Registry() *actuator.Registry {
	return b.registry
}

// Devices returns a snapshot of the currently connected devices.
func (b *Bus) Devices() []actuator.Device {
	return b.registry.Devices()
}

// StopAll asks the service to halt every actuator of every device.
func (b *Bus) StopAll(ctx context.Context) error {
	return b.command(ctx, wire.TypeStopAll, nil)
}

// OnDropped sets the callback invoked once if the service drops the link.
// It is not invoked on a local Disconnect.
func (b *Bus) OnDropped(fn func(error)) {
	b.onDroppedMu.Lock()
	defer b.onDroppedMu.Unlock()
	b.onDropped = fn
}

// Disconnect closes the link. Safe to call multiple times; later calls are
// no-ops. The caller is responsible for having stopped all devices first.
func (b *Bus) Disconnect() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.stopKeepAlive()
	err := b.conn.Close()
	b.registry.Clear()
	return err
}

// OnMessage implements transport.ConnHandler.
func (b *Bus) OnMessage(data []byte) {
	msg, err := wire.Decode(data)
	if err != nil {
		b.logError(err, "decoding incoming message")
		return
	}

	switch msg.Type {
	case wire.TypeDeviceAdded:
		var p wire.DeviceAddedPayload
		if err := wire.DecodePayload(msg, &p); err != nil {
			b.logError(err, "decoding DEVICE_ADDED")
			return
		}
		b.addDevice(p.Device)

	case wire.TypeDeviceRemoved:
		var p wire.DeviceRemovedPayload
		if err := wire.DecodePayload(msg, &p); err != nil {
			b.logError(err, "decoding DEVICE_REMOVED")
			return
		}
		b.removeDevice(p.DeviceID)

	case wire.TypePong:
		var p wire.PongPayload
		if err := wire.DecodePayload(msg, &p); err != nil {
			return
		}
		if b.keepAlive != nil {
			b.keepAlive.PongReceived(p.Seq)
		}

	default:
		b.dispatchResponse(msg)
	}
}

// OnClosed implements transport.ConnHandler.
func (b *Bus) OnClosed(err error) {
	b.failPending()
	b.registry.Clear()

	if err == nil {
		return
	}

	b.closed.Store(true)
	b.stopKeepAlive()

	b.onDroppedMu.Lock()
	dropped := b.onDropped
	b.onDropped = nil
	b.onDroppedMu.Unlock()

	if dropped != nil {
		dropped(err)
	}
}

// addDevice registers a device from its wire descriptor.
func (b *Bus) addDevice(desc wire.DeviceDescriptor) {
	d := newRemoteDevice(b, desc)
	if err := b.registry.Add(d); err != nil {
		b.logError(err, "registering device "+desc.ID)
		return
	}
	b.logDevice(d.ID(), log.DeviceEvent{
		Change:    log.DeviceAttached,
		Name:      d.Name(),
		Vibrate:   d.caps.Vibrate,
		Rotate:    d.caps.Rotate,
		Oscillate: d.caps.Oscillate,
		Linear:    d.caps.Linear,
	})
}

// removeDevice deregisters a device by ID.
func (b *Bus) removeDevice(id string) {
	d, err := b.registry.Get(id)
	if err != nil {
		return
	}
	if err := b.registry.Remove(id); err != nil {
		return
	}
	b.logDevice(id, log.DeviceEvent{
		Change: log.DeviceDetached,
		Name:   d.Name(),
	})
}

// request sends one message and waits for its response.
func (b *Bus) request(ctx context.Context, msgType wire.MessageType, payload any) (*wire.Message, error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}

	id := atomic.AddUint32(&b.nextMsgID, 1)
	respCh := make(chan *wire.Message, 1)

	b.pendingMu.Lock()
	b.pending[id] = respCh
	b.pendingMu.Unlock()

	defer func() {
		b.pendingMu.Lock()
		delete(b.pending, id)
		b.pendingMu.Unlock()
	}()

	data, err := wire.Encode(id, msgType, payload)
	if err != nil {
		return nil, err
	}
	if err := b.conn.Send(data); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(b.config.RequestTimeout):
		return nil, fmt.Errorf("%w: %s", ErrRequestTimeout, msgType)
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrBusClosed
		}
		return resp, nil
	}
}

// command sends a request and expects a plain Ok.
func (b *Bus) command(ctx context.Context, msgType wire.MessageType, payload any) error {
	resp, err := b.request(ctx, msgType, payload)
	if err != nil {
		return err
	}

	switch resp.Type {
	case wire.TypeOk:
		return nil
	case wire.TypeError:
		var p wire.ErrorPayload
		if err := wire.DecodePayload(resp, &p); err != nil {
			return fmt.Errorf("%w: %s", ErrRejected, msgType)
		}
		return fmt.Errorf("%w: %s: %s %s", ErrRejected, msgType, p.Code, p.Message)
	default:
		return fmt.Errorf("unexpected reply to %s: %s", msgType, resp.Type)
	}
}

// dispatchResponse hands a response to the waiting request.
func (b *Bus) dispatchResponse(msg *wire.Message) {
	b.pendingMu.Lock()
	ch, exists := b.pending[msg.MessageID]
	b.pendingMu.Unlock()

	if !exists {
		return
	}
	select {
	case ch <- msg:
	default:
	}
}

// failPending closes all pending request channels.
func (b *Bus) failPending() {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
}

// startKeepAlive begins liveness pings.
func (b *Bus) startKeepAlive() {
	ctx, cancel := context.WithCancel(context.Background())
	b.kaCancel = cancel

	b.keepAlive = transport.NewKeepAlive(b.config.KeepAlive,
		func(seq uint32) error {
			id := atomic.AddUint32(&b.nextMsgID, 1)
			data, err := wire.Encode(id, wire.TypePing, &wire.PingPayload{Seq: seq})
			if err != nil {
				return err
			}
			return b.conn.Send(data)
		},
		func() {
			// Dead link: tear down so the read loop reports the drop
			b.conn.Close()
		},
	)
	b.keepAlive.Start(ctx)
}

// stopKeepAlive halts liveness pings.
func (b *Bus) stopKeepAlive() {
	if b.keepAlive != nil {
		b.keepAlive.Stop()
	}
	if b.kaCancel != nil {
		b.kaCancel()
	}
}

// logError emits an error event at the bus layer.
func (b *Bus) logError(err error, context string) {
	b.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: b.conn.ID(),
		Layer:        log.LayerBus,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerBus,
			Message: err.Error(),
			Context: context,
		},
	})
}

// logDevice emits a device attach/detach event.
func (b *Bus) logDevice(deviceID string, ev log.DeviceEvent) {
	b.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: b.conn.ID(),
		Layer:        log.LayerBus,
		Category:     log.CategoryDevice,
		DeviceID:     deviceID,
		Device:       &ev,
	})
}
