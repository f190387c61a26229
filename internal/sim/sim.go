// Package sim implements a simulated device-control service speaking
// the haptic bus protocol. It backs the haptic-sim command and the
// in-process wiring tests; no physical devices are involved.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/hapticlink/haptic-go/pkg/log"
	"github.com/hapticlink/haptic-go/pkg/transport"
	"github.com/hapticlink/haptic-go/pkg/wire"
)

// DeviceSpec describes one simulated device.
type DeviceSpec struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Vibrate   uint8  `yaml:"vibrate"`
	Rotate    uint8  `yaml:"rotate"`
	Oscillate uint8  `yaml:"oscillate"`
	Linear    uint8  `yaml:"linear"`
}

func (s DeviceSpec) descriptor() wire.DeviceDescriptor {
	return wire.DeviceDescriptor{
		ID:        s.ID,
		Name:      s.Name,
		Vibrate:   s.Vibrate,
		Rotate:    s.Rotate,
		Oscillate: s.Oscillate,
		Linear:    s.Linear,
	}
}

// Command is one actuation command a simulated device received.
type Command struct {
	DeviceID   string
	Type       wire.MessageType
	Class      wire.ActuatorClass
	Level      float64
	Clockwise  bool
	DurationMs uint32
	Position   float64
	At         time.Time
}

// Config configures the simulated service.
type Config struct {
	// Address to listen on; use "127.0.0.1:0" in tests.
	Address string

	// ServerName is announced in Welcome.
	ServerName string

	// Devices initially attached to the service.
	Devices []DeviceSpec

	// Logger for transport events (optional).
	Logger log.Logger
}

// Server is a simulated device-control service.
type Server struct {
	config Config
	server *transport.Server

	mu       sync.Mutex
	devices  map[string]DeviceSpec
	order    []string
	commands []Command
	conns    map[*transport.ServerConn]struct{}
}

// NewServer creates a simulated service. Call Start to begin listening.
func NewServer(config Config) *Server {
	if config.ServerName == "" {
		config.ServerName = "haptic-sim"
	}

	s := &Server{
		config:  config,
		devices: make(map[string]DeviceSpec),
		conns:   make(map[*transport.ServerConn]struct{}),
	}
	for _, spec := range config.Devices {
		s.devices[spec.ID] = spec
		s.order = append(s.order, spec.ID)
	}

	s.server = transport.NewServer(transport.ServerConfig{
		Address:      config.Address,
		Logger:       config.Logger,
		OnConnect:    s.onConnect,
		OnDisconnect: s.onDisconnect,
		OnMessage:    s.onMessage,
	})
	return s
}

// Start begins listening.
func (s *Server) Start() error {
	return s.server.Start()
}

// Stop closes the listener and all connections.
func (s *Server) Stop() error {
	return s.server.Stop()
}

// Addr returns the listen address, usable for dialing in tests.
func (s *Server) Addr() string {
	return s.server.Addr().String()
}

// DeviceCount returns the number of attached devices.
func (s *Server) DeviceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

// AddDevice attaches a device at runtime and notifies all clients.
func (s *Server) AddDevice(spec DeviceSpec) {
	s.mu.Lock()
	if _, exists := s.devices[spec.ID]; exists {
		s.mu.Unlock()
		return
	}
	s.devices[spec.ID] = spec
	s.order = append(s.order, spec.ID)
	s.mu.Unlock()

	s.notifyAll(wire.TypeDeviceAdded, &wire.DeviceAddedPayload{Device: spec.descriptor()})
}

// RemoveDevice detaches a device at runtime and notifies all clients.
func (s *Server) RemoveDevice(id string) {
	s.mu.Lock()
	if _, exists := s.devices[id]; !exists {
		s.mu.Unlock()
		return
	}
	delete(s.devices, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notifyAll(wire.TypeDeviceRemoved, &wire.DeviceRemovedPayload{DeviceID: id})
}

// Commands returns all received actuation commands in arrival order.
func (s *Server) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// CommandsFor returns the received commands addressed to one device.
func (s *Server) CommandsFor(deviceID string) []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Command
	for _, cmd := range s.commands {
		if cmd.DeviceID == deviceID {
			out = append(out, cmd)
		}
	}
	return out
}

// WaitForCommands polls until at least n commands of the given type
// arrived for the device, or the timeout expires.
func (s *Server) WaitForCommands(deviceID string, msgType wire.MessageType, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		count := 0
		for _, cmd := range s.CommandsFor(deviceID) {
			if cmd.Type == msgType {
				count++
			}
		}
		if count >= n {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (s *Server) onConnect(conn *transport.ServerConn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) onDisconnect(conn *transport.ServerConn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) onMessage(conn *transport.ServerConn, data []byte) {
	msg, err := wire.Decode(data)
	if err != nil {
		return
	}

	switch msg.Type {
	case wire.TypeHello:
		s.handleHello(conn, msg)
	case wire.TypeRequestDeviceList:
		s.handleDeviceList(conn, msg)
	case wire.TypeScalar:
		s.handleScalar(conn, msg)
	case wire.TypeLinear:
		s.handleLinear(conn, msg)
	case wire.TypeStopDevice:
		s.handleStopDevice(conn, msg)
	case wire.TypeStopAll:
		s.recordStopAll()
		s.reply(conn, msg.MessageID, wire.TypeOk, nil)
	case wire.TypePing:
		var p wire.PingPayload
		if err := wire.DecodePayload(msg, &p); err == nil {
			s.reply(conn, msg.MessageID, wire.TypePong, &wire.PongPayload{Seq: p.Seq})
		}
	default:
		s.replyError(conn, msg.MessageID, wire.CodeUnknownMessage,
			fmt.Sprintf("unsupported message type %d", msg.Type))
	}
}

func (s *Server) handleHello(conn *transport.ServerConn, msg *wire.Message) {
	var hello wire.HelloPayload
	if err := wire.DecodePayload(msg, &hello); err != nil {
		s.replyError(conn, msg.MessageID, wire.CodeInvalidParameter, "malformed HELLO")
		return
	}
	if hello.Version != wire.ProtocolVersion {
		s.replyError(conn, msg.MessageID, wire.CodeVersionMismatch,
			fmt.Sprintf("server speaks version %d", wire.ProtocolVersion))
		return
	}
	s.reply(conn, msg.MessageID, wire.TypeWelcome, &wire.WelcomePayload{
		ServerName: s.config.ServerName,
		Version:    wire.ProtocolVersion,
	})
}

func (s *Server) handleDeviceList(conn *transport.ServerConn, msg *wire.Message) {
	s.mu.Lock()
	descriptors := make([]wire.DeviceDescriptor, 0, len(s.order))
	for _, id := range s.order {
		descriptors = append(descriptors, s.devices[id].descriptor())
	}
	s.mu.Unlock()

	s.reply(conn, msg.MessageID, wire.TypeDeviceList, &wire.DeviceListPayload{Devices: descriptors})
}

func (s *Server) handleScalar(conn *transport.ServerConn, msg *wire.Message) {
	var p wire.ScalarPayload
	if err := wire.DecodePayload(msg, &p); err != nil {
		s.replyError(conn, msg.MessageID, wire.CodeInvalidParameter, "malformed SCALAR")
		return
	}
	if err := p.Validate(); err != nil {
		s.replyError(conn, msg.MessageID, wire.CodeInvalidParameter, err.Error())
		return
	}
	if !s.hasDevice(p.DeviceID) {
		s.replyError(conn, msg.MessageID, wire.CodeUnknownDevice, "unknown device "+p.DeviceID)
		return
	}

	s.record(Command{
		DeviceID:  p.DeviceID,
		Type:      wire.TypeScalar,
		Class:     p.Class,
		Level:     p.Level,
		Clockwise: p.Clockwise,
	})
	s.reply(conn, msg.MessageID, wire.TypeOk, nil)
}

func (s *Server) handleLinear(conn *transport.ServerConn, msg *wire.Message) {
	var p wire.LinearPayload
	if err := wire.DecodePayload(msg, &p); err != nil {
		s.replyError(conn, msg.MessageID, wire.CodeInvalidParameter, "malformed LINEAR")
		return
	}
	if err := p.Validate(); err != nil {
		s.replyError(conn, msg.MessageID, wire.CodeInvalidParameter, err.Error())
		return
	}
	if !s.hasDevice(p.DeviceID) {
		s.replyError(conn, msg.MessageID, wire.CodeUnknownDevice, "unknown device "+p.DeviceID)
		return
	}

	s.record(Command{
		DeviceID:   p.DeviceID,
		Type:       wire.TypeLinear,
		DurationMs: p.DurationMs,
		Position:   p.Position,
	})
	s.reply(conn, msg.MessageID, wire.TypeOk, nil)
}

func (s *Server) handleStopDevice(conn *transport.ServerConn, msg *wire.Message) {
	var p wire.StopDevicePayload
	if err := wire.DecodePayload(msg, &p); err != nil {
		s.replyError(conn, msg.MessageID, wire.CodeInvalidParameter, "malformed STOP_DEVICE")
		return
	}
	if !s.hasDevice(p.DeviceID) {
		s.replyError(conn, msg.MessageID, wire.CodeUnknownDevice, "unknown device "+p.DeviceID)
		return
	}

	s.record(Command{DeviceID: p.DeviceID, Type: wire.TypeStopDevice})
	s.reply(conn, msg.MessageID, wire.TypeOk, nil)
}

// recordStopAll records a stop against every attached device.
func (s *Server) recordStopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, id := range s.order {
		s.commands = append(s.commands, Command{DeviceID: id, Type: wire.TypeStopAll, At: now})
	}
}

func (s *Server) hasDevice(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.devices[id]
	return exists
}

func (s *Server) record(cmd Command) {
	cmd.At = time.Now()
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	s.mu.Unlock()
}

func (s *Server) reply(conn *transport.ServerConn, messageID uint32, msgType wire.MessageType, payload any) {
	data, err := wire.Encode(messageID, msgType, payload)
	if err != nil {
		return
	}
	_ = conn.Send(data)
}

func (s *Server) replyError(conn *transport.ServerConn, messageID uint32, code wire.ErrorCode, text string) {
	s.reply(conn, messageID, wire.TypeError, &wire.ErrorPayload{Code: code, Message: text})
}

// notifyAll sends a notification to every connected client.
func (s *Server) notifyAll(msgType wire.MessageType, payload any) {
	data, err := wire.Encode(wire.NotificationMessageID, msgType, payload)
	if err != nil {
		return
	}

	s.mu.Lock()
	conns := make([]*transport.ServerConn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Send(data)
	}
}
