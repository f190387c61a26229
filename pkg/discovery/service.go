package discovery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hapticlink/haptic-go/pkg/wire"
)

// DNS-SD constants for the haptic bus.
const (
	// ServiceType is the DNS-SD service type of the bus.
	ServiceType = "_hapticbus._tcp"

	// Domain is the DNS-SD browse domain.
	Domain = "local."

	// DefaultPort is the conventional bus listen port.
	DefaultPort = 12350

	// MaxInstanceNameLen caps advertised instance names per RFC 6763.
	MaxInstanceNameLen = 63
)

// ErrNotFound indicates no matching service was discovered.
var ErrNotFound = errors.New("service not found")

// Service describes one discovered haptic bus service.
type Service struct {
	// InstanceName is the DNS-SD instance name.
	InstanceName string

	// Host and Port locate the service.
	Host string
	Port uint16

	// Addresses are the resolved IP addresses, possibly from several
	// interfaces.
	Addresses []string

	// ServerName is the service's self-reported name.
	ServerName string

	// Version is the protocol version the service speaks.
	Version uint8

	// DeviceCount is the number of devices connected to the service at
	// announce time.
	DeviceCount int
}

// Addr returns a dialable host:port for the service, preferring a
// resolved address over the hostname.
func (s *Service) Addr() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	if strings.Contains(host, ":") {
		// IPv6 literal
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s:%d", host, s.Port)
}

// TXT record keys.
const (
	txtKeyName    = "sn"
	txtKeyVersion = "pv"
	txtKeyDevices = "dc"
)

// Info is the advertised side of a Service.
type Info struct {
	ServerName  string
	Version     uint8
	DeviceCount int
}

// EncodeTXT builds the TXT record strings for an announcement.
func EncodeTXT(info Info) []string {
	version := info.Version
	if version == 0 {
		version = wire.ProtocolVersion
	}
	return []string{
		txtKeyName + "=" + info.ServerName,
		txtKeyVersion + "=" + strconv.Itoa(int(version)),
		txtKeyDevices + "=" + strconv.Itoa(info.DeviceCount),
	}
}

// DecodeTXT parses TXT record strings into an Info. Unknown keys are
// ignored; a missing version makes the record invalid.
func DecodeTXT(txt []string) (Info, error) {
	var info Info
	versionSeen := false

	for _, record := range txt {
		key, value, found := strings.Cut(record, "=")
		if !found {
			continue
		}
		switch key {
		case txtKeyName:
			info.ServerName = value
		case txtKeyVersion:
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return Info{}, fmt.Errorf("invalid protocol version %q: %w", value, err)
			}
			info.Version = uint8(v)
			versionSeen = true
		case txtKeyDevices:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Info{}, fmt.Errorf("invalid device count %q: %w", value, err)
			}
			info.DeviceCount = n
		}
	}

	if !versionSeen {
		return Info{}, errors.New("TXT record has no protocol version")
	}
	return info, nil
}
