package discovery

import (
	"context"
	"net"
	"slices"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures service browsing.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface by name.
	// Empty means all interfaces.
	Interface string
}

// Browser discovers haptic bus services via mDNS.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a browser.
func NewBrowser(config BrowserConfig) *Browser {
	return &Browser{config: config}
}

// Browse streams discovered services until ctx is cancelled. Entries
// from multiple interfaces are aggregated by instance name, so each
// service is emitted once with its addresses merged.
func (b *Browser) Browse(ctx context.Context) (<-chan *Service, error) {
	out := make(chan *Service)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	agg := &aggregator{byInstance: make(map[string]*Service), out: out}
	go agg.run(ctx, entries, removed)
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.options()...)
	}()

	return out, nil
}

// FindFirst returns the first discovered service, or ErrNotFound when
// ctx expires first.
func (b *Browser) FindFirst(ctx context.Context) (*Service, error) {
	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	select {
	case svc, ok := <-results:
		if !ok {
			return nil, ErrNotFound
		}
		return svc, nil
	case <-ctx.Done():
		return nil, ErrNotFound
	}
}

// FindByName returns the first service whose server name matches.
func (b *Browser) FindByName(ctx context.Context, name string) (*Service, error) {
	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case svc, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if svc.ServerName == name {
				return svc, nil
			}
		case <-ctx.Done():
			return nil, ErrNotFound
		}
	}
}

func (b *Browser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		if iface, err := net.InterfaceByName(b.config.Interface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// aggregator collapses per-interface zeroconf entries into one Service
// per instance name.
type aggregator struct {
	byInstance map[string]*Service
	out        chan<- *Service
}

func (a *aggregator) run(ctx context.Context, entries, removed <-chan *zeroconf.ServiceEntry) {
	defer close(a.out)

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if !a.add(ctx, entry) {
				return
			}
		case entry, ok := <-removed:
			if ok {
				a.remove(entry)
			}
		case <-ctx.Done():
			return
		}
	}
}

// add records a discovered entry. Returns false when ctx died while
// emitting.
func (a *aggregator) add(ctx context.Context, entry *zeroconf.ServiceEntry) bool {
	svc := entryToService(entry)
	if svc == nil {
		return true
	}

	if known, found := a.byInstance[svc.InstanceName]; found {
		for _, addr := range svc.Addresses {
			if !slices.Contains(known.Addresses, addr) {
				known.Addresses = append(known.Addresses, addr)
			}
		}
		return true
	}

	a.byInstance[svc.InstanceName] = svc
	select {
	case a.out <- svc:
		return true
	case <-ctx.Done():
		return false
	}
}

// remove drops the addresses carried by a goodbye entry, forgetting the
// instance once no addresses remain.
func (a *aggregator) remove(entry *zeroconf.ServiceEntry) {
	known, found := a.byInstance[entry.Instance]
	if !found {
		return
	}

	gone := entryAddresses(entry)
	known.Addresses = slices.DeleteFunc(known.Addresses, func(addr string) bool {
		return slices.Contains(gone, addr)
	})
	if len(known.Addresses) == 0 {
		delete(a.byInstance, entry.Instance)
	}
}

// entryToService converts a zeroconf entry, returning nil for entries
// whose TXT record does not parse.
func entryToService(entry *zeroconf.ServiceEntry) *Service {
	info, err := DecodeTXT(entry.Text)
	if err != nil {
		return nil
	}

	return &Service{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    entryAddresses(entry),
		ServerName:   info.ServerName,
		Version:      info.Version,
		DeviceCount:  info.DeviceCount,
	}
}

func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}
