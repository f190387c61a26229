package discovery

import (
	"context"
	"net"
	"testing"

	"github.com/enbility/zeroconf/v3"
)

func TestTXTRoundTrip(t *testing.T) {
	info := Info{
		ServerName:  "living-room",
		Version:     1,
		DeviceCount: 3,
	}

	got, err := DecodeTXT(EncodeTXT(info))
	if err != nil {
		t.Fatalf("DecodeTXT: %v", err)
	}
	if got != info {
		t.Errorf("round trip = %+v, want %+v", got, info)
	}
}

func TestEncodeTXTDefaultsVersion(t *testing.T) {
	got, err := DecodeTXT(EncodeTXT(Info{ServerName: "s"}))
	if err != nil {
		t.Fatalf("DecodeTXT: %v", err)
	}
	if got.Version == 0 {
		t.Error("zero version not defaulted")
	}
}

func TestDecodeTXT(t *testing.T) {
	tests := []struct {
		name    string
		txt     []string
		want    Info
		wantErr bool
	}{
		{
			name: "full record",
			txt:  []string{"sn=bench", "pv=1", "dc=2"},
			want: Info{ServerName: "bench", Version: 1, DeviceCount: 2},
		},
		{
			name: "unknown keys ignored",
			txt:  []string{"pv=1", "xx=whatever", "sn=bench"},
			want: Info{ServerName: "bench", Version: 1},
		},
		{
			name: "malformed entries skipped",
			txt:  []string{"pv=1", "not-a-pair"},
			want: Info{Version: 1},
		},
		{
			name:    "missing version",
			txt:     []string{"sn=bench", "dc=2"},
			wantErr: true,
		},
		{
			name:    "bad version",
			txt:     []string{"pv=banana"},
			wantErr: true,
		},
		{
			name:    "bad device count",
			txt:     []string{"pv=1", "dc=many"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeTXT(tt.txt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeTXT() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("DecodeTXT() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestServiceAddr(t *testing.T) {
	tests := []struct {
		name string
		svc  Service
		want string
	}{
		{
			name: "prefers resolved address",
			svc:  Service{Host: "bench.local.", Port: 12350, Addresses: []string{"192.168.1.5"}},
			want: "192.168.1.5:12350",
		},
		{
			name: "falls back to hostname",
			svc:  Service{Host: "bench.local.", Port: 12350},
			want: "bench.local.:12350",
		},
		{
			name: "brackets IPv6",
			svc:  Service{Host: "bench.local.", Port: 7000, Addresses: []string{"fe80::1"}},
			want: "[fe80::1]:7000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.svc.Addr(); got != tt.want {
				t.Errorf("Addr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAggregatorMergesAndForgets(t *testing.T) {
	txt := EncodeTXT(Info{ServerName: "bench", Version: 1})
	entry := func(addrs ...string) *zeroconf.ServiceEntry {
		e := &zeroconf.ServiceEntry{}
		e.Instance = "bench-svc"
		e.HostName = "bench.local."
		e.Port = 7000
		e.Text = txt
		for _, a := range addrs {
			e.AddrIPv4 = append(e.AddrIPv4, net.ParseIP(a))
		}
		return e
	}

	out := make(chan *Service, 4)
	agg := &aggregator{byInstance: make(map[string]*Service), out: out}
	ctx := context.Background()

	// First sighting is emitted, later sightings only merge addresses.
	agg.add(ctx, entry("10.0.0.1"))
	agg.add(ctx, entry("10.0.0.2", "10.0.0.1"))

	svc := <-out
	select {
	case extra := <-out:
		t.Fatalf("duplicate emission: %+v", extra)
	default:
	}
	if got := agg.byInstance[svc.InstanceName].Addresses; len(got) != 2 {
		t.Errorf("addresses = %v, want 2 unique", got)
	}

	agg.remove(entry("10.0.0.1"))
	if got := agg.byInstance[svc.InstanceName].Addresses; len(got) != 1 || got[0] != "10.0.0.2" {
		t.Errorf("after removal addresses = %v, want [10.0.0.2]", got)
	}

	// Once the last address says goodbye the instance is forgotten.
	agg.remove(entry("10.0.0.2"))
	if _, found := agg.byInstance[svc.InstanceName]; found {
		t.Error("instance still tracked after all addresses removed")
	}
}
