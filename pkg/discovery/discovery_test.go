package discovery

import (
	"context"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
)

func TestEntryToService(t *testing.T) {
	entry := &zeroconf.ServiceEntry{}
	entry.Instance = "Observatory"
	entry.Service = ServiceType
	entry.Domain = Domain
	entry.HostName = "obs.local."
	entry.Port = 7624
	entry.Text = []string{"version=2.0"}
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.40")}
	entry.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}

	svc := entryToService(entry)
	if svc.InstanceName != "Observatory" {
		t.Errorf("instance = %q", svc.InstanceName)
	}
	if svc.Port != 7624 {
		t.Errorf("port = %d", svc.Port)
	}
	want := []string{"192.168.1.40", "fe80::1"}
	if !reflect.DeepEqual(svc.Addresses, want) {
		t.Errorf("addresses = %v, want %v", svc.Addresses, want)
	}
	if len(svc.Text) != 1 || svc.Text[0] != "version=2.0" {
		t.Errorf("text = %v", svc.Text)
	}
}

func TestServiceEndpoint(t *testing.T) {
	svc := &Service{
		Host:      "obs.local.",
		Port:      7624,
		Addresses: []string{"192.168.1.40", "fe80::1"},
	}
	if got := svc.Endpoint(); got != "192.168.1.40:7624" {
		t.Errorf("Endpoint() = %q", got)
	}

	// Falls back to the hostname when no address resolved.
	svc.Addresses = nil
	if got := svc.Endpoint(); got != "obs.local.:7624" {
		t.Errorf("Endpoint() without addresses = %q", got)
	}

	// IPv6 addresses get bracketed.
	svc.Addresses = []string{"fe80::1"}
	if got := svc.Endpoint(); got != "[fe80::1]:7624" {
		t.Errorf("Endpoint() with IPv6 = %q", got)
	}
}

func TestMergeAddresses(t *testing.T) {
	got := mergeAddresses([]string{"10.0.0.1", "10.0.0.2"}, []string{"10.0.0.2", "10.0.0.3"})
	want := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mergeAddresses = %v, want %v", got, want)
	}
}

func TestAggregateEmitsSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	out := make(chan *Service)
	go aggregate(ctx, entries, removed, out)

	first := &zeroconf.ServiceEntry{}
	first.Instance = "Observatory"
	first.HostName = "obs.local."
	first.Port = 7624
	first.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.40")}
	entries <- first

	var svc *Service
	select {
	case svc = <-out:
	case <-time.After(time.Second):
		t.Fatal("no service emitted")
	}

	// A later announcement on another interface merges into the
	// browser's record but must not touch the emitted snapshot.
	second := &zeroconf.ServiceEntry{}
	second.Instance = "Observatory"
	second.HostName = "obs.local."
	second.Port = 7624
	second.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
	entries <- second

	other := &zeroconf.ServiceEntry{}
	other.Instance = "Backyard"
	other.HostName = "backyard.local."
	other.Port = 7624
	entries <- other
	select {
	case <-out:
	case <-time.After(time.Second):
		t.Fatal("second instance not emitted")
	}

	want := []string{"192.168.1.40"}
	if !reflect.DeepEqual(svc.Addresses, want) {
		t.Errorf("emitted addresses = %v, want %v", svc.Addresses, want)
	}

	// The same instance announced again is not re-emitted.
	select {
	case dup := <-out:
		t.Errorf("unexpected re-emission of %q", dup.InstanceName)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRemoveAddresses(t *testing.T) {
	entry := &zeroconf.ServiceEntry{}
	entry.AddrIPv4 = []net.IP{net.ParseIP("10.0.0.2")}
	got := removeAddresses([]string{"10.0.0.1", "10.0.0.2"}, entry)
	want := []string{"10.0.0.1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("removeAddresses = %v, want %v", got, want)
	}
}
