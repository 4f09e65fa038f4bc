package discovery

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/enbility/zeroconf/v3"
)

// mDNS service parameters for INDIGO servers.
const (
	// ServiceType is the mDNS service type INDIGO servers register.
	ServiceType = "_indigo._tcp"

	// Domain is the mDNS domain to browse.
	Domain = "local."

	// DefaultPort is the INDIGO server port.
	DefaultPort = 7624
)

// ErrNotFound is returned when a search completes without a match.
var ErrNotFound = errors.New("service not found")

// Service is one discovered INDIGO server.
type Service struct {
	// InstanceName is the server's announced name.
	InstanceName string

	// Host is the server's mDNS hostname.
	Host string

	// Port is the TCP port the server listens on.
	Port uint16

	// Addresses holds the server's IP addresses as strings, IPv4
	// before IPv6, aggregated across interfaces.
	Addresses []string

	// Text holds raw TXT record strings, if the server published any.
	Text []string
}

// Endpoint returns a dialable host:port for the service. The first
// address is preferred; the mDNS hostname is the fallback.
func (s *Service) Endpoint() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}

// clone returns a copy that is safe to hand to consumers while the
// browser keeps aggregating into its own record.
func (s *Service) clone() *Service {
	dup := *s
	dup.Addresses = append([]string(nil), s.Addresses...)
	dup.Text = append([]string(nil), s.Text...)
	return &dup
}

// Config configures a Browser.
type Config struct {
	// Interface restricts browsing to one network interface by name.
	// Empty means all interfaces.
	Interface string
}

// Browser discovers INDIGO servers via mDNS.
type Browser struct {
	config Config
}

// NewBrowser creates a browser.
func NewBrowser(config Config) *Browser {
	return &Browser{config: config}
}

// Browse searches for INDIGO servers until the context is cancelled.
// Each server is emitted once, as a snapshot of what was known at that
// point; later announcements for the same instance are tracked
// internally but not re-emitted.
func (b *Browser) Browse(ctx context.Context) (<-chan *Service, error) {
	out := make(chan *Service)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	go aggregate(ctx, entries, removed, out)

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// aggregate folds raw mDNS announcements into per-instance services.
// Emitted services are clones; the browser's own records keep changing
// as further interfaces answer, and consumers must not see that.
func aggregate(ctx context.Context, entries, removed <-chan *zeroconf.ServiceEntry, out chan<- *Service) {
	defer close(out)

	services := make(map[string]*Service)

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			svc := entryToService(entry)

			existing, found := services[svc.InstanceName]
			if found {
				existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
				continue
			}
			services[svc.InstanceName] = svc
			select {
			case out <- svc.clone():
			case <-ctx.Done():
				return
			}

		case entry, ok := <-removed:
			if !ok {
				continue
			}
			if existing, found := services[entry.Instance]; found {
				existing.Addresses = removeAddresses(existing.Addresses, entry)
				if len(existing.Addresses) == 0 {
					delete(services, entry.Instance)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// Find searches for a server by instance name. It returns when found
// or when the context expires.
func (b *Browser) Find(ctx context.Context, instanceName string) (*Service, error) {
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
			if svc.InstanceName == instanceName {
				return svc, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// browserOptions returns zeroconf client options based on config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToService converts a zeroconf entry to a Service.
func entryToService(entry *zeroconf.ServiceEntry) *Service {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &Service{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
		Text:         entry.Text,
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses drops the addresses of a disappearing entry.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
