package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

type dnsEntry struct {
	addrs   []string
	expires time.Time
}

// dnsCache is shared by every connection of one HTTP transport. Entries live
// for ttl; a zero ttl disables caching.
type dnsCache struct {
	mu      sync.RWMutex
	entries map[string]dnsEntry

	ttl      time.Duration
	network  string // "ip4" or "ip"
	resolver *net.Resolver
	now      func() time.Time
}

func newDNSCache(ttl time.Duration, ipv4Only bool) *dnsCache {
	network := "ip"
	if ipv4Only {
		network = "ip4"
	}
	return &dnsCache{
		entries:  make(map[string]dnsEntry),
		ttl:      ttl,
		network:  network,
		resolver: net.DefaultResolver,
		now:      time.Now,
	}
}

func (c *dnsCache) lookup(ctx context.Context, host string) ([]string, error) {
	// Literal addresses never hit the resolver
	if ip := net.ParseIP(host); ip != nil {
		if c.network == "ip4" && ip.To4() == nil {
			return nil, fmt.Errorf("address %s is not IPv4", host)
		}
		return []string{host}, nil
	}

	if c.ttl > 0 {
		c.mu.RLock()
		e, ok := c.entries[host]
		c.mu.RUnlock()
		if ok && c.now().Before(e.expires) {
			return e.addrs, nil
		}
	}

	ips, err := c.resolver.LookupIP(ctx, c.network, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no addresses found for %s", host)
	}

	addrs := make([]string, len(ips))
	for i, ip := range ips {
		addrs[i] = ip.String()
	}

	if c.ttl > 0 {
		c.mu.Lock()
		c.entries[host] = dnsEntry{addrs: addrs, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
	}

	return addrs, nil
}

// dialContext wraps dialer so host names are resolved through the cache.
func (c *dnsCache) dialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if c.network == "ip4" {
		network4 := map[string]string{"tcp": "tcp4", "tcp4": "tcp4", "tcp6": "tcp6"}
		base := dialer.DialContext
		dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
			if n, ok := network4[network]; ok {
				network = n
			}
			return base(ctx, network, addr)
		}
		return c.resolveThen(dial)
	}
	return c.resolveThen(dialer.DialContext)
}

func (c *dnsCache) resolveThen(dial func(ctx context.Context, network, addr string) (net.Conn, error)) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		addrs, err := c.lookup(ctx, host)
		if err != nil {
			return nil, err
		}

		var lastErr error
		for _, ip := range addrs {
			conn, err := dial(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
			if ctx.Err() != nil {
				break
			}
		}
		return nil, lastErr
	}
}

func (c *dnsCache) flush() {
	c.mu.Lock()
	c.entries = make(map[string]dnsEntry)
	c.mu.Unlock()
}
