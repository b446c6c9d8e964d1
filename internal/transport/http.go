package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/datallboy/godl/internal/domain"
	"github.com/datallboy/godl/internal/infra/config"
	"github.com/datallboy/godl/internal/infra/logger"
)

var errNotOpen = errors.New("http transport is not open")

// HTTP implements domain.Transport over net/http. The client, its connection
// pool and the DNS cache are created by Open and shared by all workers until
// Close.
type HTTP struct {
	cfg config.TransportConfig
	log *logger.Logger

	mu     sync.RWMutex
	client *http.Client
	dns    *dnsCache
}

func NewHTTP(cfg config.TransportConfig, log *logger.Logger) *HTTP {
	if log == nil {
		log = logger.Discard()
	}
	return &HTTP{cfg: cfg, log: log}
}

// Open builds the shared client. Calling it on an open transport is a no-op.
func (t *HTTP) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		return nil
	}

	t.dns = newDNSCache(t.cfg.DNSCacheTTL, t.cfg.IPv4Only)

	dialer := &net.Dialer{KeepAlive: 30 * time.Second}

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         t.dns.dialContext(dialer),
		ForceAttemptHTTP2:   true,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 30 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: t.cfg.InsecureSkipVerify, //nolint:gosec // configurable, on by default for self-signed mirrors
		},
	}

	maxRedirects := t.cfg.MaxRedirects
	t.client = &http.Client{
		Transport: tr,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	t.log.Debug("HTTP transport opened (dns ttl %s, ipv4 only %t)", t.cfg.DNSCacheTTL, t.cfg.IPv4Only)
	return nil
}

// Close drops idle connections and the DNS cache.
func (t *HTTP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return nil
	}

	t.client.CloseIdleConnections()
	t.dns.flush()
	t.client = nil
	t.dns = nil

	t.log.Debug("HTTP transport closed")
	return nil
}

func (t *HTTP) current() (*http.Client, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.client == nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransportInit, errNotOpen)
	}
	return t.client, nil
}

func (t *HTTP) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransportInit, err)
	}
	if t.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", t.cfg.UserAgent)
	}
	return req, nil
}

// ContentLength issues a HEAD request. A non-200 answer is reported as an
// *domain.Error carrying the status bucket; a missing length is a getinfo
// failure.
func (t *HTTP) ContentLength(ctx context.Context, url string) (int64, error) {
	client, err := t.current()
	if err != nil {
		return 0, err
	}

	req, err := t.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrTransportPerform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, domain.NewError(domain.KindForStatus(resp.StatusCode), resp.StatusCode, nil)
	}

	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("%w: no content length for %s", domain.ErrTransportGetInfo, url)
	}

	return resp.ContentLength, nil
}

// Get streams the body of a 200 response into w. Other statuses are returned
// without reading the body.
func (t *HTTP) Get(ctx context.Context, url string, w io.Writer) (int, error) {
	client, err := t.current()
	if err != nil {
		return 0, err
	}

	wd, wctx := startWatchdog(ctx, t.cfg.LowSpeedLimit, t.cfg.LowSpeedTime)
	defer wd.stop()

	req, err := t.newRequest(wctx, http.MethodGet, url)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, t.performErr(wctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.log.Debug("GET %s returned %d", url, resp.StatusCode)
		return resp.StatusCode, nil
	}

	n, err := io.Copy(w, wd.wrap(resp.Body))
	if err != nil {
		return 0, t.performErr(wctx, err)
	}

	t.log.Debug("GET %s: %d bytes", url, n)
	return resp.StatusCode, nil
}

func (t *HTTP) performErr(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), errTooSlow) {
		return fmt.Errorf("%w: %v", domain.ErrTransportPerform, errTooSlow)
	}
	return fmt.Errorf("%w: %v", domain.ErrTransportPerform, err)
}
