package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupLiteral(t *testing.T) {
	c := newDNSCache(time.Minute, true)

	addrs, err := c.lookup(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1"}, addrs)

	_, err = c.lookup(context.Background(), "::1")
	assert.Error(t, err, "ipv6 literal rejected in ipv4 mode")
}

func TestLookupCachesUntilExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	c := newDNSCache(300*time.Second, true)
	c.now = func() time.Time { return now }
	c.entries["mirror.test"] = dnsEntry{addrs: []string{"10.0.0.1"}, expires: now.Add(time.Second)}

	addrs, err := c.lookup(context.Background(), "mirror.test")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1"}, addrs)

	c.flush()
	assert.Empty(t, c.entries)
}

func TestDialThroughCache(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	c := newDNSCache(time.Minute, true)
	dial := c.dialContext(&net.Dialer{})

	conn, err := dial(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	conn.Close()
}
