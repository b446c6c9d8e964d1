package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/datallboy/godl/internal/domain"
)

var errMalformedDigest = errors.New("digest response is malformed")

// cappedBuffer keeps the first max bytes written to it and silently drops the
// rest, so an oversized digest endpoint cannot exhaust memory.
type cappedBuffer struct {
	buf bytes.Buffer
	max int64
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := c.max - int64(c.buf.Len()); room > 0 {
		if int64(len(p)) > room {
			c.buf.Write(p[:room])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

func (c *cappedBuffer) Bytes() []byte { return c.buf.Bytes() }

// checkDigest fetches the digest endpoint and compares its body against the
// expected digest. It returns true when the caller should go on with the
// transfer; otherwise the returned result is final.
func (o *Orchestrator) checkDigest(ctx context.Context, req domain.DownloadRequest) (result, bool) {
	buf := &cappedBuffer{max: max(o.digestMax, int64(domain.MaxDigestLength))}

	status, err := o.transport.Get(ctx, req.DigestURL, buf)
	if err != nil {
		return result{kind: domain.KindDigestFetch, err: err}, false
	}
	if status != 200 {
		return result{kind: domain.KindDigestFetch, err: fmt.Errorf("digest endpoint returned %d", status)}, false
	}

	body := buf.Bytes()
	n := len(req.Digest)

	// Short bodies and HTML error pages are treated as a bad response
	if len(body) < n || bytes.IndexByte(body[:n], '<') >= 0 {
		return result{kind: domain.KindResponse4xx, err: errMalformedDigest}, false
	}

	if strings.EqualFold(string(body[:n]), req.Digest) {
		o.log.Debug("Digest of %s unchanged, skipping transfer", req.URL)
		return result{kind: domain.KindSuccess, status: 200, skipped: true}, false
	}

	return result{}, true
}
