package domain

import (
	"context"
	"io"
)

// Transport is the contract for the network side of a download.
type Transport interface {
	// ContentLength returns the size the remote end reports for url.
	ContentLength(ctx context.Context, url string) (int64, error)

	// Get streams the body of url into w and returns the response status.
	// A non-nil error means no usable status was obtained; it wraps one of
	// the ErrTransport* sentinels.
	Get(ctx context.Context, url string, w io.Writer) (int, error)
}

// Opener is implemented by transports holding shared state that must be set
// up once at start and released at stop.
type Opener interface {
	Open() error
	Close() error
}

// Extractor expands a downloaded archive. Cancelling ctx must abort the
// extraction.
type Extractor interface {
	Extract(ctx context.Context, archivePath string, targetDir string) error
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, archivePath, targetDir string) error

func (f ExtractorFunc) Extract(ctx context.Context, archivePath, targetDir string) error {
	return f(ctx, archivePath, targetDir)
}
