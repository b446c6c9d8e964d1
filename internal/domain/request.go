package domain

import "fmt"

// Field limits inherited from the bounded wire format of earlier clients.
// Overlong input is rejected rather than truncated.
const (
	MaxURLLength    = 511
	MaxPathLength   = 511
	MaxDigestLength = 63
)

// DownloadRequest describes one remote resource to fetch into a local file.
// Its identity is the resource URL alone.
type DownloadRequest struct {
	URL         string `json:"url" mapstructure:"url"`
	DigestURL   string `json:"digest_url,omitempty" mapstructure:"digest_url"`
	Digest      string `json:"digest,omitempty" mapstructure:"digest"`
	Destination string `json:"destination" mapstructure:"destination"`
	Extract     bool   `json:"extract" mapstructure:"extract"`
	Tag         string `json:"tag,omitempty" mapstructure:"tag"`

	// Sink receives the outcome once the request has been processed.
	Sink Sink `json:"-" mapstructure:"-"`
}

// Identity returns the key used for deduplication and cancellation.
func (r DownloadRequest) Identity() string {
	return r.URL
}

// Same reports whether both requests address the same resource.
func (r DownloadRequest) Same(other DownloadRequest) bool {
	return r.URL == other.URL
}

// HasDigest is true when both halves of the digest check are configured.
func (r DownloadRequest) HasDigest() bool {
	return r.DigestURL != "" && r.Digest != ""
}

// PartPath is the temporary file the transfer streams into.
func (r DownloadRequest) PartPath() string {
	return r.Destination + ".part"
}

// Validate checks required fields and length limits.
func (r DownloadRequest) Validate() error {
	switch {
	case r.URL == "":
		return invalid("url is required")
	case r.Destination == "":
		return invalid("destination is required")
	case len(r.URL) > MaxURLLength:
		return invalid(fmt.Sprintf("url exceeds %d bytes", MaxURLLength))
	case len(r.DigestURL) > MaxURLLength:
		return invalid(fmt.Sprintf("digest_url exceeds %d bytes", MaxURLLength))
	case len(r.Destination) > MaxPathLength:
		return invalid(fmt.Sprintf("destination exceeds %d bytes", MaxPathLength))
	case len(r.Digest) > MaxDigestLength:
		return invalid(fmt.Sprintf("digest exceeds %d bytes", MaxDigestLength))
	}
	return nil
}

// ValidateURL applies the url rules to a bare URL used by synchronous probes.
func ValidateURL(url string) error {
	if url == "" {
		return invalid("url is required")
	}
	if len(url) > MaxURLLength {
		return invalid(fmt.Sprintf("url exceeds %d bytes", MaxURLLength))
	}
	return nil
}

func (r DownloadRequest) String() string {
	return fmt.Sprintf("[%s, %s]", r.URL, r.Destination)
}
