package domain

import (
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies the terminal state of a request. Exactly one kind
// applies per outcome.
type ErrorKind int

const (
	KindSuccess ErrorKind = iota
	KindResponse2xx
	KindResponse3xx
	KindResponse4xx
	KindResponse5xx
	KindResponseOther
	KindTransportInit
	KindTransportPerform
	KindTransportGetInfo
	KindInvalidArgument
	KindDigestFetch
	KindCreateFile
	KindRenameFile
	KindExtract
	KindStopped
)

var kindNames = map[ErrorKind]string{
	KindSuccess:          "success",
	KindResponse2xx:      "2xx failure",
	KindResponse3xx:      "3xx failure",
	KindResponse4xx:      "4xx failure",
	KindResponse5xx:      "5xx failure",
	KindResponseOther:    "xxx failure",
	KindTransportInit:    "transport init failure",
	KindTransportPerform: "transport perform failure",
	KindTransportGetInfo: "transport getinfo failure",
	KindInvalidArgument:  "argument invalid",
	KindDigestFetch:      "get message digest failure",
	KindCreateFile:       "create file failure",
	KindRenameFile:       "rename file failure",
	KindExtract:          "extract file failure",
	KindStopped:          "download been stopped",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "<unknown message>"
}

// Label is a metric/db friendly form of the kind.
func (k ErrorKind) Label() string {
	return strings.ReplaceAll(k.String(), " ", "_")
}

// ParseKind reverses Label and String.
func ParseKind(s string) (ErrorKind, error) {
	for k, name := range kindNames {
		if s == name || s == k.Label() {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown error kind %q", s)
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.Label()), nil
}

func (k *ErrorKind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// KindForStatus buckets an HTTP status code. Only 200 is a success.
func KindForStatus(code int) ErrorKind {
	if code == 200 {
		return KindSuccess
	}
	switch code / 100 {
	case 2:
		return KindResponse2xx
	case 3:
		return KindResponse3xx
	case 4:
		return KindResponse4xx
	case 5:
		return KindResponse5xx
	default:
		return KindResponseOther
	}
}

// Outcome is the single terminal record produced for a dispatched request.
type Outcome struct {
	ID          string    `json:"id"`
	Tag         string    `json:"tag,omitempty"`
	StatusCode  int       `json:"status_code"`
	Kind        ErrorKind `json:"kind"`
	URL         string    `json:"url"`
	Destination string    `json:"destination"`
	Detail      string    `json:"detail,omitempty"`
	Skipped     bool      `json:"skipped,omitempty"`
	Bytes       int64     `json:"bytes"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Succeeded reports whether the request reached its goal.
func (o Outcome) Succeeded() bool {
	return o.Kind == KindSuccess
}

// Sink receives outcomes. Implementations must not block the caller for long:
// OnOutcome runs on a worker goroutine.
type Sink interface {
	OnOutcome(Outcome)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Outcome)

func (f SinkFunc) OnOutcome(o Outcome) { f(o) }
