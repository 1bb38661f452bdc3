// Package stream implements the hardware decoder/resizer collaborator
// (spec.md §6) and the Stream Supervisor (spec.md §4.8).
package stream

import (
	"context"
	"time"

	"github.com/care/orion/internal/types"
)

// OpenOptions mirrors spec.md §6's hardware decoder open contract.
type OpenOptions struct {
	TCPTransport   bool
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// Decoder is the hardware decoder collaborator (spec.md §6): open a
// source, decode frames, skip frames without a CPU transfer, close.
type Decoder interface {
	Open(ctx context.Context, url string, opts OpenOptions) error
	DecodeFrame() (types.DecodedFrame, bool, error)
	SkipFrame() bool
	Close() error
}

// DefaultOpenOptions returns the spec.md §6 defaults: 5s connect/read
// timeouts, TCP transport forced (matching stream-capture's
// rtspsrc protocols=4).
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{TCPTransport: true, ConnectTimeout: 5 * time.Second, ReadTimeout: 5 * time.Second}
}
