package http

import (
	"context"
	"fmt"
	"io"
	"time"
)

const (
	// DefaultBufferSize is the read size hint used when OptBufferSize is unset
	DefaultBufferSize = 4096

	// DefaultMaxRedirects caps redirect chains when OptMaxRedirects is unset
	DefaultMaxRedirects = 20

	// DefaultTimeout bounds the whole transfer when OptTimeout is unset
	DefaultTimeout = 30 * time.Second

	// DefaultConnectTimeout bounds connection establishment when OptConnectTimeout is unset
	DefaultConnectTimeout = 30 * time.Second
)

// Provider binds the request pipeline to a concrete transport. Implementations
// translate the abstract options of a Call into their own settings, feed raw
// header lines and body chunks to sink as they are received, and release every
// transport handle before returning.
type Provider interface {
	// Name identifies the provider in logs
	Name() string

	// Execute performs the transfer described by c. A non-nil error is a transport
	// failure; HTTP error statuses are reported through the header lines instead.
	Execute(ctx context.Context, c *Call, sink Sink) (TransferInfo, error)
}

// Sink receives the raw parts of a response in arrival order.
type Sink interface {
	// Reset discards any header state before a new response block, e.g. after a redirect
	Reset()

	// HeaderLine receives one raw header line, status line included
	HeaderLine(line string)

	// Write receives a body chunk. A non-nil error cancels the transfer; the
	// provider must stop reading and return an error wrapping it.
	Write(chunk []byte) error
}

// TransferInfo describes a completed or failed transfer
type TransferInfo struct {
	EffectiveURL string
	Redirects    int
	BytesRead    int64
	Timing       TimingInfo
}

// TimingInfo contains the duration of each phase of a transfer.
// Phases a provider cannot observe are left at zero.
type TimingInfo struct {
	DNSLookupTime       time.Duration
	TCPConnectTime      time.Duration
	TLSHandshakeTime    time.Duration
	TimeToFirstByte     time.Duration
	ContentTransferTime time.Duration
	TotalTime           time.Duration
}

// CopyBody reads r in chunks of at most size bytes and hands each one to sink.
// It returns the number of bytes read. A sink error is returned as a
// *TransportError with CodeAborted; read errors are returned as-is.
func CopyBody(r io.Reader, sink Sink, size int) (int64, error) {
	if size <= 0 {
		size = DefaultBufferSize
	}

	var total int64
	buf := make([]byte, size)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if werr := sink.Write(buf[:n]); werr != nil {
				return total, NewTransportError(CodeAborted, werr)
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("read body: %w", err)
		}
	}
}
