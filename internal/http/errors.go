package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/wesleyorama2/courier/internal/uri"
)

var (
	// ErrFormat is matched by errors caused by malformed URIs or input
	ErrFormat = uri.ErrFormat

	// ErrProviderUnavailable is returned when a provider's transport capability is missing
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrUnsupportedEvent is returned when subscribing to an event outside the streaming set
	ErrUnsupportedEvent = errors.New("unsupported event")

	// ErrContractViolation is returned when a supplied component does not satisfy its contract
	ErrContractViolation = errors.New("contract violation")

	// ErrAborted is returned by a Sink when a listener cancelled the transfer
	ErrAborted = errors.New("transfer aborted")
)

// Transport error codes. Values follow libcurl's CURLE_* numbering.
const (
	CodeUnsupportedProtocol  = 1
	CodeInternal             = 2
	CodeMalformedURL         = 3
	CodeCouldNotResolveProxy = 5
	CodeCouldNotResolveHost  = 6
	CodeCouldNotConnect      = 7
	CodeAborted              = 23
	CodeTimeout              = 28
	CodeSSL                  = 35
	CodeTooManyRedirects     = 47
	CodeSendError            = 55
	CodeRecvError            = 56
)

// TransportError is a connection or protocol level failure. HTTP error statuses
// are never reported as a TransportError.
type TransportError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("transport error %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("transport error %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err with the given code
func NewTransportError(code int, err error) *TransportError {
	te := &TransportError{Code: code, Err: err}
	if err != nil {
		te.Message = err.Error()
	}
	return te
}

// Classify converts err into a *TransportError, guessing a code from the error's
// type when err is not already one.
func Classify(err error) *TransportError {
	if err == nil {
		return nil
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	return NewTransportError(classifyCode(err), err)
}

func classifyCode(err error) int {
	var (
		dnsErr      *net.DNSError
		opErr       *net.OpError
		netErr      net.Error
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		certErr     x509.CertificateInvalidError
	)

	switch {
	case errors.Is(err, ErrAborted), errors.Is(err, context.Canceled):
		return CodeAborted
	case errors.Is(err, ErrFormat):
		return CodeMalformedURL
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.As(err, &dnsErr):
		return CodeCouldNotResolveHost
	case errors.As(err, &recordErr), errors.As(err, &unknownAuth), errors.As(err, &hostErr), errors.As(err, &certErr):
		return CodeSSL
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimeout
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return CodeCouldNotConnect
	case errors.As(err, &opErr) && opErr.Op == "write":
		return CodeSendError
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF), errors.As(err, &opErr):
		return CodeRecvError
	default:
		return CodeInternal
	}
}
