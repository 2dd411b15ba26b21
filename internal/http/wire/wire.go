// Package wire implements the stream-based fallback Provider. It speaks
// HTTP/1.1 directly over a net.Conn, optionally wrapped in TLS or tunnelled
// through a proxy, and hands header lines to the sink exactly as they arrive.
package wire

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	courier "github.com/wesleyorama2/courier/internal/http"
	"github.com/wesleyorama2/courier/internal/uri"
)

// Name identifies the wire provider
const Name = "wire"

// availability caches whether the process can open TCP streams at all
var availability = &courier.Availability{
	Name: Name,
	Probe: func() error {
		_, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
		return err
	},
}

// Provider performs one connection per request hop and closes it before
// returning. Provider is safe for concurrent use by multiple goroutines.
type Provider struct {
	tlsConfig *tls.Config
}

// Option configures a Provider
type Option func(*Provider)

// WithTLSConfig sets the TLS configuration used for https targets
func WithTLSConfig(cfg *tls.Config) Option {
	return func(p *Provider) {
		if cfg != nil {
			p.tlsConfig = cfg.Clone()
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// WARNING: This should only be used for testing purposes.
func WithInsecureSkipVerify() Option {
	return func(p *Provider) {
		p.tlsConfig.InsecureSkipVerify = true
	}
}

// New creates a wire provider. It fails with ErrProviderUnavailable when the
// process cannot open TCP streams.
func New(options ...Option) (*Provider, error) {
	if err := availability.Check(); err != nil {
		return nil, err
	}

	p := &Provider{tlsConfig: &tls.Config{}}
	for _, option := range options {
		option(p)
	}
	return p, nil
}

// Name implements courier.Provider
func (p *Provider) Name() string { return Name }

// Execute implements courier.Provider. Redirects are followed hop by hop; every
// hop resets the sink before its header block, and only the final body is written.
func (p *Provider) Execute(ctx context.Context, c *courier.Call, sink courier.Sink) (info courier.TransferInfo, err error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if timeout := c.Options.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	follow := c.Options.Bool(courier.OptFollowLocation, true)
	max := c.Options.Int(courier.OptMaxRedirects, courier.DefaultMaxRedirects)

	ex := &exchange{
		call:   c,
		method: c.Method,
		target: c.URI.Clone(),
		sink:   sink,
		info:   &info,
	}
	if c.Method != courier.MethodHead {
		ex.body = c.Options.Bytes(courier.OptBody)
	}

	start := time.Now()
	defer func() {
		info.Timing.TotalTime = time.Since(start)
		if err != nil && ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
	}()

	for {
		info.EffectiveURL = ex.target.Build()

		location, err := p.roundTrip(ctx, ex, follow)
		if err != nil {
			return info, err
		}
		if location == "" {
			return info, nil
		}

		if info.Redirects >= max {
			return info, courier.NewTransportError(courier.CodeTooManyRedirects,
				fmt.Errorf("stopped after %d redirects", max))
		}
		if err := ex.redirect(location); err != nil {
			return info, err
		}
		info.Redirects++
		logger.Debug("following redirect", zap.String("location", ex.target.Build()))
	}
}

// exchange is the mutable state of one Execute across redirect hops
type exchange struct {
	call   *courier.Call
	method string
	target *uri.URI
	body   []byte
	status int
	sink   courier.Sink
	info   *courier.TransferInfo
}

// redirect points the exchange at location, relative to the current target.
// 303 turns any method but HEAD into GET; 301 and 302 do so for POST only.
func (ex *exchange) redirect(location string) error {
	next, err := uri.Parse(location)
	if err != nil {
		return courier.NewTransportError(courier.CodeMalformedURL, err)
	}
	if next.Host == "" {
		base := ex.target.Clone()
		base.Query = nil
		base.Fragment = ""
		next = base.Resolve(next)
	}
	if next.Scheme == "" {
		next.Scheme = ex.target.Scheme
	}

	switch {
	case ex.status == 303 && ex.method != courier.MethodHead,
		(ex.status == 301 || ex.status == 302) && ex.method == courier.MethodPost:
		ex.method = courier.MethodGet
		ex.body = nil
	}

	ex.target = next
	return nil
}

func supported(scheme string) bool {
	switch strings.ToLower(scheme) {
	case "http", "https":
		return true
	}
	return false
}
