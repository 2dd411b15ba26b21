// Package engine implements the feature-rich Provider on top of the net/http
// client: explicit timeouts, proxy support, redirect control, phase timings and
// detailed transport error codes.
package engine

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	courier "github.com/wesleyorama2/courier/internal/http"
)

// Name identifies the engine provider
const Name = "engine"

var errTooManyRedirects = errors.New("too many redirects")

// availability caches whether net/http exposes a configurable *http.Transport
var availability = &courier.Availability{
	Name: Name,
	Probe: func() error {
		if _, ok := http.DefaultTransport.(*http.Transport); !ok {
			return fmt.Errorf("http.DefaultTransport is a %T, not *http.Transport", http.DefaultTransport)
		}
		return nil
	},
}

// Provider sends requests with a net/http client. Every Execute uses its own
// transport, closed before returning, so no connection outlives a call.
// Provider is safe for concurrent use by multiple goroutines.
type Provider struct {
	base     *http.Transport
	insecure bool
}

// Option configures a Provider
type Option func(*Provider)

// WithTransport sets the transport cloned for every call
func WithTransport(t *http.Transport) Option {
	return func(p *Provider) {
		if t != nil {
			p.base = t
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// WARNING: This should only be used for testing purposes.
func WithInsecureSkipVerify() Option {
	return func(p *Provider) {
		p.insecure = true
	}
}

// New creates an engine provider. It fails with ErrProviderUnavailable when
// net/http cannot be configured.
func New(options ...Option) (*Provider, error) {
	if err := availability.Check(); err != nil {
		return nil, err
	}

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		base = &http.Transport{Proxy: http.ProxyFromEnvironment}
	}

	p := &Provider{base: base}
	for _, option := range options {
		option(p)
	}
	return p, nil
}

// Name implements courier.Provider
func (p *Provider) Name() string { return Name }

// Execute implements courier.Provider
func (p *Provider) Execute(ctx context.Context, c *courier.Call, sink courier.Sink) (info courier.TransferInfo, err error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(c.URI.Scheme) {
	case "http", "https":
	default:
		return info, courier.NewTransportError(courier.CodeUnsupportedProtocol,
			fmt.Errorf("unsupported protocol scheme %q", c.URI.Scheme))
	}

	transport, err := p.transport(c.Options)
	if err != nil {
		return info, err
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport:     transport,
		Timeout:       c.Options.Timeout(),
		CheckRedirect: checkRedirect(c.Options, &info, logger),
	}

	auth, _ := c.Options[OptAuth].(Auth)
	start := time.Now()

	req, err := p.newRequest(ctx, c, &info.Timing, start)
	if err != nil {
		return info, err
	}
	if auth.Scheme == SchemeBasic {
		req.SetBasicAuth(auth.User, auth.Pass)
	}

	resp, err := client.Do(req)
	if err != nil {
		return info, doError(err)
	}

	if auth.Scheme == SchemeAny && challenged(resp) {
		logger.Debug("retrying with basic credentials after challenge")
		drain(resp.Body)

		req, err = p.newRequest(ctx, c, &info.Timing, start)
		if err != nil {
			return info, err
		}
		req.SetBasicAuth(auth.User, auth.Pass)
		if resp, err = client.Do(req); err != nil {
			return info, doError(err)
		}
	}
	defer func() {
		err = multierr.Append(err, resp.Body.Close())
	}()

	info.EffectiveURL = resp.Request.URL.String()
	emitHeader(resp, sink)

	if c.Method == courier.MethodHead {
		info.Timing.TotalTime = time.Since(start)
		return info, nil
	}

	transferStart := time.Now()
	info.BytesRead, err = courier.CopyBody(resp.Body, sink, c.Options.Int(courier.OptBufferSize, courier.DefaultBufferSize))
	info.Timing.ContentTransferTime = time.Since(transferStart)
	info.Timing.TotalTime = time.Since(start)

	return info, err
}

// transport clones the base transport and applies the call options
func (p *Provider) transport(opts courier.Options) (*http.Transport, error) {
	t := p.base.Clone()
	t.DisableKeepAlives = true

	if timeout := opts.ConnectTimeout(); timeout > 0 {
		dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
		t.DialContext = dialer.DialContext
		t.TLSHandshakeTimeout = timeout
	}

	if p.insecure {
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{}
		}
		t.TLSClientConfig.InsecureSkipVerify = true
	}

	if proxy, ok := opts[courier.OptProxy].(courier.Proxy); ok && proxy.Host != "" {
		proxyURL, err := url.Parse(proxy.URI().Build())
		if err != nil {
			return nil, courier.NewTransportError(courier.CodeCouldNotResolveProxy, err)
		}
		t.Proxy = http.ProxyURL(proxyURL)
	}

	return t, nil
}

// newRequest builds the net/http request with a fresh body reader and a trace
// filling timing
func (p *Provider) newRequest(ctx context.Context, c *courier.Call, timing *courier.TimingInfo, start time.Time) (*http.Request, error) {
	var body io.Reader
	if raw := c.Options.Bytes(courier.OptBody); raw != nil && c.Method != courier.MethodHead {
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, newTrace(timing, start)), c.Method, c.URI.Build(), body)
	if err != nil {
		return nil, courier.NewTransportError(courier.CodeMalformedURL, err)
	}

	for _, line := range c.Options.Strings(courier.OptHeader) {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if strings.EqualFold(name, "Host") {
			req.Host = value
			continue
		}
		req.Header.Add(name, value)
	}

	if cookie := c.Options.String(courier.OptCookie, ""); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	return req, nil
}

// newTrace captures phase timings. Each phase is measured from the end of the
// previous one so that the parts add up.
func newTrace(timing *courier.TimingInfo, start time.Time) *httptrace.ClientTrace {
	var dnsStart, connectStart, tlsHandshakeStart time.Time
	var dnsDone, connectDone bool
	lastPhaseEnd := start

	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			now := time.Now()
			timing.DNSLookupTime = now.Sub(dnsStart)
			dnsDone = true
			lastPhaseEnd = now
		},
		ConnectStart: func(network, addr string) {
			if dnsDone || connectStart.IsZero() {
				connectStart = time.Now()
			}
		},
		ConnectDone: func(network, addr string, err error) {
			if err == nil {
				now := time.Now()
				timing.TCPConnectTime = now.Sub(connectStart)
				connectDone = true
				lastPhaseEnd = now
			}
		},
		TLSHandshakeStart: func() {
			if connectDone {
				tlsHandshakeStart = time.Now()
			}
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			if err == nil && !tlsHandshakeStart.IsZero() {
				now := time.Now()
				timing.TLSHandshakeTime = now.Sub(tlsHandshakeStart)
				lastPhaseEnd = now
			}
		},
		GotFirstResponseByte: func() {
			timing.TimeToFirstByte = time.Since(lastPhaseEnd)
		},
	}
}

func checkRedirect(opts courier.Options, info *courier.TransferInfo, logger *zap.Logger) func(*http.Request, []*http.Request) error {
	follow := opts.Bool(courier.OptFollowLocation, true)
	max := opts.Int(courier.OptMaxRedirects, courier.DefaultMaxRedirects)

	return func(req *http.Request, via []*http.Request) error {
		if !follow {
			return http.ErrUseLastResponse
		}
		if len(via) > max {
			return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, max)
		}
		info.Redirects = len(via)
		logger.Debug("following redirect", zap.String("location", req.URL.String()))
		return nil
	}
}

// emitHeader replays the final response head as raw lines, headers sorted by name
func emitHeader(resp *http.Response, sink courier.Sink) {
	sink.Reset()
	sink.HeaderLine(resp.Proto + " " + resp.Status)

	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range resp.Header[name] {
			sink.HeaderLine(name + ": " + value)
		}
	}
	sink.HeaderLine("")
}

func challenged(resp *http.Response) bool {
	if resp.StatusCode != http.StatusUnauthorized {
		return false
	}
	for _, v := range resp.Header.Values("WWW-Authenticate") {
		if strings.HasPrefix(strings.ToLower(v), "basic") {
			return true
		}
	}
	return false
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

// doError maps a client.Do failure to a transport error
func doError(err error) error {
	if errors.Is(err, errTooManyRedirects) {
		return courier.NewTransportError(courier.CodeTooManyRedirects, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "proxyconnect" {
		return courier.NewTransportError(courier.CodeCouldNotResolveProxy, err)
	}
	return courier.Classify(err)
}
