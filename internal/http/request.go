package http

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/courier/internal/header"
	"github.com/wesleyorama2/courier/internal/uri"
)

// Auth holds credentials applied by the auth stage of the pipeline
type Auth struct {
	Type string
	User string
	Pass string
}

// Cookie is one outgoing cookie. An empty Key marks an unkeyed entry whose Value
// is sent as-is.
type Cookie struct {
	Key   string
	Value string
}

// Request holds the state of an outgoing request. Calling Call runs the build
// pipeline against a snapshot of that state and dispatches it to the Provider.
//
// A Request is single-owner: it must not be used from several goroutines at once.
type Request struct {
	method      string
	uri         *uri.URI
	params      uri.Values
	header      *header.Header
	body        []byte
	proxy       Proxy
	auth        Auth
	cookies     []Cookie
	options     Options
	components  []Component
	jsonRequest bool

	provider Provider
	response *Response
	logger   *zap.Logger

	// err holds the first error of a fluent setter, returned by the next Call
	err error
}

// Option configures a Request
type Option func(*Request)

// WithLogger sets the logger used for dispatch logs
func WithLogger(logger *zap.Logger) Option {
	return func(r *Request) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithURI sets the request URI
func WithURI(u *uri.URI) Option {
	return func(r *Request) {
		r.uri = u.Clone()
	}
}

// WithMethod sets the HTTP method
func WithMethod(method string) Option {
	return func(r *Request) {
		r.method = strings.ToUpper(method)
	}
}

// NewRequest creates a GET request dispatched through provider
func NewRequest(provider Provider, options ...Option) *Request {
	r := &Request{
		method:   MethodGet,
		uri:      &uri.URI{},
		params:   make(uri.Values),
		header:   header.New(),
		options:  make(Options),
		provider: provider,
		response: NewResponse(),
		logger:   zap.NewNop(),
	}

	for _, option := range options {
		option(r)
	}

	return r
}

// Method returns the HTTP method
func (r *Request) Method() string { return r.method }

// SetMethod sets the HTTP method
func (r *Request) SetMethod(method string) *Request {
	r.method = strings.ToUpper(method)
	return r
}

// URI returns a copy of the request URI as it would be sent, with params folded
// into the query for methods without a body.
func (r *Request) URI() *uri.URI {
	u := r.uri.Clone()
	if !HasBody(r.method) {
		u.ExtendQuery(r.params)
	}
	return u
}

// SetURI parses raw and uses it as the request URI. A parse failure is returned
// by the next Call.
func (r *Request) SetURI(raw string) *Request {
	u, err := uri.Parse(raw)
	if err != nil {
		r.setErr(err)
		return r
	}
	r.uri = u
	return r
}

// SetURIParts uses a copy of u as the request URI
func (r *Request) SetURIParts(u *uri.URI) *Request {
	r.uri = u.Clone()
	return r
}

// ExtendURL merges params into the URI query, whatever the method
func (r *Request) ExtendURL(params uri.Values) *Request {
	r.uri.ExtendQuery(params)
	return r
}

// Params returns the request parameters
func (r *Request) Params() uri.Values { return r.params }

// SetParams replaces the parameters, or merges them when merge is true
func (r *Request) SetParams(params uri.Values, merge bool) *Request {
	if !merge || r.params == nil {
		r.params = make(uri.Values, len(params))
	}
	for k, v := range params {
		r.params[k] = v
	}
	return r
}

// AddParam sets a single parameter. value may be a scalar, a list or a nested uri.Values.
func (r *Request) AddParam(name string, value interface{}) *Request {
	r.params[name] = value
	return r
}

// SetBody sets a raw body for POST, PUT and PATCH. Params are then sent in the
// query instead of the body. contentType is applied unless a Content-Type header exists.
func (r *Request) SetBody(body []byte, contentType string) *Request {
	r.body = body
	if contentType != "" && !r.header.Has("Content-Type") {
		r.header.Set("Content-Type", contentType)
	}
	return r
}

// IsJSONRequest reports whether body params are JSON encoded
func (r *Request) IsJSONRequest() bool { return r.jsonRequest }

// SetJSONRequest makes POST, PUT and PATCH send params as a JSON body
func (r *Request) SetJSONRequest(enabled bool) *Request {
	r.jsonRequest = enabled
	return r
}

// Header returns the outgoing header
func (r *Request) Header() *header.Header { return r.header }

// SetHeaders replaces the headers, or merges them when merge is true
func (r *Request) SetHeaders(headers map[string]string, merge bool) *Request {
	r.header.SetHeaders(headers, merge)
	return r
}

// AddHeader sets a header, replacing any previous value
func (r *Request) AddHeader(name, value string) *Request {
	r.header.Set(name, value)
	return r
}

// Proxy returns the proxy settings
func (r *Request) Proxy() Proxy { return r.proxy }

// SetProxy routes the request through an HTTP proxy. access holds optional
// "user:pass" credentials.
func (r *Request) SetProxy(host string, port int, access string) *Request {
	r.proxy = Proxy{Host: host, Port: port, Access: access}
	return r
}

// Auth returns the auth settings
func (r *Request) Auth() Auth { return r.auth }

// SetAuth sets credentials for the auth stage. Only AuthBasic is built in; other
// types are left to components registered with Use.
func (r *Request) SetAuth(authType, user, pass string) *Request {
	r.auth = Auth{Type: strings.ToLower(authType), User: user, Pass: pass}
	return r
}

// Use registers a component run during the auth stage, in registration order
func (r *Request) Use(c Component) *Request {
	if c == nil {
		r.setErr(fmt.Errorf("%w: nil component", ErrContractViolation))
		return r
	}
	r.components = append(r.components, c)
	return r
}

// AddCookie adds a cookie. An empty key appends an unkeyed entry; a known key is
// replaced in place.
func (r *Request) AddCookie(key, value string) *Request {
	if key != "" {
		for i, c := range r.cookies {
			if c.Key == key {
				r.cookies[i].Value = value
				return r
			}
		}
	}
	r.cookies = append(r.cookies, Cookie{Key: key, Value: value})
	return r
}

// Cookies returns the cookies in insertion order
func (r *Request) Cookies() []Cookie {
	return append([]Cookie(nil), r.cookies...)
}

// CookieHeader formats the cookies as a Cookie header value
func (r *Request) CookieHeader() string {
	parts := make([]string, 0, len(r.cookies))
	for _, c := range r.cookies {
		if c.Key == "" {
			parts = append(parts, c.Value)
		} else {
			parts = append(parts, c.Key+"="+c.Value)
		}
	}
	return strings.Join(parts, "; ")
}

// Options returns the provider options
func (r *Request) Options() Options { return r.options }

// SetOptions replaces the options, or merges them when merge is true
func (r *Request) SetOptions(options Options, merge bool) *Request {
	if !merge {
		r.options = make(Options, len(options))
	}
	r.options.Merge(options)
	return r
}

// SetOption sets a single provider option
func (r *Request) SetOption(name string, value interface{}) *Request {
	r.options[name] = value
	return r
}

// SetTimeout bounds the whole transfer
func (r *Request) SetTimeout(timeout time.Duration) *Request {
	return r.SetOption(OptTimeout, timeout)
}

// SetConnectTimeout bounds connection establishment
func (r *Request) SetConnectTimeout(timeout time.Duration) *Request {
	return r.SetOption(OptConnectTimeout, timeout)
}

// SetFollowRedirects toggles redirect following and caps the number of hops
func (r *Request) SetFollowRedirects(follow bool, max int) *Request {
	r.SetOption(OptFollowLocation, follow)
	if max > 0 {
		r.SetOption(OptMaxRedirects, max)
	}
	return r
}

// Provider returns the provider the request is dispatched to
func (r *Request) Provider() Provider { return r.provider }

// Response returns the response of the last Call
func (r *Request) Response() *Response { return r.response }

// Logger returns the request logger
func (r *Request) Logger() *zap.Logger { return r.logger }

func (r *Request) setErr(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Call builds the request and performs a buffered transfer: the full body is
// collected into the returned Response. HTTP error statuses are not errors; the
// error is non-nil only for build or transport failures, and a transport failure
// is mirrored into Response.ErrorCode and Response.Error.
func (r *Request) Call(ctx context.Context) (*Response, error) {
	r.response = NewResponse()

	c, err := r.Build()
	if err != nil {
		return r.response, err
	}

	return r.response, r.dispatch(ctx, c, &bufferedSink{resp: r.response})
}

// Build runs the pipeline stages on a snapshot of the request state:
// params, auth, proxy, cookies, then headers.
func (r *Request) Build() (*Call, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.provider == nil {
		return nil, fmt.Errorf("%w: request has no provider", ErrProviderUnavailable)
	}

	c := &Call{
		Method:  r.method,
		URI:     r.uri.Clone(),
		Header:  r.header.Clone(),
		Options: r.options.Clone(),
		Logger:  r.logger,
	}

	if err := r.buildParams(c); err != nil {
		return nil, err
	}
	r.buildAuth(c)
	r.buildProxy(c)
	r.buildCookies(c)
	r.buildHeaders(c)

	return c, nil
}

// buildParams encodes params into the body for POST, PUT and PATCH, and into the
// query for every other method.
func (r *Request) buildParams(c *Call) error {
	if !HasBody(c.Method) {
		c.URI.ExtendQuery(r.params)
		return nil
	}

	if r.body != nil {
		c.Options[OptBody] = r.body
		c.URI.ExtendQuery(r.params)
		return nil
	}

	if r.jsonRequest {
		params := r.params
		if params == nil {
			params = uri.Values{}
		}
		body, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("%w: params are not JSON encodable: %v", ErrContractViolation, err)
		}
		c.Options[OptBody] = body
		c.Header.Set("Content-Type", "application/json")
		return nil
	}

	c.Options[OptBody] = []byte(uri.EncodeQuery(r.params))
	c.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return nil
}

func (r *Request) buildAuth(c *Call) {
	switch r.auth.Type {
	case "":
	case AuthBasic:
		c.Header.Set("Authorization", basicAuthorization(r.auth.User, r.auth.Pass))
	default:
		// Other schemes are provided by components
		c.Logger.Debug("auth type not built in, expecting a component",
			zap.String("type", r.auth.Type))
	}

	for _, component := range r.components {
		component.Build(c)
	}
}

func (r *Request) buildProxy(c *Call) {
	if r.proxy.Host != "" {
		c.Options[OptProxy] = r.proxy
	}
}

func (r *Request) buildCookies(c *Call) {
	if len(r.cookies) > 0 {
		c.Options[OptCookie] = r.CookieHeader()
	}
}

func (r *Request) buildHeaders(c *Call) {
	if c.Header.Len() > 0 {
		c.Options[OptHeader] = c.Header.Build()
	}
}

func (r *Request) dispatch(ctx context.Context, c *Call, sink Sink) error {
	target := c.URI.Build()
	logger := r.logger.With(
		zap.String("method", c.Method),
		zap.String("url", target),
		zap.String("provider", r.provider.Name()),
	)
	logger.Debug("dispatching request")

	start := time.Now()
	info, err := r.provider.Execute(ctx, c, sink)
	if info.Timing.TotalTime == 0 {
		info.Timing.TotalTime = time.Since(start)
	}
	if info.EffectiveURL == "" {
		info.EffectiveURL = target
	}
	r.response.Info = info

	if err != nil {
		te := Classify(err)
		r.response.fail(te)
		logger.Warn("transfer failed",
			zap.Int("errorCode", te.Code),
			zap.Error(err),
		)
		return te
	}

	logger.Debug("transfer complete",
		zap.Int("code", r.response.Code),
		zap.Int64("bytes", info.BytesRead),
		zap.Duration("duration", info.Timing.TotalTime),
	)
	return nil
}

// bufferedSink accumulates the whole body into the response
type bufferedSink struct {
	resp *Response
}

func (s *bufferedSink) Reset() {
	resetResponse(s.resp)
}

func (s *bufferedSink) HeaderLine(line string) {
	headerLine(s.resp, line)
}

func (s *bufferedSink) Write(chunk []byte) error {
	s.resp.Body = append(s.resp.Body, chunk...)
	return nil
}

func resetResponse(resp *Response) {
	resp.Header.Reset()
	resp.Code = 0
	resp.Status = ""
	resp.Body = nil
}

func headerLine(resp *Response, line string) {
	resp.Header.ParseLine(line)
	resp.Code = resp.Header.Code
	resp.Status = resp.Header.Status
}
