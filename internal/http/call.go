package http

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/courier/internal/header"
	"github.com/wesleyorama2/courier/internal/uri"
)

// Abstract option keys filled by the pipeline. Providers may define their own keys
// for provider-specific settings.
const (
	OptBody           = "body"            // []byte
	OptHeader         = "header"          // []string of "Name: Value" lines
	OptCookie         = "cookie"          // string
	OptProxy          = "proxy"           // Proxy
	OptTimeout        = "timeout"         // time.Duration
	OptConnectTimeout = "connect_timeout" // time.Duration
	OptBufferSize     = "buffer_size"     // int
	OptFollowLocation = "follow_location" // bool
	OptMaxRedirects   = "max_redirects"   // int
)

// Options is an opaque option bag interpreted by the Provider
type Options map[string]interface{}

// Clone returns a shallow copy of o
func (o Options) Clone() Options {
	c := make(Options, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// Merge copies every entry of other into o
func (o Options) Merge(other Options) Options {
	for k, v := range other {
		o[k] = v
	}
	return o
}

// Duration returns the duration stored under key. Integer values are seconds.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	switch v := o[key].(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return def
}

// Timeout returns the transfer timeout, DefaultTimeout when unset. An explicit
// zero disables the limit.
func (o Options) Timeout() time.Duration {
	return o.Duration(OptTimeout, DefaultTimeout)
}

// ConnectTimeout returns the connection timeout, DefaultConnectTimeout when
// unset. An explicit zero disables the limit.
func (o Options) ConnectTimeout() time.Duration {
	return o.Duration(OptConnectTimeout, DefaultConnectTimeout)
}

// Int returns the int stored under key, or def
func (o Options) Int(key string, def int) int {
	if v, ok := o[key].(int); ok {
		return v
	}
	return def
}

// Bool returns the bool stored under key, or def
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

// String returns the string stored under key, or def
func (o Options) String(key, def string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return def
}

// Bytes returns the byte slice stored under key. Strings are converted.
func (o Options) Bytes(key string) []byte {
	switch v := o[key].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	return nil
}

// Strings returns the string slice stored under key
func (o Options) Strings(key string) []string {
	if v, ok := o[key].([]string); ok {
		return v
	}
	return nil
}

// Proxy describes an outgoing HTTP proxy. Access holds "user:pass" credentials.
type Proxy struct {
	Host   string
	Port   int
	Access string
}

// URI renders the proxy as an http URI carrying its credentials
func (p Proxy) URI() *uri.URI {
	u := &uri.URI{Scheme: "http", Host: p.Host, Port: p.Port}
	if u.Port == 0 {
		u.Port = 80
	}
	if p.Access != "" {
		u.User, u.Pass, _ = strings.Cut(p.Access, ":")
	}
	return u
}

// Call is the per-dispatch snapshot the pipeline builds from a Request and hands
// to a Provider. Stages and components mutate the snapshot, never the Request.
type Call struct {
	Method  string
	URI     *uri.URI
	Header  *header.Header
	Options Options
	Logger  *zap.Logger
}
