// Package uri provides a structural URL representation with deterministic
// building, merging and resolution.
package uri

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ErrFormat is matched by every error returned when input cannot be parsed as a URI.
var ErrFormat = errors.New("malformed uri")

// FormatError reports an unparseable URI string.
type FormatError struct {
	Input string
	Err   error
}

// Error implements the error interface
func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed uri %q: %v", e.Input, e.Err)
}

// Unwrap returns the underlying parse error
func (e *FormatError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFormat
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// URI holds the named parts of a URL. The zero value of a part means the part is absent.
// Every part is stored decoded.
type URI struct {
	Scheme   string
	Host     string
	Port     int
	User     string
	Pass     string
	Path     string
	Query    Values
	Fragment string
}

// Parse builds a URI from its string form. An empty string yields an empty URI.
func Parse(raw string) (*URI, error) {
	u := &URI{}
	if raw == "" {
		return u, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, &FormatError{Input: raw, Err: err}
	}

	u.Scheme = parsed.Scheme
	u.Host = parsed.Hostname()
	if p := parsed.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, &FormatError{Input: raw, Err: err}
		}
		u.Port = port
	}
	if parsed.User != nil {
		u.User = parsed.User.Username()
		u.Pass, _ = parsed.User.Password()
	}

	// Path and Fragment are kept decoded; Build escapes them again
	if parsed.Opaque != "" {
		u.Path = parsed.Opaque
	} else {
		u.Path = parsed.Path
	}
	u.Fragment = parsed.Fragment

	if parsed.RawQuery != "" {
		query, err := ParseQuery(parsed.RawQuery)
		if err != nil {
			return nil, &FormatError{Input: raw, Err: err}
		}
		u.Query = query
	}

	return u, nil
}

// MustParse is like Parse but panics on malformed input
func MustParse(raw string) *URI {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// Clone returns a deep copy of u
func (u *URI) Clone() *URI {
	if u == nil {
		return &URI{}
	}
	c := *u
	c.Query = u.Query.Clone()
	return &c
}

// String implements fmt.Stringer
func (u *URI) String() string {
	return u.Build()
}

// Build renders the URI. It is a pure function of the parts.
func (u *URI) Build() string {
	var sb strings.Builder

	if u.Scheme != "" {
		sb.WriteString(u.Scheme)
		sb.WriteByte(':')
		if u.Host != "" {
			sb.WriteString("//")
			if u.User != "" {
				if u.Pass != "" {
					sb.WriteString(url.UserPassword(u.User, u.Pass).String())
				} else {
					sb.WriteString(url.User(u.User).String())
				}
				sb.WriteByte('@')
			}
			sb.WriteString(u.hostPort())
		}
	}
	sb.WriteString((&url.URL{Path: u.Path}).EscapedPath())
	if len(u.Query) > 0 {
		sb.WriteByte('?')
		sb.WriteString(EncodeQuery(u.Query))
	}
	if u.Fragment != "" {
		sb.WriteByte('#')
		sb.WriteString((&url.URL{Fragment: u.Fragment}).EscapedFragment())
	}

	return sb.String()
}

// RequestTarget renders path and query only, as sent on an HTTP/1.1 request line.
func (u *URI) RequestTarget() string {
	target := (&URI{Path: u.Path, Query: u.Query}).Build()
	if target == "" || target[0] == '?' {
		target = "/" + target
	}
	return target
}

// HostPort returns host:port, falling back to the scheme's default port.
func (u *URI) HostPort() string {
	port := u.Port
	if port == 0 {
		port = DefaultPort(u.Scheme)
	}
	return net.JoinHostPort(u.Host, strconv.Itoa(port))
}

// Authority returns the host as sent in a Host header: the port is included
// only when it differs from the scheme's default.
func (u *URI) Authority() string {
	if u.Port == DefaultPort(u.Scheme) {
		return (&URI{Host: u.Host}).hostPort()
	}
	return u.hostPort()
}

func (u *URI) hostPort() string {
	host := u.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if u.Port != 0 {
		return host + ":" + strconv.Itoa(u.Port)
	}
	return host
}

// DefaultPort returns the well-known port of an http or https scheme, 0 otherwise.
func DefaultPort(scheme string) int {
	switch strings.ToLower(scheme) {
	case "http":
		return 80
	case "https":
		return 443
	}
	return 0
}

// Extend overlays other onto u. Non-empty scheme, host, port, user, pass and fragment
// replace the current ones, queries are merged with other's keys winning, and the path
// is combined with ExtendPath.
func (u *URI) Extend(other *URI) *URI {
	if other == nil {
		return u
	}
	if other.Scheme != "" {
		u.Scheme = other.Scheme
	}
	if other.Host != "" {
		u.Host = other.Host
	}
	if other.Port != 0 {
		u.Port = other.Port
	}
	if other.User != "" {
		u.User = other.User
	}
	if other.Pass != "" {
		u.Pass = other.Pass
	}
	if other.Fragment != "" {
		u.Fragment = other.Fragment
	}
	if len(other.Query) > 0 {
		u.ExtendQuery(other.Query)
	}
	if other.Path != "" {
		u.ExtendPath(other.Path)
	}
	return u
}

// ExtendQuery merges params into the query. Keys from params win.
func (u *URI) ExtendQuery(params Values) *URI {
	if len(params) == 0 {
		return u
	}
	if u.Query == nil {
		u.Query = make(Values, len(params))
	}
	for k, v := range params {
		u.Query[k] = v
	}
	return u
}

// ExtendPath replaces the path when segment is absolute, otherwise it replaces
// the final path segment while keeping the directory prefix.
func (u *URI) ExtendPath(segment string) *URI {
	if segment == "" {
		return u
	}
	if strings.HasPrefix(segment, "/") {
		u.Path = segment
		return u
	}
	if u.Path == "" {
		u.Path = "/" + segment
		return u
	}
	u.Path = u.Path[:strings.LastIndex(u.Path, "/")+1] + segment
	return u
}

// Resolve returns a copy of u extended with other. u is left untouched.
func (u *URI) Resolve(other *URI) *URI {
	return u.Clone().Extend(other)
}

// ResolveString parses ref and resolves it against u.
func (u *URI) ResolveString(ref string) (*URI, error) {
	other, err := Parse(ref)
	if err != nil {
		return nil, err
	}
	return u.Resolve(other), nil
}
