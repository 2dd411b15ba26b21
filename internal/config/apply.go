package config

import (
	"fmt"
	"sort"
	"strings"

	courier "github.com/wesleyorama2/courier/internal/http"
	"github.com/wesleyorama2/courier/internal/http/engine"
	"github.com/wesleyorama2/courier/internal/http/wire"
	"github.com/wesleyorama2/courier/internal/uri"
)

// NewProvider builds the transport named by the profile. An empty name
// selects the engine provider and falls back to wire when the engine is
// unavailable.
func (p *Profile) NewProvider() (courier.Provider, error) {
	switch strings.ToLower(p.Provider) {
	case engine.Name:
		return p.newEngine()
	case wire.Name:
		return p.newWire()
	case "":
		provider, err := p.newEngine()
		if err == nil {
			return provider, nil
		}
		return p.newWire()
	}
	return nil, fmt.Errorf("%w: unknown provider %q", courier.ErrProviderUnavailable, p.Provider)
}

func (p *Profile) newEngine() (courier.Provider, error) {
	var options []engine.Option
	if p.Insecure {
		options = append(options, engine.WithInsecureSkipVerify())
	}
	return engine.New(options...)
}

func (p *Profile) newWire() (courier.Provider, error) {
	var options []wire.Option
	if p.Insecure {
		options = append(options, wire.WithInsecureSkipVerify())
	}
	return wire.New(options...)
}

// ResolveURL expands placeholders in raw and resolves it against BaseURL
// unless it already names a host
func (p *Profile) ResolveURL(raw string) (*uri.URI, error) {
	target, err := uri.Parse(p.Expand(raw))
	if err != nil {
		return nil, err
	}
	if target.Host != "" || p.BaseURL == "" {
		return target, nil
	}

	base, err := uri.Parse(p.Expand(p.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("baseUrl: %w", err)
	}
	return base.Resolve(target), nil
}

// Apply copies the profile defaults onto r. Flags applied afterwards win.
func (p *Profile) Apply(r *courier.Request) {
	if len(p.Headers) > 0 {
		r.SetHeaders(p.MergeHeaders(nil), true)
	}
	names := make([]string, 0, len(p.Cookies))
	for name := range p.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.AddCookie(name, p.Expand(p.Cookies[name]))
	}
	if p.Timeout > 0 {
		r.SetTimeout(p.Timeout.Get(0))
	}
	if p.ConnectTimeout > 0 {
		r.SetConnectTimeout(p.ConnectTimeout.Get(0))
	}
	if p.BufferSize > 0 {
		r.SetOption(courier.OptBufferSize, p.BufferSize)
	}
	if p.FollowRedirects != nil || p.MaxRedirects > 0 {
		follow := p.FollowRedirects == nil || *p.FollowRedirects
		r.SetFollowRedirects(follow, p.MaxRedirects)
	}
	if p.Proxy != nil {
		r.SetProxy(p.Proxy.Host, p.Proxy.Port, p.Expand(p.Proxy.Access))
	}
	if p.Auth != nil {
		r.SetAuth(p.Auth.Type, p.Expand(p.Auth.User), p.Expand(p.Auth.Pass))
	}
}
