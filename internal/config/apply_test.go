package config

import (
	"testing"
	"time"

	courier "github.com/wesleyorama2/courier/internal/http"
	"github.com/wesleyorama2/courier/internal/http/engine"
	"github.com/wesleyorama2/courier/internal/http/wire"
)

func TestApply(t *testing.T) {
	follow := false
	profile := &Profile{
		Headers:         map[string]string{"X-Tenant": "{{tenant}}"},
		Cookies:         map[string]string{"b": "2", "a": "1"},
		Vars:            map[string]string{"tenant": "acme", "pw": "secret"},
		Timeout:         Duration(3 * time.Second),
		ConnectTimeout:  Duration(time.Second),
		BufferSize:      512,
		FollowRedirects: &follow,
		Proxy:           &Proxy{Host: "proxy", Port: 3128, Access: "u:{{pw}}"},
		Auth:            &Auth{Type: "basic", User: "admin", Pass: "{{pw}}"},
	}

	r := courier.NewRequest(nil)
	profile.Apply(r)

	if got := r.Header().Get("x-tenant", ""); got != "acme" {
		t.Errorf("Expected header acme, got %q", got)
	}
	if got := r.CookieHeader(); got != "a=1; b=2" {
		t.Errorf("Expected sorted cookies, got %q", got)
	}

	opts := r.Options()
	if got := opts.Duration(courier.OptTimeout, 0); got != 3*time.Second {
		t.Errorf("Expected timeout 3s, got %s", got)
	}
	if got := opts.Duration(courier.OptConnectTimeout, 0); got != time.Second {
		t.Errorf("Expected connect timeout 1s, got %s", got)
	}
	if got := opts.Int(courier.OptBufferSize, 0); got != 512 {
		t.Errorf("Expected buffer size 512, got %d", got)
	}
	if opts.Bool(courier.OptFollowLocation, true) {
		t.Error("Expected redirects disabled")
	}

	if proxy := r.Proxy(); proxy.Host != "proxy" || proxy.Access != "u:secret" {
		t.Errorf("Unexpected proxy %+v", proxy)
	}
	if auth := r.Auth(); auth.Type != courier.AuthBasic || auth.Pass != "secret" {
		t.Errorf("Unexpected auth %+v", auth)
	}
}

func TestApply_Empty(t *testing.T) {
	r := courier.NewRequest(nil)
	(&Profile{}).Apply(r)

	if len(r.Options()) != 0 {
		t.Errorf("Expected no options, got %v", r.Options())
	}
	if r.Header().Len() != 0 {
		t.Errorf("Expected no headers, got %v", r.Header().Build())
	}
}

func TestResolveURL(t *testing.T) {
	profile := &Profile{
		BaseURL: "https://api.example.com/v1/",
		Vars:    map[string]string{"id": "9"},
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"users/{{id}}", "https://api.example.com/v1/users/9"},
		{"/health", "https://api.example.com/health"},
		{"http://other.local/x", "http://other.local/x"},
	}
	for _, tt := range tests {
		got, err := profile.ResolveURL(tt.input)
		if err != nil {
			t.Fatalf("Unexpected error for %q: %v", tt.input, err)
		}
		if got.Build() != tt.expected {
			t.Errorf("ResolveURL(%q) = %q, want %q", tt.input, got.Build(), tt.expected)
		}
	}

	noBase := &Profile{}
	got, err := noBase.ResolveURL("http://example.com")
	if err != nil || got.Build() != "http://example.com" {
		t.Errorf("Expected URL unchanged, got %v, %v", got, err)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		expected string
	}{
		{"", engine.Name},
		{"engine", engine.Name},
		{"WIRE", wire.Name},
	}
	for _, tt := range tests {
		provider, err := (&Profile{Provider: tt.provider, Insecure: true}).NewProvider()
		if err != nil {
			t.Fatalf("Unexpected error for %q: %v", tt.provider, err)
		}
		if provider.Name() != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, provider.Name())
		}
	}

	if _, err := (&Profile{Provider: "curl"}).NewProvider(); err == nil {
		t.Error("Expected error for unknown provider")
	}
}
