package config

import (
	"fmt"
	"strings"

	courier "github.com/wesleyorama2/courier/internal/http"
	"github.com/wesleyorama2/courier/internal/http/engine"
	"github.com/wesleyorama2/courier/internal/http/wire"
	"github.com/wesleyorama2/courier/internal/uri"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

// Error returns the error message
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidateProfile validates a profile and returns every problem found
func ValidateProfile(p *Profile) []ValidationError {
	var errors []ValidationError

	switch strings.ToLower(p.Provider) {
	case "", engine.Name, wire.Name:
	default:
		errors = append(errors, ValidationError{
			Path:    "provider",
			Message: fmt.Sprintf("unknown provider %q, must be one of: %s, %s", p.Provider, engine.Name, wire.Name),
		})
	}

	if p.BaseURL != "" {
		base, err := uri.Parse(p.Expand(p.BaseURL))
		switch {
		case err != nil:
			errors = append(errors, ValidationError{Path: "baseUrl", Message: err.Error()})
		case base.Scheme == "" || base.Host == "":
			errors = append(errors, ValidationError{Path: "baseUrl", Message: "must be an absolute URL"})
		}
	}

	if p.Timeout < 0 {
		errors = append(errors, ValidationError{Path: "timeout", Message: "cannot be negative"})
	}
	if p.ConnectTimeout < 0 {
		errors = append(errors, ValidationError{Path: "connectTimeout", Message: "cannot be negative"})
	}
	if p.BufferSize < 0 {
		errors = append(errors, ValidationError{Path: "bufferSize", Message: "cannot be negative"})
	}
	if p.MaxRedirects < 0 {
		errors = append(errors, ValidationError{Path: "maxRedirects", Message: "cannot be negative"})
	}

	if p.Proxy != nil {
		if p.Proxy.Host == "" {
			errors = append(errors, ValidationError{Path: "proxy.host", Message: "host is required"})
		}
		if p.Proxy.Port < 0 || p.Proxy.Port > 65535 {
			errors = append(errors, ValidationError{Path: "proxy.port", Message: fmt.Sprintf("invalid port: %d", p.Proxy.Port)})
		}
	}

	if p.Auth != nil {
		if !strings.EqualFold(p.Auth.Type, courier.AuthBasic) {
			errors = append(errors, ValidationError{Path: "auth.type", Message: fmt.Sprintf("unsupported auth type: %s", p.Auth.Type)})
		}
		if p.Auth.User == "" {
			errors = append(errors, ValidationError{Path: "auth.user", Message: "user is required"})
		}
	}

	return errors
}
