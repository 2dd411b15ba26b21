package engine

import (
	"fmt"
	"strings"

	courier "github.com/wesleyorama2/courier/internal/http"
)

// OptAuth carries an Auth value in the call options
const OptAuth = "engine.auth"

// Auth schemes understood by the engine
const (
	// SchemeBasic sends credentials preemptively
	SchemeBasic = "basic"
	// SchemeAny sends credentials only after the server challenges with Basic
	SchemeAny = "any"
)

// Auth is a component that hands credentials to the engine instead of setting
// an Authorization header during the build pipeline.
type Auth struct {
	Scheme string
	User   string
	Pass   string
}

// NewAuth creates an engine auth component. Schemes other than basic and any
// are rejected with ErrContractViolation.
func NewAuth(scheme, user, pass string) (*Auth, error) {
	scheme = strings.ToLower(scheme)
	switch scheme {
	case SchemeBasic, SchemeAny:
	default:
		return nil, fmt.Errorf("%w: engine auth scheme %q, want %q or %q",
			courier.ErrContractViolation, scheme, SchemeBasic, SchemeAny)
	}
	return &Auth{Scheme: scheme, User: user, Pass: pass}, nil
}

// Build implements courier.Component
func (a *Auth) Build(c *courier.Call) {
	c.Options[OptAuth] = *a
}
