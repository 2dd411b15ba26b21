package http

import "encoding/base64"

// AuthBasic is the auth type that produces an Authorization: Basic header
const AuthBasic = "basic"

// Component decorates a Call before dispatch, typically by setting headers or
// provider options.
type Component interface {
	Build(c *Call)
}

// ComponentFunc adapts a function to the Component interface
type ComponentFunc func(c *Call)

// Build implements Component
func (f ComponentFunc) Build(c *Call) { f(c) }

// BasicAuth sets an Authorization header with base64(user:pass)
type BasicAuth struct {
	User string
	Pass string
}

// NewBasicAuth creates a BasicAuth component
func NewBasicAuth(user, pass string) *BasicAuth {
	return &BasicAuth{User: user, Pass: pass}
}

// Build implements Component
func (a *BasicAuth) Build(c *Call) {
	c.Header.Set("Authorization", basicAuthorization(a.User, a.Pass))
}

func basicAuthorization(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// Parser turns a raw response body into a value
type Parser interface {
	Parse(raw []byte) (interface{}, error)
}

// ParserFunc adapts a function to the Parser interface
type ParserFunc func(raw []byte) (interface{}, error)

// Parse implements Parser
func (f ParserFunc) Parse(raw []byte) (interface{}, error) { return f(raw) }
