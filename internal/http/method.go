package http

import "strings"

// HTTP methods
const (
	MethodGet     = "GET"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodHead    = "HEAD"
	MethodOptions = "OPTIONS"
	MethodTrace   = "TRACE"
	MethodConnect = "CONNECT"
)

// HasBody reports whether params travel in the request body for method.
// POST, PUT and PATCH carry a body; every other method encodes params in the query.
func HasBody(method string) bool {
	switch strings.ToUpper(method) {
	case MethodPost, MethodPut, MethodPatch:
		return true
	}
	return false
}
