package http

import nethttp "net/http"

// Status codes not registered with IANA but seen in the wild
const (
	StatusBandwidthLimitExceeded = 509
)

// StatusText returns the reason phrase for code, or "" when unknown
func StatusText(code int) string {
	switch code {
	case StatusBandwidthLimitExceeded:
		return "Bandwidth Limit Exceeded"
	}
	return nethttp.StatusText(code)
}

// StatusClass returns the hundreds digit of code, e.g. 4 for 404
func StatusClass(code int) int {
	return code / 100
}
