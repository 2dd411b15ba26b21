package output

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/courier/internal/header"
	courier "github.com/wesleyorama2/courier/internal/http"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs in JSON format
	FormatJSON OutputFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates a format name
func ParseFormat(name string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(name)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q, must be one of: text, json, yaml", name)
}

// FormatProvider is an interface for different output formatters
type FormatProvider interface {
	FormatRequest(c *courier.Call) string
	FormatResponse(resp *courier.Response) string
}

// now is replaced in tests
var now = time.Now

// RequestData represents the structured data of a built call
type RequestData struct {
	Method    string            `json:"method" yaml:"method"`
	URL       string            `json:"url" yaml:"url"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body      interface{}       `json:"body,omitempty" yaml:"body,omitempty"`
	Timestamp string            `json:"timestamp" yaml:"timestamp"`
}

// TimingData represents detailed timing information for a transfer
type TimingData struct {
	DNSLookup       int64 `json:"dnsLookupMs,omitempty" yaml:"dnsLookupMs,omitempty"`
	TCPConnection   int64 `json:"tcpConnectionMs,omitempty" yaml:"tcpConnectionMs,omitempty"`
	TLSHandshake    int64 `json:"tlsHandshakeMs,omitempty" yaml:"tlsHandshakeMs,omitempty"`
	TimeToFirstByte int64 `json:"timeToFirstByteMs,omitempty" yaml:"timeToFirstByteMs,omitempty"`
	ContentTransfer int64 `json:"contentTransferMs,omitempty" yaml:"contentTransferMs,omitempty"`
	Total           int64 `json:"totalMs" yaml:"totalMs"`
}

// ResponseData represents the structured data of a response
type ResponseData struct {
	StatusCode    int               `json:"statusCode" yaml:"statusCode"`
	Status        string            `json:"status" yaml:"status"`
	Headers       map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body          interface{}       `json:"body,omitempty" yaml:"body,omitempty"`
	Data          interface{}       `json:"data,omitempty" yaml:"data,omitempty"`
	ErrorCode     int               `json:"errorCode,omitempty" yaml:"errorCode,omitempty"`
	Error         string            `json:"error,omitempty" yaml:"error,omitempty"`
	EffectiveURL  string            `json:"effectiveUrl,omitempty" yaml:"effectiveUrl,omitempty"`
	Redirects     int               `json:"redirects,omitempty" yaml:"redirects,omitempty"`
	ResponseTime  int64             `json:"responseTimeMs" yaml:"responseTimeMs"`
	Timing        *TimingData       `json:"timing,omitempty" yaml:"timing,omitempty"`
	Timestamp     string            `json:"timestamp" yaml:"timestamp"`
	ContentLength int64             `json:"contentLength,omitempty" yaml:"contentLength,omitempty"`
}

// NewRequestData converts a call to its structured form
func NewRequestData(c *courier.Call) RequestData {
	data := RequestData{
		Method:    c.Method,
		URL:       c.URI.Build(),
		Headers:   flattenHeader(c.Header),
		Timestamp: now().Format(time.RFC3339),
	}
	if body := c.Options.Bytes(courier.OptBody); len(body) > 0 {
		data.Body = decodeBody(body)
	}
	return data
}

// NewResponseData converts a response to its structured form. Timing
// details are included when verbose is set.
func NewResponseData(resp *courier.Response, verbose bool) ResponseData {
	data := ResponseData{
		StatusCode:   resp.Code,
		Status:       resp.Status,
		Headers:      flattenHeader(resp.Header),
		Data:         resp.Data,
		ErrorCode:    resp.ErrorCode,
		Error:        resp.Error,
		EffectiveURL: resp.Info.EffectiveURL,
		Redirects:    resp.Info.Redirects,
		ResponseTime: resp.GetResponseTimeMillis(),
		Timestamp:    now().Format(time.RFC3339),
	}
	if len(resp.Body) > 0 {
		data.Body = decodeBody(resp.Body)
	}

	if verbose {
		timing := resp.Info.Timing
		data.Timing = &TimingData{
			DNSLookup:       timing.DNSLookupTime.Milliseconds(),
			TCPConnection:   timing.TCPConnectTime.Milliseconds(),
			TLSHandshake:    timing.TLSHandshakeTime.Milliseconds(),
			TimeToFirstByte: timing.TimeToFirstByte.Milliseconds(),
			ContentTransfer: timing.ContentTransferTime.Milliseconds(),
			Total:           timing.TotalTime.Milliseconds(),
		}
	}

	if raw := resp.GetHeader("Content-Length"); raw != "" {
		data.ContentLength, _ = strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	}
	return data
}

// flattenHeader joins repeated header values with ", "
func flattenHeader(h *header.Header) map[string]string {
	if h == nil || h.Len() == 0 {
		return nil
	}
	result := make(map[string]string, h.Len())
	for name, values := range h.All() {
		result[name] = strings.Join(values, ", ")
	}
	return result
}

// decodeBody returns body as a JSON value when it parses, otherwise as a string
func decodeBody(body []byte) interface{} {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Verbose bool
	Pretty  bool
}

// FormatRequest formats a call as JSON
func (f *JSONFormatter) FormatRequest(c *courier.Call) string {
	return f.marshal(NewRequestData(c), "request")
}

// FormatResponse formats a response as JSON
func (f *JSONFormatter) FormatResponse(resp *courier.Response) string {
	return f.marshal(NewResponseData(resp, f.Verbose), "response")
}

func (f *JSONFormatter) marshal(v interface{}, what string) string {
	var output []byte
	var err error
	if f.Pretty {
		output, err = json.MarshalIndent(v, "", "  ")
	} else {
		output, err = json.Marshal(v)
	}

	if err != nil {
		return fmt.Sprintf(`{"error":"Failed to marshal %s: %s"}`, what, err)
	}
	return string(output)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	Verbose bool
}

// FormatRequest formats a call as YAML
func (f *YAMLFormatter) FormatRequest(c *courier.Call) string {
	return f.marshal(NewRequestData(c), "request")
}

// FormatResponse formats a response as YAML
func (f *YAMLFormatter) FormatResponse(resp *courier.Response) string {
	return f.marshal(NewResponseData(resp, f.Verbose), "response")
}

func (f *YAMLFormatter) marshal(v interface{}, what string) string {
	output, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: Failed to marshal %s: %s", what, err)
	}
	return string(output)
}

// GetFormatter returns the formatter for format, defaulting to text
func GetFormatter(format OutputFormat, verbose bool, noColor bool) FormatProvider {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Verbose: verbose, Pretty: true}
	case FormatYAML:
		return &YAMLFormatter{Verbose: verbose}
	default:
		return NewFormatter(verbose, noColor)
	}
}
