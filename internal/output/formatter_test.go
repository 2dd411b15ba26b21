package output

import (
	"strings"
	"testing"
	"time"

	"github.com/wesleyorama2/courier/internal/header"
	courier "github.com/wesleyorama2/courier/internal/http"
	"github.com/wesleyorama2/courier/internal/uri"
)

func newCall() *courier.Call {
	return &courier.Call{
		Method: courier.MethodPost,
		URI:    uri.MustParse("https://api.example.com/users?page=1"),
		Header: header.New().Set("Accept", "application/json").Set("Authorization", "Bearer token123"),
		Options: courier.Options{
			courier.OptBody: []byte(`{"name":"John Doe"}`),
		},
	}
}

func newResponse() *courier.Response {
	resp := courier.NewResponse()
	resp.Code = 200
	resp.Status = "OK"
	resp.Header.Set("Content-Type", "application/json").Set("Content-Length", "16")
	resp.Body = []byte(`{"id":1,"ok":true}`)
	resp.Info.Timing.TotalTime = 150 * time.Millisecond
	resp.Info.Timing.DNSLookupTime = 10 * time.Millisecond
	return resp
}

func TestFormatter_FormatRequest(t *testing.T) {
	formatter := NewFormatter(true, true)
	output := formatter.FormatRequest(newCall())

	expectedParts := []string{
		"REQUEST: POST https://api.example.com/users?page=1",
		"Headers:",
		"Accept: application/json",
		"Authorization: Bearer token123",
		"Body: {",
		`"name": "John Doe"`,
	}
	for _, part := range expectedParts {
		if !strings.Contains(output, part) {
			t.Errorf("Expected output to contain '%s', got: %s", part, output)
		}
	}
}

func TestFormatter_FormatRequestWithoutHeaders(t *testing.T) {
	formatter := NewFormatter(false, true)
	output := formatter.FormatRequest(&courier.Call{
		Method:  courier.MethodGet,
		URI:     uri.MustParse("http://example.com/"),
		Header:  header.New(),
		Options: courier.Options{},
	})

	if strings.Contains(output, "Headers:") || strings.Contains(output, "Body:") {
		t.Errorf("Expected only the request line, got: %s", output)
	}
}

func TestFormatter_FormatResponse(t *testing.T) {
	formatter := NewFormatter(false, true)
	output := formatter.FormatResponse(newResponse())

	if !strings.Contains(output, "RESPONSE: 200 OK (150ms)") {
		t.Errorf("Expected status line, got: %s", output)
	}
	if strings.Contains(output, "Timing:") || strings.Contains(output, "Headers:") {
		t.Errorf("Expected no details without verbose, got: %s", output)
	}
	if !strings.Contains(output, `"ok": true`) {
		t.Errorf("Expected pretty-printed body, got: %s", output)
	}
}

func TestFormatter_FormatResponseVerbose(t *testing.T) {
	resp := newResponse()
	resp.Info.Redirects = 2
	resp.Info.EffectiveURL = "https://api.example.com/final"

	output := NewFormatter(true, true).FormatResponse(resp)

	expectedParts := []string{
		"Timing:",
		"DNS Lookup:         10ms",
		"Total:              150ms",
		"Redirects: 2 (https://api.example.com/final)",
		"Content-Type: application/json",
	}
	for _, part := range expectedParts {
		if !strings.Contains(output, part) {
			t.Errorf("Expected output to contain '%s', got: %s", part, output)
		}
	}
}

func TestFormatter_FormatResponseError(t *testing.T) {
	resp := courier.NewResponse()
	resp.ErrorCode = courier.CodeCouldNotConnect
	resp.Error = "connection refused"

	output := NewFormatter(false, true).FormatResponse(resp)
	if !strings.Contains(output, "✗ ERROR 7: connection refused") {
		t.Errorf("Expected transport error, got: %s", output)
	}
	if strings.Contains(output, "RESPONSE") {
		t.Errorf("Expected no status line, got: %s", output)
	}
}

func TestFormatJSONString(t *testing.T) {
	if got := formatJSONString("not json"); got != "not json" {
		t.Errorf("Expected input unchanged, got %q", got)
	}
	if got := formatJSONString(`{"a":1}`); got != "{\n    \"a\": 1\n  }" {
		t.Errorf("Unexpected indentation: %q", got)
	}
}

func TestFormatter_FormatResponseData(t *testing.T) {
	resp := newResponse()
	resp.Data = map[string]interface{}{"id": 1}

	output := NewFormatter(false, true).FormatResponse(resp)
	if !strings.Contains(output, "  Data:\n  {\n    \"id\": 1\n  }") {
		t.Errorf("Expected parsed data, got: %s", output)
	}
}
