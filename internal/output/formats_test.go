package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	courier "github.com/wesleyorama2/courier/internal/http"
)

func fixedNow(t *testing.T) {
	t.Helper()
	now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = time.Now })
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected OutputFormat
		wantErr  bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"junit", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.expected {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGetFormatter(t *testing.T) {
	if _, ok := GetFormatter(FormatJSON, false, true).(*JSONFormatter); !ok {
		t.Error("Expected JSONFormatter")
	}
	if _, ok := GetFormatter(FormatYAML, false, true).(*YAMLFormatter); !ok {
		t.Error("Expected YAMLFormatter")
	}
	if _, ok := GetFormatter(FormatText, false, true).(*Formatter); !ok {
		t.Error("Expected Formatter")
	}
}

func TestJSONFormatter_FormatRequest(t *testing.T) {
	fixedNow(t)
	output := (&JSONFormatter{}).FormatRequest(newCall())

	var data RequestData
	if err := json.Unmarshal([]byte(output), &data); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if data.Method != "POST" || data.URL != "https://api.example.com/users?page=1" {
		t.Errorf("Unexpected request line: %s %s", data.Method, data.URL)
	}
	if data.Headers["Accept"] != "application/json" {
		t.Errorf("Expected Accept header, got %v", data.Headers)
	}
	if body, ok := data.Body.(map[string]interface{}); !ok || body["name"] != "John Doe" {
		t.Errorf("Expected decoded body, got %v", data.Body)
	}
	if data.Timestamp != "2024-05-01T12:00:00Z" {
		t.Errorf("Unexpected timestamp %s", data.Timestamp)
	}
}

func TestJSONFormatter_FormatResponse(t *testing.T) {
	fixedNow(t)
	resp := newResponse()
	resp.Data = "parsed"

	output := (&JSONFormatter{Pretty: true, Verbose: true}).FormatResponse(resp)

	var data ResponseData
	if err := json.Unmarshal([]byte(output), &data); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if data.StatusCode != 200 || data.Status != "OK" {
		t.Errorf("Unexpected status %d %s", data.StatusCode, data.Status)
	}
	if data.ContentLength != 16 {
		t.Errorf("Expected content length 16, got %d", data.ContentLength)
	}
	if data.ResponseTime != 150 {
		t.Errorf("Expected response time 150, got %d", data.ResponseTime)
	}
	if data.Timing == nil || data.Timing.DNSLookup != 10 {
		t.Errorf("Expected timing details, got %+v", data.Timing)
	}
	if data.Data != "parsed" {
		t.Errorf("Expected parsed data, got %v", data.Data)
	}
	if !strings.Contains(output, "\n  \"statusCode\": 200") {
		t.Errorf("Expected indented output, got: %s", output)
	}
}

func TestJSONFormatter_TextBodyAndError(t *testing.T) {
	resp := courier.NewResponse()
	resp.Body = []byte("plain text")
	resp.ErrorCode = courier.CodeTimeout
	resp.Error = "timed out"

	var data ResponseData
	if err := json.Unmarshal([]byte((&JSONFormatter{}).FormatResponse(resp)), &data); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if data.Body != "plain text" {
		t.Errorf("Expected string body, got %v", data.Body)
	}
	if data.ErrorCode != courier.CodeTimeout || data.Error != "timed out" {
		t.Errorf("Expected transport error, got %d %s", data.ErrorCode, data.Error)
	}
	if data.Timing != nil {
		t.Errorf("Expected no timing without verbose")
	}
}

func TestYAMLFormatter(t *testing.T) {
	fixedNow(t)
	resp := newResponse()
	resp.Code = 404
	resp.Status = "Not Found"

	output := (&YAMLFormatter{}).FormatResponse(resp)

	var data map[string]interface{}
	if err := yaml.Unmarshal([]byte(output), &data); err != nil {
		t.Fatalf("Output is not valid YAML: %v", err)
	}
	if data["statusCode"] != 404 {
		t.Errorf("Expected statusCode 404, got %v", data["statusCode"])
	}
	if !strings.Contains(output, "status: Not Found") {
		t.Errorf("Expected status, got: %s", output)
	}

	request := (&YAMLFormatter{}).FormatRequest(newCall())
	if !strings.Contains(request, "method: POST") {
		t.Errorf("Expected method, got: %s", request)
	}
}
