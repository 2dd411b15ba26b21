package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	courier "github.com/wesleyorama2/courier/internal/http"
)

// Formatter is responsible for formatting calls and responses in text format
type Formatter struct {
	Verbose bool
	NoColor bool

	scheme *ColorScheme
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(verbose, noColor bool) *Formatter {
	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}
	return &Formatter{Verbose: verbose, NoColor: noColor, scheme: scheme}
}

// FormatRequest formats a built call for display
func (f *Formatter) FormatRequest(c *courier.Call) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "▶ REQUEST: %s %s\n", f.scheme.Method.Sprint(c.Method), f.scheme.URL.Sprint(c.URI.Build()))

	if lines := c.Header.Build(); f.Verbose || len(lines) > 0 {
		buf.WriteString("  Headers:\n")
		for _, line := range lines {
			f.writeHeaderLine(&buf, line)
		}
	}

	if body := c.Options.Bytes(courier.OptBody); len(body) > 0 {
		buf.WriteString("  Body: ")
		buf.WriteString(formatJSONString(string(body)))
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatResponse formats a response for display. A transport failure is
// reported instead of the status line.
func (f *Formatter) FormatResponse(resp *courier.Response) string {
	var buf strings.Builder

	if resp.IsError() {
		fmt.Fprintf(&buf, "%s ERROR %d: %s\n", ErrorIcon(f.NoColor), resp.ErrorCode, f.scheme.Error.Sprint(resp.Error))
		return buf.String()
	}

	status := fmt.Sprintf("%d %s", resp.Code, resp.Status)
	fmt.Fprintf(&buf, "◀ RESPONSE: %s (%dms)\n", f.scheme.Status(resp.Code).Sprint(status), resp.GetResponseTimeMillis())

	if f.Verbose {
		timing := resp.Info.Timing
		buf.WriteString("  Timing:\n")
		fmt.Fprintf(&buf, "    DNS Lookup:         %dms\n", timing.DNSLookupTime.Milliseconds())
		fmt.Fprintf(&buf, "    TCP Connection:     %dms\n", timing.TCPConnectTime.Milliseconds())
		fmt.Fprintf(&buf, "    TLS Handshake:      %dms\n", timing.TLSHandshakeTime.Milliseconds())
		fmt.Fprintf(&buf, "    Time to First Byte: %dms\n", timing.TimeToFirstByte.Milliseconds())
		fmt.Fprintf(&buf, "    Content Transfer:   %dms\n", timing.ContentTransferTime.Milliseconds())
		fmt.Fprintf(&buf, "    Total:              %dms\n", timing.TotalTime.Milliseconds())
		if resp.Info.Redirects > 0 {
			fmt.Fprintf(&buf, "  Redirects: %d (%s)\n", resp.Info.Redirects, resp.Info.EffectiveURL)
		}

		buf.WriteString("  Headers:\n")
		for _, line := range resp.Header.Build() {
			f.writeHeaderLine(&buf, line)
		}
	}

	if len(resp.Body) > 0 {
		buf.WriteString("  Body:\n")
		buf.WriteString(formatJSONString(resp.BodyString()))
		buf.WriteString("\n")
	}

	if resp.Data != nil {
		buf.WriteString("  Data:\n  ")
		if data, err := json.MarshalIndent(resp.Data, "  ", "  "); err == nil {
			buf.Write(data)
		} else {
			fmt.Fprintf(&buf, "%v", resp.Data)
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

func (f *Formatter) writeHeaderLine(buf *strings.Builder, line string) {
	name, value, _ := strings.Cut(line, ": ")
	fmt.Fprintf(buf, "    %s: %s\n", f.scheme.HeaderKey.Sprint(name), f.scheme.HeaderValue.Sprint(value))
}

// formatJSONString attempts to pretty-print a JSON string
func formatJSONString(s string) string {
	var prettyJSON bytes.Buffer
	err := json.Indent(&prettyJSON, []byte(s), "  ", "  ")
	if err != nil {
		return s
	}
	return prettyJSON.String()
}
