package wire

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http/httputil"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/wesleyorama2/courier/internal/header"
	courier "github.com/wesleyorama2/courier/internal/http"
)

// roundTrip performs one hop of ex on a fresh connection. It returns the
// Location to follow when the response is a redirect and follow is set.
func (p *Provider) roundTrip(ctx context.Context, ex *exchange, follow bool) (location string, err error) {
	target := ex.target
	if !supported(target.Scheme) {
		return "", courier.NewTransportError(courier.CodeUnsupportedProtocol,
			fmt.Errorf("unsupported protocol scheme %q", target.Scheme))
	}
	if target.Host == "" {
		return "", courier.NewTransportError(courier.CodeMalformedURL,
			fmt.Errorf("no host in %q", target.Build()))
	}

	opts := ex.call.Options
	proxy, _ := opts[courier.OptProxy].(courier.Proxy)
	timing := &ex.info.Timing

	conn, err := p.dial(ctx, target, proxy, opts.ConnectTimeout(), timing)
	if err != nil {
		return "", err
	}

	// The connection is scoped to this hop; cancelling ctx unblocks any I/O on it
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		if stop() {
			err = multierr.Append(err, conn.Close())
		}
	}()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	absolute := proxy.Host != "" && !strings.EqualFold(target.Scheme, "https")
	if err := writeRequest(conn, ex, proxy, absolute); err != nil {
		return "", fmt.Errorf("write request: %w", err)
	}

	br := bufio.NewReader(conn)
	sent := time.Now()
	head, err := readHead(textproto.NewReader(br), ex.sink, func() {
		if timing.TimeToFirstByte == 0 {
			timing.TimeToFirstByte = time.Since(sent)
		}
	})
	if err != nil {
		return "", err
	}
	ex.status = head.Code

	if follow && head.Code >= 300 && head.Code < 400 {
		if loc := head.Get("Location", ""); loc != "" {
			return loc, nil
		}
	}

	if !hasResponseBody(ex.method, head.Code) {
		return "", nil
	}

	body, err := bodyReader(br, head)
	if err != nil {
		return "", err
	}

	transferStart := time.Now()
	n, err := courier.CopyBody(body, ex.sink, opts.Int(courier.OptBufferSize, courier.DefaultBufferSize))
	ex.info.BytesRead += n
	timing.ContentTransferTime = time.Since(transferStart)
	return "", err
}

// writeRequest sends the request line, headers and body. The connection is
// always marked Connection: close.
func writeRequest(w io.Writer, ex *exchange, proxy courier.Proxy, absolute bool) error {
	target := ex.target
	opts := ex.call.Options

	requestTarget := target.RequestTarget()
	if absolute {
		abs := target.Clone()
		abs.User, abs.Pass, abs.Fragment = "", "", ""
		if abs.Path == "" {
			abs.Path = "/"
		}
		requestTarget = abs.Build()
	}

	hdr := header.New()
	hdr.Set("Host", target.Authority())
	for _, line := range opts.Strings(courier.OptHeader) {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name, value = strings.TrimSpace(name), sanitize(strings.TrimSpace(value))
		switch strings.ToLower(name) {
		case "content-length", "connection", "transfer-encoding":
		case "host":
			hdr.Set(name, value)
		default:
			hdr.Add(name, value)
		}
	}

	if cookie := opts.String(courier.OptCookie, ""); cookie != "" {
		hdr.Set("Cookie", sanitize(cookie))
	}
	if target.User != "" && !hdr.Has("Authorization") {
		hdr.Set("Authorization", basic(target.User+":"+target.Pass))
	}
	if absolute && proxy.Access != "" {
		hdr.Set("Proxy-Authorization", basic(proxy.Access))
	}
	if ex.body != nil || courier.HasBody(ex.method) {
		hdr.Set("Content-Length", strconv.Itoa(len(ex.body)))
	}
	hdr.Set("Connection", "close")

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s %s HTTP/1.1\r\n", ex.method, requestTarget)
	for _, line := range hdr.Build() {
		bw.WriteString(line)
		bw.WriteString("\r\n")
	}
	bw.WriteString("\r\n")
	bw.Write(ex.body)
	return bw.Flush()
}

// readHead feeds header lines to sink as they are read, skipping interim 1xx
// blocks. The sink is reset before every block.
func readHead(tp *textproto.Reader, sink courier.Sink, firstByte func()) (*header.Header, error) {
	for {
		sink.Reset()
		head := header.New()

		for first := true; ; first = false {
			line, err := tp.ReadLine()
			if err != nil {
				return nil, fmt.Errorf("read response head: %w", err)
			}
			if first {
				firstByte()
			}
			sink.HeaderLine(line)
			head.ParseLine(line)
			if line == "" {
				break
			}
		}

		if head.Code == 0 {
			return nil, courier.NewTransportError(courier.CodeRecvError,
				fmt.Errorf("malformed response: no status line"))
		}
		if head.Code >= 100 && head.Code < 200 && head.Code != 101 {
			continue
		}
		return head, nil
	}
}

func hasResponseBody(method string, code int) bool {
	if method == courier.MethodHead {
		return false
	}
	return code >= 200 && code != 204 && code != 304
}

// bodyReader frames the body: chunked transfer coding, then Content-Length,
// else everything up to connection close
func bodyReader(br *bufio.Reader, head *header.Header) (io.Reader, error) {
	if strings.Contains(strings.ToLower(head.Get("Transfer-Encoding", "")), "chunked") {
		return httputil.NewChunkedReader(br), nil
	}

	if raw := head.Get("Content-Length", ""); raw != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || n < 0 {
			return nil, courier.NewTransportError(courier.CodeRecvError,
				fmt.Errorf("invalid Content-Length %q", raw))
		}
		return &exactReader{r: br, remain: n}, nil
	}

	return br, nil
}

// exactReader reads exactly remain bytes and reports a short body as
// io.ErrUnexpectedEOF
type exactReader struct {
	r      io.Reader
	remain int64
}

func (e *exactReader) Read(p []byte) (int, error) {
	if e.remain <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > e.remain {
		p = p[:e.remain]
	}
	n, err := e.r.Read(p)
	e.remain -= int64(n)
	if err == io.EOF && e.remain > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

func basic(credentials string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

// sanitize drops CR, LF and other control characters except HTAB
func sanitize(v string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, v)
}
