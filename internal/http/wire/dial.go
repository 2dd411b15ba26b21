package wire

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/wesleyorama2/courier/internal/header"
	courier "github.com/wesleyorama2/courier/internal/http"
	"github.com/wesleyorama2/courier/internal/uri"
)

// dial connects to target, directly or through proxy. https targets behind a
// proxy are tunnelled with CONNECT before the TLS handshake.
func (p *Provider) dial(ctx context.Context, target *uri.URI, proxy courier.Proxy, connectTimeout time.Duration, timing *courier.TimingInfo) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: connectTimeout}
	secure := strings.EqualFold(target.Scheme, "https")
	addr := target.HostPort()

	start := time.Now()
	if proxy.Host == "" {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		timing.TCPConnectTime = time.Since(start)

		if secure {
			return p.handshake(ctx, conn, target.Host, timing)
		}
		return conn, nil
	}

	proxyAddr := proxy.URI().HostPort()
	conn, err := dialer.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return nil, courier.NewTransportError(courier.CodeCouldNotResolveProxy, err)
		}
		return nil, fmt.Errorf("dial proxy %s: %w", proxyAddr, err)
	}
	timing.TCPConnectTime = time.Since(start)

	if !secure {
		return conn, nil
	}
	if err := tunnel(ctx, conn, addr, proxy.Access); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p.handshake(ctx, conn, target.Host, timing)
}

// tunnel asks the proxy on conn to CONNECT to addr
func tunnel(ctx context.Context, conn net.Conn, addr, access string) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	var req strings.Builder
	fmt.Fprintf(&req, "CONNECT %s HTTP/1.1\r\nHost: %s\r\n", addr, addr)
	if access != "" {
		fmt.Fprintf(&req, "Proxy-Authorization: %s\r\n", basic(access))
	}
	req.WriteString("\r\n")
	if _, err := conn.Write([]byte(req.String())); err != nil {
		return fmt.Errorf("write CONNECT: %w", err)
	}

	// Unbuffered so no byte of the TLS handshake is consumed here
	tp := textproto.NewReader(bufio.NewReaderSize(&byteReader{conn: conn}, 16))
	head := header.New()
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return fmt.Errorf("read CONNECT response: %w", err)
		}
		head.ParseLine(line)
		if line == "" {
			break
		}
	}

	if head.Code != 200 {
		return courier.NewTransportError(courier.CodeCouldNotConnect,
			fmt.Errorf("proxy CONNECT %s failed: %d %s", addr, head.Code, head.Status))
	}
	return nil
}

// byteReader reads one byte at a time so that a bufio.Reader on top of it
// never reads past the current line
type byteReader struct {
	conn net.Conn
}

func (b *byteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return b.conn.Read(p[:1])
}

func (p *Provider) handshake(ctx context.Context, conn net.Conn, host string, timing *courier.TimingInfo) (net.Conn, error) {
	cfg := p.tlsConfig.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	cfg.NextProtos = []string{"http/1.1"}

	start := time.Now()
	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", host, err)
	}
	timing.TLSHandshakeTime = time.Since(start)
	return tc, nil
}
