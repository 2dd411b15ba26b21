package http

import (
	"context"
	"errors"
)

// fakeProvider replays a canned response and records the Call it received
type fakeProvider struct {
	lines  []string
	chunks []string
	// failAt makes Execute fail before delivering chunk failAt (1-based)
	failAt int
	err    error

	calls    int
	last     *Call
	writeErr error
	written  int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Execute(ctx context.Context, c *Call, sink Sink) (TransferInfo, error) {
	p.calls++
	p.last = c

	sink.Reset()
	for _, line := range p.lines {
		sink.HeaderLine(line)
	}

	var info TransferInfo
	for i, chunk := range p.chunks {
		if p.failAt == i+1 {
			return info, p.err
		}
		if err := sink.Write([]byte(chunk)); err != nil {
			p.writeErr = err
			return info, NewTransportError(CodeAborted, err)
		}
		p.written++
		info.BytesRead += int64(len(chunk))
	}
	if p.failAt > len(p.chunks) {
		return info, p.err
	}
	return info, nil
}

func okProvider(chunks ...string) *fakeProvider {
	return &fakeProvider{
		lines:  []string{"HTTP/1.1 200 OK", "Content-Type: text/plain", ""},
		chunks: chunks,
	}
}

var errReset = errors.New("connection reset by peer")
