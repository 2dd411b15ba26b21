package http

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wesleyorama2/courier/internal/event"
)

// Streaming events
const (
	EventStart    = "start"
	EventProgress = "progress"
	EventFinish   = "finish"
	EventFailure  = "failure"
)

var streamingEvents = []string{EventStart, EventProgress, EventFinish, EventFailure}

// Event is passed to streaming listeners. Chunk is set for progress events. Err
// is set for failure events caused by a transport error and nil when the
// transfer completed with a non-2xx status.
type Event struct {
	Name    string
	Request *Request
	Chunk   []byte
	Err     error
}

// Listener handles a streaming event
type Listener = event.Listener[*Event]

// Streaming is a Request whose body is delivered to listeners chunk by chunk
// instead of being buffered.
//
// start fires once, on the first body chunk; progress fires for every chunk;
// finish fires after a transfer completed without transport error, whatever the
// HTTP status; failure fires once when the transport fails or a listener aborts.
// Unless ProcessEvenFails is set, start and progress are not fired for non-2xx
// responses and their body is accumulated into the Response instead.
type Streaming struct {
	*Request

	emitter          *event.Emitter[*Event]
	bufferSize       int
	processEvenFails bool
}

// NewStreaming creates a streaming request dispatched through provider
func NewStreaming(provider Provider, options ...Option) *Streaming {
	return &Streaming{Request: NewRequest(provider, options...)}
}

func (s *Streaming) getEmitter() *event.Emitter[*Event] {
	if s.emitter == nil {
		s.emitter = event.New[*Event]()
	}
	return s.emitter
}

func checkEvent(name string) error {
	for _, e := range streamingEvents {
		if e == name {
			return nil
		}
	}
	return fmt.Errorf("%w %q: only %v are supported", ErrUnsupportedEvent, name, streamingEvents)
}

// On subscribes l to the named event
func (s *Streaming) On(name string, l Listener) (event.Handle, error) {
	if err := checkEvent(name); err != nil {
		return 0, err
	}
	if l == nil {
		return 0, fmt.Errorf("%w: nil listener", ErrContractViolation)
	}
	return s.getEmitter().Attach(name, l), nil
}

// Off removes the subscription identified by h and reports whether it existed
func (s *Streaming) Off(name string, h event.Handle) (bool, error) {
	if err := checkEvent(name); err != nil {
		return false, err
	}
	if s.emitter == nil {
		return false, nil
	}
	return s.emitter.Detach(name, h), nil
}

// BufferSize returns the read size hint, 0 when unset
func (s *Streaming) BufferSize() int { return s.bufferSize }

// SetBufferSize sets the read size hint forwarded to the provider
func (s *Streaming) SetBufferSize(size int) *Streaming {
	s.bufferSize = size
	return s
}

// ProcessEvenFails reports whether body events fire for non-2xx responses
func (s *Streaming) ProcessEvenFails() bool { return s.processEvenFails }

// SetProcessEvenFails makes start and progress fire whatever the HTTP status
func (s *Streaming) SetProcessEvenFails(process bool) *Streaming {
	s.processEvenFails = process
	return s
}

// Call builds the request and performs a streaming transfer. It blocks until the
// transfer ends; listeners run on the calling goroutine, interleaved with reads.
func (s *Streaming) Call(ctx context.Context) (*Response, error) {
	s.response = NewResponse()

	c, err := s.Build()
	if err != nil {
		return s.response, err
	}
	if s.bufferSize > 0 {
		c.Options[OptBufferSize] = s.bufferSize
	}

	sink := &streamSink{s: s, resp: s.response}
	if err := s.dispatch(ctx, c, sink); err != nil {
		s.fire(&Event{Name: EventFailure, Request: s.Request, Err: err})
		return s.response, err
	}

	// A completed transfer with a non-2xx status is a failure without an error
	if s.response.IsOk() {
		s.fire(&Event{Name: EventFinish, Request: s.Request})
	} else {
		s.fire(&Event{Name: EventFailure, Request: s.Request})
	}
	return s.response, nil
}

// fire delivers e and converts a listener panic into an error
func (s *Streaming) fire(e *Event) (res event.Result, err error) {
	if s.emitter == nil {
		return event.Continue, nil
	}
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("streaming listener panicked",
				zap.String("event", e.Name),
				zap.Any("panic", p),
			)
			res, err = event.Abort, fmt.Errorf("%w: %s listener panicked: %v", ErrAborted, e.Name, p)
		}
	}()
	return s.emitter.Fire(e.Name, e), nil
}

// streamSink fires body events as chunks arrive
type streamSink struct {
	s       *Streaming
	resp    *Response
	started bool
}

func (k *streamSink) Reset() {
	resetResponse(k.resp)
	k.started = false
}

func (k *streamSink) HeaderLine(line string) {
	headerLine(k.resp, line)
}

func (k *streamSink) deliver() bool {
	return k.resp.IsOk() || k.s.processEvenFails
}

func (k *streamSink) Write(chunk []byte) error {
	if !k.started {
		k.started = true
		if k.deliver() {
			if err := k.check(k.s.fire(&Event{Name: EventStart, Request: k.s.Request})); err != nil {
				return err
			}
		}
	}

	if !k.deliver() {
		k.resp.Body = append(k.resp.Body, chunk...)
		return nil
	}

	// Providers reuse their read buffer
	data := append([]byte(nil), chunk...)
	return k.check(k.s.fire(&Event{Name: EventProgress, Request: k.s.Request, Chunk: data}))
}

func (k *streamSink) check(res event.Result, err error) error {
	if err != nil {
		return err
	}
	if res == event.Abort {
		return fmt.Errorf("%w by listener", ErrAborted)
	}
	return nil
}
