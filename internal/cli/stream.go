package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/courier/internal/event"
	courier "github.com/wesleyorama2/courier/internal/http"
)

// streamOptions are the stream command flags
type streamOptions struct {
	requestOptions
	method           string
	bufferSize       int
	processEvenFails bool
	maxBytes         int64
}

func newStreamCmd(g *globalOptions) *cobra.Command {
	o := &streamOptions{}

	cmd := &cobra.Command{
		Use:   "stream URL",
		Short: "Stream a response body to stdout as it arrives",
		Long: `Stream sends a request and writes every body chunk to stdout as soon as it
is read. Bodies of non-2xx responses are buffered and printed as a regular
response unless --process-even-fails is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, g)
			if err != nil {
				return err
			}
			defer s.logger.Sync()

			target, err := s.profile.ResolveURL(args[0])
			if err != nil {
				return err
			}

			st := courier.NewStreaming(s.provider,
				courier.WithMethod(strings.ToUpper(o.method)),
				courier.WithURI(target),
				courier.WithLogger(s.logger),
			)
			s.profile.Apply(st.Request)
			if err := o.apply(cmd, st.Request); err != nil {
				return err
			}
			if o.bufferSize > 0 {
				st.SetBufferSize(o.bufferSize)
			}
			st.SetProcessEvenFails(o.processEvenFails)

			progress, err := s.subscribe(st, o.maxBytes)
			if err != nil {
				return err
			}

			resp, err := st.Call(cmd.Context())
			if err != nil {
				if progress.limited && errors.Is(err, courier.ErrAborted) {
					return nil
				}
				return err
			}
			if !resp.IsOk() && !o.processEvenFails {
				fmt.Fprint(s.out, s.formatter.FormatResponse(resp))
			}
			return nil
		},
	}

	o.register(cmd)
	cmd.Flags().StringVarP(&o.method, "method", "X", courier.MethodGet, "HTTP method")
	cmd.Flags().IntVar(&o.bufferSize, "buffer-size", 0, fmt.Sprintf("Read size per chunk in bytes (default %d)", courier.DefaultBufferSize))
	cmd.Flags().BoolVar(&o.processEvenFails, "process-even-fails", false, "Stream the body of non-2xx responses too")
	cmd.Flags().Int64Var(&o.maxBytes, "max-bytes", 0, "Abort the transfer after this many bytes (0 for no limit)")
	return cmd
}

// streamProgress tracks what the progress listener has written
type streamProgress struct {
	received int64
	limited  bool
}

// subscribe wires the streaming events to the session output and logger
func (s *session) subscribe(st *courier.Streaming, maxBytes int64) (*streamProgress, error) {
	progress := &streamProgress{}

	listeners := map[string]courier.Listener{
		courier.EventStart: func(e *courier.Event) event.Result {
			resp := e.Request.Response()
			s.logger.Debug("stream started", zap.Int("code", resp.Code))
			return event.Continue
		},
		courier.EventProgress: func(e *courier.Event) event.Result {
			if _, err := s.out.Write(e.Chunk); err != nil {
				s.logger.Warn("write chunk", zap.Error(err))
				return event.Abort
			}
			progress.received += int64(len(e.Chunk))
			if maxBytes > 0 && progress.received >= maxBytes {
				s.logger.Debug("byte limit reached", zap.Int64("bytes", progress.received))
				progress.limited = true
				return event.Abort
			}
			return event.Continue
		},
		courier.EventFinish: func(e *courier.Event) event.Result {
			s.logger.Debug("stream finished", zap.Int64("bytes", progress.received))
			return event.Continue
		},
		courier.EventFailure: func(e *courier.Event) event.Result {
			if e.Err == nil {
				s.logger.Debug("stream completed with failure status", zap.Int("code", e.Request.Response().Code))
				return event.Continue
			}
			s.logger.Warn("stream failed", zap.Error(e.Err))
			return event.Continue
		},
	}

	for _, name := range []string{courier.EventStart, courier.EventProgress, courier.EventFinish, courier.EventFailure} {
		if _, err := st.On(name, listeners[name]); err != nil {
			return nil, err
		}
	}
	return progress, nil
}
