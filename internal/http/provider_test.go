package http

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chunkSink struct {
	chunks []string
	failAt int
}

func (s *chunkSink) Reset()            {}
func (s *chunkSink) HeaderLine(string) {}
func (s *chunkSink) Write(chunk []byte) error {
	s.chunks = append(s.chunks, string(chunk))
	if s.failAt == len(s.chunks) {
		return errors.New("stop")
	}
	return nil
}

func TestCopyBody(t *testing.T) {
	sink := &chunkSink{}
	n, err := CopyBody(strings.NewReader("abcdefgh"), sink, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, []string{"abc", "def", "gh"}, sink.chunks)
}

func TestCopyBody_DefaultSize(t *testing.T) {
	sink := &chunkSink{}
	_, err := CopyBody(strings.NewReader(strings.Repeat("x", DefaultBufferSize+1)), sink, 0)
	require.NoError(t, err)
	require.Len(t, sink.chunks, 2)
	assert.Len(t, sink.chunks[0], DefaultBufferSize)
}

func TestCopyBody_SinkError(t *testing.T) {
	sink := &chunkSink{failAt: 1}
	n, err := CopyBody(strings.NewReader("abcdef"), sink, 2)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, CodeAborted, te.Code)
	assert.Equal(t, int64(2), n)
	assert.Len(t, sink.chunks, 1)
}

func TestCopyBody_ReadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := CopyBody(iotest.ErrReader(boom), &chunkSink{}, 4)
	assert.ErrorIs(t, err, boom)
}

func TestAvailability(t *testing.T) {
	var probes int
	fail := true
	a := &Availability{Name: "test", Probe: func() error {
		probes++
		if fail {
			return errors.New("missing")
		}
		return nil
	}}

	err := a.Check()
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "test")

	fail = false
	assert.Error(t, a.Check(), "outcome is cached")
	assert.Equal(t, 1, probes)

	a.Reset()
	assert.NoError(t, a.Check())
	assert.NoError(t, a.Check())
	assert.Equal(t, 2, probes)
}
