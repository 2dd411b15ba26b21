package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	courier "github.com/wesleyorama2/courier/internal/http"
)

func response(code int, total time.Duration, bytes int64) *courier.Response {
	resp := courier.NewResponse()
	resp.Code = code
	resp.Info.Timing.TotalTime = total
	resp.Info.BytesRead = bytes
	return resp
}

func TestRecorder_Record(t *testing.T) {
	r := NewRecorder()
	for i := 1; i <= 100; i++ {
		r.Record(response(200, time.Duration(i)*time.Millisecond, 10))
	}
	r.Record(response(503, 5*time.Millisecond, 0))

	failed := courier.NewResponse()
	failed.ErrorCode = courier.CodeCouldNotConnect
	r.Record(failed)

	s := r.Snapshot()
	assert.Equal(t, int64(102), s.Total)
	assert.Equal(t, int64(100), s.Ok)
	assert.Equal(t, int64(1), s.Failed)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(1000), s.Bytes)
	assert.InDelta(t, 1.0/102, s.ErrorRate, 1e-9)

	require.Equal(t, int64(101), s.Latency.Count, "transport errors carry no latency")
	assert.Equal(t, time.Millisecond, s.Latency.Min)
	assert.InDelta(t, float64(100*time.Millisecond), float64(s.Latency.Max), float64(100*time.Microsecond))
	assert.InDelta(t, float64(50*time.Millisecond), float64(s.Latency.P50), float64(time.Millisecond))
	assert.InDelta(t, float64(99*time.Millisecond), float64(s.Latency.P99), float64(time.Millisecond))
}

func TestRecorder_Empty(t *testing.T) {
	s := NewRecorder().Snapshot()
	assert.Zero(t, s.Total)
	assert.Zero(t, s.ErrorRate)
	assert.Zero(t, s.Latency.Count)
	assert.NotContains(t, s.String(), "Latency")
}

func TestRecorder_Clamp(t *testing.T) {
	r := NewRecorder()
	r.RecordLatency(0)
	r.RecordLatency(2 * time.Hour)

	s := r.Snapshot()
	assert.Equal(t, time.Microsecond, s.Latency.Min)
	assert.InDelta(t, float64(time.Hour), float64(s.Latency.Max), float64(5*time.Second))
}

func TestRecorder_Concurrent(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Record(response(200, time.Millisecond, 1))
			}
		}()
	}
	wg.Wait()

	s := r.Snapshot()
	assert.Equal(t, int64(400), s.Total)
	assert.Equal(t, int64(400), s.Latency.Count)
}

func TestRecorder_Reset(t *testing.T) {
	r := NewRecorder()
	r.Record(response(200, time.Millisecond, 5))
	r.Reset()

	s := r.Snapshot()
	assert.Zero(t, s.Total)
	assert.Zero(t, s.Bytes)
	assert.Zero(t, s.Latency.Count)
}

func TestSnapshot_String(t *testing.T) {
	r := NewRecorder()
	r.Record(response(200, 2*time.Millisecond, 5))

	out := r.Snapshot().String()
	assert.Contains(t, out, "Requests: 1 (ok 1, fail 0, error 0)")
	assert.Contains(t, out, "Bytes:    5")
	assert.Contains(t, out, "p50 2ms")
}
