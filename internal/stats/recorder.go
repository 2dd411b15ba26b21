// Package stats aggregates the outcome of repeated calls: latency
// percentiles from an HDR histogram plus ok, fail and error counts.
package stats

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/atomic"

	courier "github.com/wesleyorama2/courier/internal/http"
)

// Histogram range: 1 microsecond to 1 hour, 3 significant figures
const (
	histogramMin     = 1
	histogramMax     = 3600000000
	histogramSigFigs = 3
)

// Recorder collects response outcomes. Recorder is safe for concurrent use.
type Recorder struct {
	hist   *hdrhistogram.Histogram
	histMu sync.Mutex

	total  atomic.Int64
	ok     atomic.Int64
	failed atomic.Int64
	errors atomic.Int64
	bytes  atomic.Int64

	start time.Time
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{
		hist:  hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
		start: time.Now(),
	}
}

// Record adds one response. Transport failures are counted as errors and do
// not contribute a latency sample.
func (r *Recorder) Record(resp *courier.Response) {
	r.total.Inc()
	r.bytes.Add(resp.Info.BytesRead)

	switch {
	case resp.IsError():
		r.errors.Inc()
		return
	case resp.IsOk():
		r.ok.Inc()
	default:
		r.failed.Inc()
	}
	r.RecordLatency(resp.Info.Timing.TotalTime)
}

// RecordLatency adds one latency sample, clamped to the histogram range
func (r *Recorder) RecordLatency(d time.Duration) {
	micros := d.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}

	r.histMu.Lock()
	_ = r.hist.RecordValue(micros)
	r.histMu.Unlock()
}

// LatencyStats summarises the latency samples
type LatencyStats struct {
	Min    time.Duration `json:"min" yaml:"min"`
	Max    time.Duration `json:"max" yaml:"max"`
	Mean   time.Duration `json:"mean" yaml:"mean"`
	StdDev time.Duration `json:"stdDev" yaml:"stdDev"`
	P50    time.Duration `json:"p50" yaml:"p50"`
	P90    time.Duration `json:"p90" yaml:"p90"`
	P95    time.Duration `json:"p95" yaml:"p95"`
	P99    time.Duration `json:"p99" yaml:"p99"`
	Count  int64         `json:"count" yaml:"count"`
}

// Snapshot is a point-in-time view of a Recorder
type Snapshot struct {
	Total     int64         `json:"total" yaml:"total"`
	Ok        int64         `json:"ok" yaml:"ok"`
	Failed    int64         `json:"failed" yaml:"failed"`
	Errors    int64         `json:"errors" yaml:"errors"`
	Bytes     int64         `json:"bytes" yaml:"bytes"`
	ErrorRate float64       `json:"errorRate" yaml:"errorRate"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
	Latency   LatencyStats  `json:"latency" yaml:"latency"`
}

// Snapshot returns the current aggregates
func (r *Recorder) Snapshot() *Snapshot {
	r.histMu.Lock()
	latency := LatencyStats{Count: r.hist.TotalCount()}
	if latency.Count > 0 {
		latency.Min = micros(r.hist.Min())
		latency.Max = micros(r.hist.Max())
		latency.Mean = micros(int64(r.hist.Mean()))
		latency.StdDev = micros(int64(r.hist.StdDev()))
		latency.P50 = micros(r.hist.ValueAtQuantile(50))
		latency.P90 = micros(r.hist.ValueAtQuantile(90))
		latency.P95 = micros(r.hist.ValueAtQuantile(95))
		latency.P99 = micros(r.hist.ValueAtQuantile(99))
	}
	r.histMu.Unlock()

	s := &Snapshot{
		Total:   r.total.Load(),
		Ok:      r.ok.Load(),
		Failed:  r.failed.Load(),
		Errors:  r.errors.Load(),
		Bytes:   r.bytes.Load(),
		Elapsed: time.Since(r.start),
		Latency: latency,
	}
	if s.Total > 0 {
		s.ErrorRate = float64(s.Errors) / float64(s.Total)
	}
	return s
}

// Reset discards every sample and counter
func (r *Recorder) Reset() {
	r.histMu.Lock()
	r.hist.Reset()
	r.histMu.Unlock()

	r.total.Store(0)
	r.ok.Store(0)
	r.failed.Store(0)
	r.errors.Store(0)
	r.bytes.Store(0)
	r.start = time.Now()
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// String renders the snapshot as a short text summary
func (s *Snapshot) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Requests: %d (ok %d, fail %d, error %d)\n", s.Total, s.Ok, s.Failed, s.Errors)
	fmt.Fprintf(&sb, "Bytes:    %d\n", s.Bytes)
	if s.Latency.Count > 0 {
		l := s.Latency
		fmt.Fprintf(&sb, "Latency:  min %s  mean %s  max %s\n", l.Min, l.Mean, l.Max)
		fmt.Fprintf(&sb, "          p50 %s  p90 %s  p95 %s  p99 %s\n", l.P50, l.P90, l.P95, l.P99)
	}
	return sb.String()
}
