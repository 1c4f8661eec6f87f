// Package stats aggregates call outcomes and latencies for repeated requests.
package stats

import (
	"errors"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/abdul-hamid-achik/hitnet/packages/network"
)

const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Recorder collects call metrics. It satisfies network.Recorder.
type Recorder struct {
	mu sync.Mutex

	total        int64
	success      int64
	failures     int64
	unauthorized int64

	// Latency histogram (in microseconds for precision)
	histogram *hdrhistogram.Histogram

	endpoints map[string]*EndpointSummary
	order     []string
}

// Snapshot is a point-in-time view of the recorded calls.
type Snapshot struct {
	Total        int64
	Success      int64
	Failures     int64
	Unauthorized int64
	P50          time.Duration
	P95          time.Duration
	P99          time.Duration
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	Endpoints    []EndpointSummary
}

// EndpointSummary holds counters for one method and endpoint pair.
type EndpointSummary struct {
	Name     string
	Total    int64
	Success  int64
	Failures int64
}

// SuccessRate returns the fraction of successful calls, or 0 without calls.
func (s Snapshot) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Success) / float64(s.Total)
}

// New creates an empty Recorder.
func New() *Recorder {
	return &Recorder{
		// 1us to 60s, 3 significant digits
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
		endpoints: make(map[string]*EndpointSummary),
	}
}

var _ network.Recorder = (*Recorder)(nil)

// Record records one completed call.
func (r *Recorder) Record(method network.Method, endpoint string, d time.Duration, err error) {
	latencyUs := d.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}

	name := method.String() + " " + endpoint

	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	_ = r.histogram.RecordValue(latencyUs)

	ep, ok := r.endpoints[name]
	if !ok {
		ep = &EndpointSummary{Name: name}
		r.endpoints[name] = ep
		r.order = append(r.order, name)
	}
	ep.Total++

	if err != nil {
		r.failures++
		ep.Failures++
		if errors.Is(err, network.ErrUnauthorized) {
			r.unauthorized++
		}
		return
	}
	r.success++
	ep.Success++
}

// Snapshot returns the current totals and latency percentiles.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Total:        r.total,
		Success:      r.success,
		Failures:     r.failures,
		Unauthorized: r.unauthorized,
	}
	if r.total > 0 {
		snap.P50 = toDuration(r.histogram.ValueAtQuantile(50))
		snap.P95 = toDuration(r.histogram.ValueAtQuantile(95))
		snap.P99 = toDuration(r.histogram.ValueAtQuantile(99))
		snap.Min = toDuration(r.histogram.Min())
		snap.Max = toDuration(r.histogram.Max())
		snap.Mean = time.Duration(r.histogram.Mean() * float64(time.Microsecond))
	}

	snap.Endpoints = make([]EndpointSummary, 0, len(r.order))
	for _, name := range r.order {
		snap.Endpoints = append(snap.Endpoints, *r.endpoints[name])
	}
	return snap
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total, r.success, r.failures, r.unauthorized = 0, 0, 0, 0
	r.histogram.Reset()
	r.endpoints = make(map[string]*EndpointSummary)
	r.order = nil
}

func toDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
