// Package metrics keeps sliding-window latency and failure statistics for
// the analysis pipeline. In-memory only; resets on process restart.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

const (
	DefaultWindow     = 5 * time.Minute
	DefaultMaxSamples = 500
)

// Sample is one completed analysis attempt.
type Sample struct {
	Timestamp        time.Time `json:"timestamp"`
	Success          bool      `json:"success"`
	AITimeMS         int64     `json:"ai_time_ms"`
	RoundTripMS      int64     `json:"round_trip_ms"`
	StreamingDelayMS *int64    `json:"streaming_delay_ms,omitempty"`
}

// SeriesStats summarizes one latency series.
type SeriesStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P95   float64 `json:"p95"`
	Count int     `json:"count"`
}

// Snapshot is the metrics-query payload.
type Snapshot struct {
	AIResponseTime              SeriesStats `json:"aiResponseTimeMs"`
	StreamingTranscriptionDelay SeriesStats `json:"streamingTranscriptionDelayMs"`
	RoundTripLatency            SeriesStats `json:"roundTripLatencyMs"`
	FailureRate                 float64     `json:"failureRate"`
	TotalRequests               int         `json:"totalRequests"`
	SuccessCount                int         `json:"successCount"`
	FailureCount                int         `json:"failureCount"`
}

// Recorder owns its sample ring. Safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	samples    []Sample
	window     time.Duration
	maxSamples int
	now        func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{
		window:     DefaultWindow,
		maxSamples: DefaultMaxSamples,
		now:        time.Now,
	}
}

// Record appends a sample, then prunes entries older than the window and
// anything beyond the count cap, oldest first, in that order.
func (r *Recorder) Record(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Timestamp.IsZero() {
		s.Timestamp = r.now()
	}
	r.samples = append(r.samples, s)
	r.prune()
}

func (r *Recorder) prune() {
	cutoff := r.now().Add(-r.window)
	i := 0
	for i < len(r.samples) && r.samples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		r.samples = append(r.samples[:0], r.samples[i:]...)
	}
	if over := len(r.samples) - r.maxSamples; over > 0 {
		r.samples = append(r.samples[:0], r.samples[over:]...)
	}
}

// WindowMS returns the configured window size in milliseconds.
func (r *Recorder) WindowMS() int64 { return r.window.Milliseconds() }

// Snapshot computes AI-latency stats over success-only samples, round-trip
// stats over all samples, and streaming-delay stats over samples carrying a
// delay. With zero samples everything is zero, including the failure rate.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()

	total := len(r.samples)
	var aiTimes, roundTrips, delays []float64
	successCount := 0
	for _, s := range r.samples {
		if s.Success {
			successCount++
			aiTimes = append(aiTimes, float64(s.AITimeMS))
		}
		roundTrips = append(roundTrips, float64(s.RoundTripMS))
		if s.StreamingDelayMS != nil {
			delays = append(delays, float64(*s.StreamingDelayMS))
		}
	}

	failureCount := total - successCount
	failureRate := 0.0
	if total > 0 {
		failureRate = round4(float64(failureCount) / float64(total))
	}

	return Snapshot{
		AIResponseTime:              seriesStats(aiTimes),
		StreamingTranscriptionDelay: seriesStats(delays),
		RoundTripLatency:            seriesStats(roundTrips),
		FailureRate:                 failureRate,
		TotalRequests:               total,
		SuccessCount:                successCount,
		FailureCount:                failureCount,
	}
}

func seriesStats(values []float64) SeriesStats {
	if len(values) == 0 {
		return SeriesStats{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return SeriesStats{
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Avg:   round2(sum / float64(len(values))),
		P95:   round2(percentile(sorted, 95)),
		Count: len(values),
	}
}

// percentile uses the nearest-rank method on an ascending-sorted slice:
// index = ceil(p/100 * n) - 1, clamped to [0, n-1].
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if i < 0 {
		i = 0
	}
	if i > len(sorted)-1 {
		i = len(sorted) - 1
	}
	return sorted[i]
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
