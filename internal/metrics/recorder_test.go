package metrics

import (
	"testing"
	"time"
)

func newTestRecorder(now *time.Time) *Recorder {
	r := NewRecorder()
	r.now = func() time.Time { return *now }
	return r
}

func TestSnapshotEmpty(t *testing.T) {
	r := NewRecorder()
	snap := r.Snapshot()

	if snap.TotalRequests != 0 || snap.SuccessCount != 0 || snap.FailureCount != 0 {
		t.Errorf("expected zero counts, got %+v", snap)
	}
	if snap.FailureRate != 0 {
		t.Errorf("expected zero failure rate, got %v", snap.FailureRate)
	}
	zero := SeriesStats{}
	if snap.AIResponseTime != zero || snap.RoundTripLatency != zero || snap.StreamingTranscriptionDelay != zero {
		t.Errorf("expected all-zero stats, got %+v", snap)
	}
}

func TestSnapshotStats(t *testing.T) {
	now := time.Now()
	r := newTestRecorder(&now)

	delay := int64(30)
	r.Record(Sample{Success: true, AITimeMS: 100, RoundTripMS: 120, StreamingDelayMS: &delay})
	r.Record(Sample{Success: true, AITimeMS: 300, RoundTripMS: 330})
	r.Record(Sample{Success: false, AITimeMS: 0, RoundTripMS: 900})

	snap := r.Snapshot()

	if snap.TotalRequests != 3 || snap.SuccessCount != 2 || snap.FailureCount != 1 {
		t.Fatalf("unexpected counts: %+v", snap)
	}
	if snap.FailureRate != 0.3333 {
		t.Errorf("expected failure rate 0.3333, got %v", snap.FailureRate)
	}

	// AI latency over success-only samples.
	if snap.AIResponseTime.Count != 2 || snap.AIResponseTime.Min != 100 || snap.AIResponseTime.Max != 300 {
		t.Errorf("unexpected AI stats: %+v", snap.AIResponseTime)
	}
	if snap.AIResponseTime.Avg != 200 {
		t.Errorf("expected AI avg 200, got %v", snap.AIResponseTime.Avg)
	}

	// Round trips over all samples.
	if snap.RoundTripLatency.Count != 3 || snap.RoundTripLatency.Max != 900 {
		t.Errorf("unexpected round-trip stats: %+v", snap.RoundTripLatency)
	}

	// Streaming delay only where present.
	if snap.StreamingTranscriptionDelay.Count != 1 || snap.StreamingTranscriptionDelay.Min != 30 {
		t.Errorf("unexpected streaming delay stats: %+v", snap.StreamingTranscriptionDelay)
	}
}

func TestPercentileNearestRank(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		want   float64
	}{
		{"single", []float64{42}, 42},
		{"twenty", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, 19},
		{"two", []float64{10, 20}, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentile(tt.sorted, 95); got != tt.want {
				t.Errorf("expected p95 %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPruneByWindow(t *testing.T) {
	now := time.Now()
	r := newTestRecorder(&now)

	r.Record(Sample{Success: true, AITimeMS: 10, RoundTripMS: 10})
	now = now.Add(DefaultWindow + time.Second)
	r.Record(Sample{Success: true, AITimeMS: 20, RoundTripMS: 20})

	snap := r.Snapshot()
	if snap.TotalRequests != 1 {
		t.Fatalf("expected old sample pruned, got %d samples", snap.TotalRequests)
	}
	if snap.AIResponseTime.Min != 20 {
		t.Errorf("expected the newer sample to survive, got %+v", snap.AIResponseTime)
	}
}

func TestPruneByCap(t *testing.T) {
	now := time.Now()
	r := newTestRecorder(&now)

	for i := 0; i < DefaultMaxSamples+25; i++ {
		r.Record(Sample{Success: true, AITimeMS: int64(i), RoundTripMS: int64(i)})
	}

	snap := r.Snapshot()
	if snap.TotalRequests != DefaultMaxSamples {
		t.Fatalf("expected cap at %d, got %d", DefaultMaxSamples, snap.TotalRequests)
	}
	// Oldest evicted first.
	if snap.AIResponseTime.Min != 25 {
		t.Errorf("expected oldest samples evicted, min=%v", snap.AIResponseTime.Min)
	}
}
