package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/coachline/coachline/internal/cache"
	"github.com/coachline/coachline/internal/logger"
	"github.com/coachline/coachline/internal/metrics"
	"github.com/coachline/coachline/internal/models"
	"github.com/coachline/coachline/internal/providers/risk"
	"github.com/coachline/coachline/internal/utils"
)

type fakeAnalyzer struct {
	calls  int
	result *models.AnalysisResult
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, _ risk.Options) (*models.AnalysisResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeAnalyzer) Close() error { return nil }

type memCache struct {
	entries map[string][]byte
}

func newMemCache() *memCache { return &memCache{entries: make(map[string][]byte)} }

func (m *memCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memCache) SetJSON(_ context.Context, key string, val any, _ time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

var _ cache.Cache = (*memCache)(nil)

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		EscalationRisk:  72,
		EscalationLevel: models.RiskHigh,
		ComplaintRisk:   40,
		ComplaintLevel:  models.RiskModerate,
		ConfidenceScore: 85,
		RiskDrivers:     []string{"billing dispute"},
		ToneAnalysis: models.ToneAnalysis{
			CustomerSentiment: models.SentimentFrustrated,
			AgentTone:         models.ToneProfessional,
		},
		SuggestedResponse: "Acknowledge the dispute and offer a review.",
		Summary:           "Customer disputes a charge.",
	}
}

func newTestAnalysisService(a risk.Analyzer, rec *metrics.Recorder, c cache.Cache) AnalysisService {
	return NewAnalysisService(a, rec, c, nil, nil, logger.New(), 30*time.Second)
}

func TestAnalyzeRejectsEmptyTranscript(t *testing.T) {
	svc := newTestAnalysisService(&fakeAnalyzer{result: sampleResult()}, metrics.NewRecorder(), nil)

	_, err := svc.Analyze(context.Background(), AnalyzeInput{})
	if err == nil {
		t.Fatal("expected an error for an empty transcript")
	}
	var ae *utils.AppError
	if !errors.As(err, &ae) || ae.Code != utils.CodeInvalidArgument {
		t.Fatalf("error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestAnalyzeRecordsSuccessSample(t *testing.T) {
	rec := metrics.NewRecorder()
	svc := newTestAnalysisService(&fakeAnalyzer{result: sampleResult()}, rec, nil)

	out, err := svc.Analyze(context.Background(), AnalyzeInput{Transcript: "Customer: my bill is wrong."})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.ID == "" || out.CreatedAt.IsZero() {
		t.Fatalf("missing output identity: %+v", out)
	}
	if out.Result.EscalationRisk != 72 {
		t.Fatalf("escalation risk = %d", out.Result.EscalationRisk)
	}

	snap := rec.Snapshot()
	if snap.TotalRequests != 1 || snap.SuccessCount != 1 || snap.FailureCount != 0 {
		t.Fatalf("snapshot counts = %d/%d/%d", snap.TotalRequests, snap.SuccessCount, snap.FailureCount)
	}
	if snap.StreamingTranscriptionDelay.Count != 0 {
		t.Fatalf("unexpected delay samples: %d", snap.StreamingTranscriptionDelay.Count)
	}
}

func TestAnalyzeRecordsStreamingDelay(t *testing.T) {
	rec := metrics.NewRecorder()
	svc := newTestAnalysisService(&fakeAnalyzer{result: sampleResult()}, rec, nil)

	ready := time.Now().Add(-200 * time.Millisecond)
	_, err := svc.Analyze(context.Background(), AnalyzeInput{
		Transcript:           "Customer: my bill is wrong.",
		TranscriptionReadyAt: &ready,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	snap := rec.Snapshot()
	if snap.StreamingTranscriptionDelay.Count != 1 {
		t.Fatalf("delay samples = %d, want 1", snap.StreamingTranscriptionDelay.Count)
	}
	if snap.StreamingTranscriptionDelay.Min < 0 {
		t.Fatalf("negative delay recorded: %v", snap.StreamingTranscriptionDelay.Min)
	}
}

func TestAnalyzeMapsInvalidResponseToUnprocessable(t *testing.T) {
	rec := metrics.NewRecorder()
	analyzer := &fakeAnalyzer{err: &risk.InvalidResponseError{Reason: "not an object"}}
	svc := newTestAnalysisService(analyzer, rec, nil)

	_, err := svc.Analyze(context.Background(), AnalyzeInput{Transcript: "Customer: hello."})
	var ae *utils.AppError
	if !errors.As(err, &ae) || ae.Code != utils.CodeUnprocessable {
		t.Fatalf("error = %v, want UNPROCESSABLE", err)
	}

	snap := rec.Snapshot()
	if snap.FailureCount != 1 || snap.SuccessCount != 0 {
		t.Fatalf("snapshot counts = %d/%d", snap.SuccessCount, snap.FailureCount)
	}
	// Failed attempts contribute no AI-latency sample.
	if snap.AIResponseTime.Count != 0 {
		t.Fatalf("AI latency samples = %d, want 0", snap.AIResponseTime.Count)
	}
}

func TestAnalyzeMapsEngineErrorToUnavailable(t *testing.T) {
	svc := newTestAnalysisService(&fakeAnalyzer{err: errors.New("deadline exceeded")}, metrics.NewRecorder(), nil)

	_, err := svc.Analyze(context.Background(), AnalyzeInput{Transcript: "Customer: hello."})
	var ae *utils.AppError
	if !errors.As(err, &ae) || ae.Code != utils.CodeUnavailable {
		t.Fatalf("error = %v, want UNAVAILABLE", err)
	}
}

func TestAnalyzeCacheDedupesIdenticalRequests(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	svc := newTestAnalysisService(analyzer, metrics.NewRecorder(), newMemCache())

	in := AnalyzeInput{Transcript: "Customer: my bill is wrong."}
	first, err := svc.Analyze(context.Background(), in)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := svc.Analyze(context.Background(), in)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if analyzer.calls != 1 {
		t.Fatalf("engine calls = %d, want 1", analyzer.calls)
	}
	if second.ID != first.ID {
		t.Fatalf("cached response identity changed: %q vs %q", second.ID, first.ID)
	}
}

func TestAnalyzeRegenerateBypassesCache(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	svc := newTestAnalysisService(analyzer, metrics.NewRecorder(), newMemCache())

	in := AnalyzeInput{Transcript: "Customer: my bill is wrong."}
	if _, err := svc.Analyze(context.Background(), in); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	in.Regenerate = true
	if _, err := svc.Analyze(context.Background(), in); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if analyzer.calls != 2 {
		t.Fatalf("engine calls = %d, want 2", analyzer.calls)
	}
}

func TestJoinReasons(t *testing.T) {
	if got := joinReasons(nil); got != "" {
		t.Fatalf("joinReasons(nil) = %q", got)
	}
	if got := joinReasons([]string{"sentence"}); got != "sentence" {
		t.Fatalf("got %q", got)
	}
	if got := joinReasons([]string{"sentence", "urgent"}); got != "sentence+urgent" {
		t.Fatalf("got %q", got)
	}
}
