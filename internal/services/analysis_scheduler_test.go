package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coachline/coachline/internal/models"
)

func waitReq(t *testing.T, ch <-chan AnalysisRequest) AnalysisRequest {
	t.Helper()
	select {
	case req := <-ch:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an analysis request")
		return AnalysisRequest{}
	}
}

func assertNoReq(t *testing.T, ch <-chan AnalysisRequest, within time.Duration) {
	t.Helper()
	select {
	case req := <-ch:
		t.Fatalf("unexpected analysis request %+v", req)
	case <-time.After(within):
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func hasReason(req AnalysisRequest, reason string) bool {
	for _, r := range req.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

func TestLiveSentenceTriggerFiresOncePerSentence(t *testing.T) {
	reqs := make(chan AnalysisRequest, 8)
	results := make(chan struct{}, 8)
	analyze := func(_ context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
		reqs <- req
		return &models.AnalysisResult{}, nil
	}
	s := NewAnalysisScheduler(analyze, func(*models.AnalysisResult) { results <- struct{}{} }, nil)

	callID := s.StartLive()

	s.SetTranscript("Customer: I want a refund.")
	req := waitReq(t, reqs)
	if req.CallID != callID {
		t.Fatalf("request call id = %q, want %q", req.CallID, callID)
	}
	if !hasReason(req, TriggerSentence) {
		t.Fatalf("reasons = %v, want sentence", req.Reasons)
	}
	if req.Regenerate {
		t.Fatal("live trigger flagged regenerate")
	}
	waitSignal(t, results)

	// Same complete sentence again: no duplicate request.
	s.SetTranscript("Customer: I want a refund.")
	assertNoReq(t, reqs, 80*time.Millisecond)

	// A new complete sentence triggers again.
	s.SetTranscript("Customer: I want a refund.\nCustomer: This is broken too!")
	req = waitReq(t, reqs)
	if !hasReason(req, TriggerSentence) {
		t.Fatalf("reasons = %v, want sentence", req.Reasons)
	}
	waitSignal(t, results)

	s.StopLive()
}

func TestLiveIncompleteSentenceDoesNotTrigger(t *testing.T) {
	reqs := make(chan AnalysisRequest, 8)
	analyze := func(_ context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
		reqs <- req
		return &models.AnalysisResult{}, nil
	}
	s := NewAnalysisScheduler(analyze, nil, nil)
	s.StartLive()

	s.SetTranscript("Customer: I want to talk about my bill")
	assertNoReq(t, reqs, 80*time.Millisecond)
	s.StopLive()
}

func TestLiveUrgentKeywordTriggersWithoutCompleteSentence(t *testing.T) {
	reqs := make(chan AnalysisRequest, 8)
	results := make(chan struct{}, 8)
	analyze := func(_ context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
		reqs <- req
		return &models.AnalysisResult{}, nil
	}
	s := NewAnalysisScheduler(analyze, func(*models.AnalysisResult) { results <- struct{}{} }, nil)
	s.StartLive()

	s.SetTranscript("Customer: I am going to call my lawyer")
	req := waitReq(t, reqs)
	if !hasReason(req, TriggerUrgent) {
		t.Fatalf("reasons = %v, want urgent", req.Reasons)
	}
	if hasReason(req, TriggerSentence) {
		t.Fatalf("reasons = %v, sentence should not fire without a terminator", req.Reasons)
	}
	waitSignal(t, results)

	// Same urgent context, unchanged: no re-trigger.
	s.SetTranscript("Customer: I am going to call my lawyer")
	assertNoReq(t, reqs, 80*time.Millisecond)
	s.StopLive()
}

func TestLiveBothReasonsRecordedDistinctly(t *testing.T) {
	reqs := make(chan AnalysisRequest, 8)
	results := make(chan struct{}, 8)
	analyze := func(_ context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
		reqs <- req
		return &models.AnalysisResult{}, nil
	}
	s := NewAnalysisScheduler(analyze, func(*models.AnalysisResult) { results <- struct{}{} }, nil)
	s.StartLive()

	s.SetTranscript("Customer: I will sue you over this.")
	req := waitReq(t, reqs)
	if !hasReason(req, TriggerSentence) || !hasReason(req, TriggerUrgent) {
		t.Fatalf("reasons = %v, want both sentence and urgent", req.Reasons)
	}
	waitSignal(t, results)
	s.StopLive()
}

func TestLiveSingleFlightAndReEvaluation(t *testing.T) {
	reqs := make(chan AnalysisRequest, 8)
	release := make(chan struct{})
	results := make(chan struct{}, 8)
	analyze := func(ctx context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
		reqs <- req
		select {
		case <-release:
			return &models.AnalysisResult{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s := NewAnalysisScheduler(analyze, func(*models.AnalysisResult) { results <- struct{}{} }, nil)
	s.StartLive()

	s.SetTranscript("Customer: First problem here.")
	waitReq(t, reqs)
	if !s.InFlight() {
		t.Fatal("expected an in-flight request")
	}

	// Mutations while in flight do not issue a second request.
	s.SetTranscript("Customer: First problem here.\nCustomer: Second problem now!")
	assertNoReq(t, reqs, 80*time.Millisecond)

	// Resolution re-evaluates and picks up the newer sentence.
	release <- struct{}{}
	waitSignal(t, results)
	req := waitReq(t, reqs)
	if !hasReason(req, TriggerSentence) {
		t.Fatalf("reasons = %v, want sentence on re-evaluation", req.Reasons)
	}
	release <- struct{}{}
	waitSignal(t, results)

	s.StopLive()
}

func TestLiveFailureSurfacesOnceWithoutRetry(t *testing.T) {
	reqs := make(chan AnalysisRequest, 8)
	errs := make(chan error, 8)
	analyze := func(_ context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
		reqs <- req
		return nil, errors.New("engine unavailable")
	}
	s := NewAnalysisScheduler(analyze, nil, func(err error) { errs <- err })
	s.StartLive()

	s.SetTranscript("Customer: Please check my order.")
	waitReq(t, reqs)
	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("nil error surfaced")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error was not surfaced")
	}

	// No automatic retry.
	assertNoReq(t, reqs, 80*time.Millisecond)
	if s.InFlight() {
		t.Fatal("failed request left in-flight set")
	}

	// The sentence was not recorded as analyzed; the next mutation with the
	// same content triggers again.
	s.SetTranscript("Customer: Please check my order.")
	waitReq(t, reqs)
	s.StopLive()
}

func TestStopLiveCancelsOutstandingRequest(t *testing.T) {
	reqs := make(chan AnalysisRequest, 8)
	results := make(chan struct{}, 8)
	errs := make(chan error, 8)
	analyze := func(ctx context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
		reqs <- req
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s := NewAnalysisScheduler(analyze,
		func(*models.AnalysisResult) { results <- struct{}{} },
		func(err error) { errs <- err })
	s.StartLive()

	s.SetTranscript("Customer: Cancel my account.")
	waitReq(t, reqs)
	s.StopLive()

	select {
	case <-results:
		t.Fatal("cancelled request delivered a result")
	case err := <-errs:
		t.Fatalf("cancelled request surfaced an error: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStartLiveResetsAnalyzedState(t *testing.T) {
	reqs := make(chan AnalysisRequest, 8)
	results := make(chan struct{}, 8)
	analyze := func(_ context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
		reqs <- req
		return &models.AnalysisResult{}, nil
	}
	s := NewAnalysisScheduler(analyze, func(*models.AnalysisResult) { results <- struct{}{} }, nil)

	first := s.StartLive()
	s.SetTranscript("Customer: Same sentence both sessions.")
	waitReq(t, reqs)
	waitSignal(t, results)
	s.StopLive()

	// A fresh session re-analyzes content the previous one already saw.
	second := s.StartLive()
	if second == first {
		t.Fatal("expected a fresh call id per session")
	}
	req := waitReq(t, reqs)
	if req.CallID != second {
		t.Fatalf("request call id = %q, want %q", req.CallID, second)
	}
	waitSignal(t, results)
	s.StopLive()
}

func TestIdleDebounceCoalescesMutations(t *testing.T) {
	reqs := make(chan AnalysisRequest, 8)
	analyze := func(_ context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
		reqs <- req
		return &models.AnalysisResult{}, nil
	}
	s := NewAnalysisScheduler(analyze, nil, nil, WithDebounce(60*time.Millisecond))

	s.SetTranscript("Customer: Draft one.")
	time.Sleep(10 * time.Millisecond)
	s.SetTranscript("Customer: Draft two.")

	req := waitReq(t, reqs)
	if req.Transcript != "Customer: Draft two." {
		t.Fatalf("debounced transcript = %q", req.Transcript)
	}
	if req.Regenerate || req.CallID != "" || len(req.Reasons) != 0 {
		t.Fatalf("idle request carried live fields: %+v", req)
	}
	assertNoReq(t, reqs, 120*time.Millisecond)
}

func TestIdleBlankTranscriptNeverFires(t *testing.T) {
	reqs := make(chan AnalysisRequest, 8)
	analyze := func(_ context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
		reqs <- req
		return &models.AnalysisResult{}, nil
	}
	s := NewAnalysisScheduler(analyze, nil, nil, WithDebounce(20*time.Millisecond))

	s.SetTranscript("   \n  ")
	assertNoReq(t, reqs, 80*time.Millisecond)
}

func TestRegenerateBypassesDebounce(t *testing.T) {
	reqs := make(chan AnalysisRequest, 8)
	analyze := func(_ context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
		reqs <- req
		return &models.AnalysisResult{}, nil
	}
	s := NewAnalysisScheduler(analyze, nil, nil, WithDebounce(time.Hour))

	s.SetTranscript("Customer: Same content.")
	s.Regenerate()

	req := waitReq(t, reqs)
	if !req.Regenerate {
		t.Fatal("regenerate request not flagged")
	}
	if req.Transcript != "Customer: Same content." {
		t.Fatalf("regenerate transcript = %q", req.Transcript)
	}

	// Regenerate is never deduplicated.
	s.Regenerate()
	req = waitReq(t, reqs)
	if !req.Regenerate {
		t.Fatal("second regenerate request not flagged")
	}
}

func TestRegenerateWithEmptyTranscriptIsNoop(t *testing.T) {
	reqs := make(chan AnalysisRequest, 8)
	analyze := func(_ context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
		reqs <- req
		return &models.AnalysisResult{}, nil
	}
	s := NewAnalysisScheduler(analyze, nil, nil)

	s.Regenerate()
	assertNoReq(t, reqs, 80*time.Millisecond)
}
