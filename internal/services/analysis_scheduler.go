package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachline/coachline/internal/livecontext"
	"github.com/coachline/coachline/internal/models"
)

const DefaultDebounce = 400 * time.Millisecond

// Trigger reasons recorded with each issued request.
const (
	TriggerSentence = "sentence"
	TriggerUrgent   = "urgent"
)

// AnalysisRequest is one issued analysis invocation.
type AnalysisRequest struct {
	CorrelationID string
	CallID        string
	Transcript    string
	Regenerate    bool
	Reasons       []string
}

// AnalyzeFunc is the external analysis collaborator. It must honor context
// cancellation so a superseded request cannot overwrite a newer result.
type AnalyzeFunc func(ctx context.Context, req AnalysisRequest) (*models.AnalysisResult, error)

// AnalysisScheduler decides when to call the analysis collaborator. While
// live it evaluates sentence and urgent triggers on every transcript
// mutation and guarantees at most one request in flight per session; off
// live it debounces and cancels superseded requests.
type AnalysisScheduler struct {
	mu sync.Mutex

	analyze  AnalyzeFunc
	onResult func(*models.AnalysisResult)
	onError  func(error)

	windowSize int
	debounce   time.Duration

	live       bool
	callID     string
	transcript string

	lastSentence    string
	lastSentenceSet bool
	lastContext     string

	inFlight      bool
	debounceTimer *time.Timer
	cancel        context.CancelFunc
}

type SchedulerOption func(*AnalysisScheduler)

func WithDebounce(d time.Duration) SchedulerOption {
	return func(s *AnalysisScheduler) { s.debounce = d }
}

func WithWindowSize(n int) SchedulerOption {
	return func(s *AnalysisScheduler) { s.windowSize = n }
}

func NewAnalysisScheduler(analyze AnalyzeFunc, onResult func(*models.AnalysisResult), onError func(error), opts ...SchedulerOption) *AnalysisScheduler {
	s := &AnalysisScheduler{
		analyze:    analyze,
		onResult:   onResult,
		onError:    onError,
		windowSize: livecontext.RollingCustomerUtterances,
		debounce:   DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartLive enters live mode under a fresh call id and clears the analyzed
// sentence/context memory.
func (s *AnalysisScheduler) StartLive() string {
	s.mu.Lock()
	s.live = true
	s.callID = uuid.NewString()
	s.lastSentence = ""
	s.lastSentenceSet = false
	s.lastContext = ""
	s.stopDebounceLocked()
	id := s.callID
	s.mu.Unlock()

	s.evaluateLive()
	return id
}

// StopLive leaves live mode and cancels anything outstanding.
func (s *AnalysisScheduler) StopLive() {
	s.mu.Lock()
	s.live = false
	s.stopDebounceLocked()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

// SetTranscript records a transcript mutation. Live mode re-evaluates
// triggers immediately; otherwise the debounced idle path is (re)armed.
func (s *AnalysisScheduler) SetTranscript(text string) {
	s.mu.Lock()
	s.transcript = text
	if s.live {
		s.mu.Unlock()
		s.evaluateLive()
		return
	}

	if strings.TrimSpace(text) == "" {
		s.stopDebounceLocked()
		s.mu.Unlock()
		return
	}
	s.stopDebounceLocked()
	s.debounceTimer = time.AfterFunc(s.debounce, s.fireDebounced)
	s.mu.Unlock()
}

// Regenerate bypasses debounce and trigger dedup: it cancels any pending or
// in-flight request and always issues a fresh call flagged regenerate.
func (s *AnalysisScheduler) Regenerate() {
	s.mu.Lock()
	text := strings.TrimSpace(s.transcript)
	if text == "" {
		s.mu.Unlock()
		return
	}
	s.stopDebounceLocked()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	req := AnalysisRequest{
		CorrelationID: uuid.NewString(),
		CallID:        s.callID,
		Transcript:    text,
		Regenerate:    true,
	}
	s.mu.Unlock()

	go s.runOnce(ctx, req)
}

// InFlight reports whether a live-mode request is outstanding.
func (s *AnalysisScheduler) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *AnalysisScheduler) stopDebounceLocked() {
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
}

func (s *AnalysisScheduler) fireDebounced() {
	s.mu.Lock()
	s.debounceTimer = nil
	if s.live {
		s.mu.Unlock()
		return
	}
	text := strings.TrimSpace(s.transcript)
	if text == "" {
		s.mu.Unlock()
		return
	}
	// Supersede: cancel the previous request before issuing a new one so at
	// most one is ever outstanding.
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	req := AnalysisRequest{
		CorrelationID: uuid.NewString(),
		Transcript:    text,
	}
	s.mu.Unlock()

	go s.runOnce(ctx, req)
}

func (s *AnalysisScheduler) runOnce(ctx context.Context, req AnalysisRequest) {
	res, err := s.analyze(ctx, req)
	if ctx.Err() != nil {
		// Superseded; a stale response must not overwrite a newer result.
		return
	}
	if err != nil {
		if s.onError != nil {
			s.onError(err)
		}
		return
	}
	if s.onResult != nil {
		s.onResult(res)
	}
}

type liveRequest struct {
	req         AnalysisRequest
	sentence    string
	sentenceSet bool
	contextText string
}

// buildLiveRequestLocked evaluates both triggers against the current
// transcript. Reasons are recorded distinctly when both fire.
func (s *AnalysisScheduler) buildLiveRequestLocked() (liveRequest, bool) {
	full := s.transcript
	rolling := livecontext.RollingContext(full, s.windowSize)
	if strings.TrimSpace(rolling) == "" {
		return liveRequest{}, false
	}

	sentence, sentenceOK := livecontext.LastCompleteCustomerSentence(full)
	sentenceTrigger := sentenceOK && (!s.lastSentenceSet || sentence != s.lastSentence)

	urgentTrigger := livecontext.HasUrgentKeywords(full) &&
		(s.lastContext == "" ||
			!livecontext.HasUrgentKeywords(s.lastContext) ||
			rolling != s.lastContext)

	if !sentenceTrigger && !urgentTrigger {
		return liveRequest{}, false
	}

	var reasons []string
	if sentenceTrigger {
		reasons = append(reasons, TriggerSentence)
	}
	if urgentTrigger {
		reasons = append(reasons, TriggerUrgent)
	}

	return liveRequest{
		req: AnalysisRequest{
			CorrelationID: uuid.NewString(),
			CallID:        s.callID,
			Transcript:    rolling,
			Reasons:       reasons,
		},
		sentence:    sentence,
		sentenceSet: sentenceOK,
		contextText: rolling,
	}, true
}

func (s *AnalysisScheduler) evaluateLive() {
	s.mu.Lock()
	if !s.live || s.inFlight {
		s.mu.Unlock()
		return
	}
	lr, ok := s.buildLiveRequestLocked()
	if !ok {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.runLive(ctx, lr)
}

// runLive resolves one request, then re-evaluates triggers until none fire,
// covering mutations that arrived during the call. A failure clears
// in-flight without recording the analyzed state and does not retry.
func (s *AnalysisScheduler) runLive(ctx context.Context, lr liveRequest) {
	for {
		res, err := s.analyze(ctx, lr.req)

		s.mu.Lock()
		s.inFlight = false
		if err != nil {
			s.mu.Unlock()
			if ctx.Err() == nil && s.onError != nil {
				s.onError(err)
			}
			return
		}

		s.lastSentence = lr.sentence
		s.lastSentenceSet = lr.sentenceSet
		s.lastContext = lr.contextText
		live := s.live
		s.mu.Unlock()

		if s.onResult != nil {
			s.onResult(res)
		}
		if !live {
			return
		}

		s.mu.Lock()
		if !s.live || s.inFlight {
			s.mu.Unlock()
			return
		}
		next, ok := s.buildLiveRequestLocked()
		if !ok {
			s.mu.Unlock()
			return
		}
		s.inFlight = true
		s.mu.Unlock()
		lr = next
	}
}
