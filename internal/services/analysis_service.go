package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coachline/coachline/internal/cache"
	"github.com/coachline/coachline/internal/metrics"
	"github.com/coachline/coachline/internal/models"
	"github.com/coachline/coachline/internal/providers/risk"
	pgrepo "github.com/coachline/coachline/internal/repositories/postgres"
	"github.com/coachline/coachline/internal/utils"
)

// AnalyzeInput is one server-side analysis invocation.
type AnalyzeInput struct {
	Transcript string
	Regenerate bool
	CallID     string
	Speaker    string
	Reasons    []string
	// TranscriptionReadyAt, when set, yields the streaming delay sample:
	// time between transcription availability and this request's arrival.
	TranscriptionReadyAt *time.Time
}

// AnalyzeOutput is the analysis result plus its archive identity.
type AnalyzeOutput struct {
	ID        string                `json:"id"`
	CreatedAt time.Time             `json:"created_at"`
	Result    models.AnalysisResult `json:"result"`
}

type AnalysisService interface {
	Analyze(ctx context.Context, in AnalyzeInput) (*AnalyzeOutput, error)
}

type analysisService struct {
	analyzer    risk.Analyzer
	recorder    *metrics.Recorder
	cache       cache.Cache                  // optional
	transcripts pgrepo.TranscriptRepository  // optional
	events      pgrepo.CallEventRepository   // optional
	log         *logrus.Logger
	cacheTTL    time.Duration
	now         func() time.Time
}

func NewAnalysisService(analyzer risk.Analyzer, recorder *metrics.Recorder, c cache.Cache, transcripts pgrepo.TranscriptRepository, events pgrepo.CallEventRepository, log *logrus.Logger, cacheTTL time.Duration) AnalysisService {
	return &analysisService{
		analyzer:    analyzer,
		recorder:    recorder,
		cache:       c,
		transcripts: transcripts,
		events:      events,
		log:         log,
		cacheTTL:    cacheTTL,
		now:         time.Now,
	}
}

func (s *analysisService) Analyze(ctx context.Context, in AnalyzeInput) (*AnalyzeOutput, error) {
	const op = "AnalysisService.Analyze"
	roundTripStart := s.now()

	if in.Transcript == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "transcript is required", nil)
	}

	// Dedup identical non-regenerate requests. Regenerate always reaches the
	// engine so it can vary its output style.
	cacheKey := "analysis:" + hashTranscript(in.Transcript)
	if s.cache != nil && !in.Regenerate && s.cacheTTL > 0 {
		var cached AnalyzeOutput
		if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	aiStart := s.now()
	result, err := s.analyzer.Analyze(ctx, in.Transcript, risk.Options{Regenerate: in.Regenerate})
	aiTime := s.now().Sub(aiStart)
	roundTrip := s.now().Sub(roundTripStart)

	if err != nil {
		s.recorder.Record(metrics.Sample{
			Success:     false,
			AITimeMS:    0,
			RoundTripMS: roundTrip.Milliseconds(),
		})
		var ire *risk.InvalidResponseError
		if errors.As(err, &ire) {
			return nil, utils.E(utils.CodeUnprocessable, op, "invalid analysis response format", err)
		}
		return nil, utils.E(utils.CodeUnavailable, op, "analysis failed", err)
	}

	sample := metrics.Sample{
		Success:     true,
		AITimeMS:    aiTime.Milliseconds(),
		RoundTripMS: roundTrip.Milliseconds(),
	}
	if in.TranscriptionReadyAt != nil {
		delay := roundTripStart.Sub(*in.TranscriptionReadyAt).Milliseconds()
		if delay < 0 {
			delay = 0
		}
		sample.StreamingDelayMS = &delay
	}
	s.recorder.Record(sample)

	out := &AnalyzeOutput{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		Result:    *result,
	}

	if s.transcripts != nil {
		row := &models.Transcript{
			ID:             out.ID,
			TranscriptText: in.Transcript,
			EscalationRisk: result.EscalationRisk,
			ComplaintRisk:  result.ComplaintRisk,
			Deescalation:   result.SuggestedResponse,
			ToneGuidance:   result.Summary,
			CreatedAt:      out.CreatedAt,
		}
		if err := s.transcripts.Insert(ctx, row); err != nil {
			// Archive failures degrade to in-memory identity only.
			s.log.WithError(err).Warn("transcript archive insert failed")
		}
	}

	// Call-event logging is auxiliary: it must never fail or alter the
	// analysis response.
	s.insertCallEvent(ctx, in, result, roundTrip.Milliseconds(), out.ID)

	if s.cache != nil && !in.Regenerate && s.cacheTTL > 0 {
		if err := s.cache.SetJSON(ctx, cacheKey, out, s.cacheTTL); err != nil {
			s.log.WithError(err).Debug("analysis cache set failed")
		}
	}

	return out, nil
}

func (s *analysisService) insertCallEvent(ctx context.Context, in AnalyzeInput, result *models.AnalysisResult, latencyMS int64, fallbackCallID string) {
	if s.events == nil {
		return
	}

	callID := in.CallID
	if callID == "" {
		callID = fallbackCallID
	}
	speaker := in.Speaker
	if speaker != string(models.SpeakerCustomer) && speaker != string(models.SpeakerAgent) {
		speaker = string(models.SpeakerUnknown)
	}

	drivers, err := json.Marshal(result.RiskDrivers)
	if err != nil {
		drivers = []byte("[]")
	}

	level := models.NormalizeRiskLevel(string(result.EscalationLevel))
	event := &models.CallEvent{
		ID:                    uuid.NewString(),
		CallID:                callID,
		Timestamp:             s.now().UTC(),
		Speaker:               speaker,
		TranscriptSegment:     in.Transcript,
		RollingEscalationRisk: result.EscalationRisk,
		RollingComplaintRisk:  result.ComplaintRisk,
		DetectedTriggers:      drivers,
		TriggerReason:         joinReasons(in.Reasons),
		SuggestedScript:       result.SuggestedResponse,
		TacticalGuidance:      result.Summary,
		ResponseLatencyMS:     latencyMS,
		EscalationLevel:       string(level),
		UrgencyLevel:          models.UrgencyLevel(level),
	}

	if err := s.events.Insert(ctx, event); err != nil {
		s.log.WithError(err).WithField("call_id", callID).Error("call event insert failed (non-fatal)")
	}
}

func joinReasons(reasons []string) string {
	switch len(reasons) {
	case 0:
		return ""
	case 1:
		return reasons[0]
	default:
		out := reasons[0]
		for _, r := range reasons[1:] {
			out += "+" + r
		}
		return out
	}
}

func hashTranscript(t string) string {
	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:])
}
