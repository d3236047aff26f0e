// Package risk wraps the external risk-analysis engine behind a narrow
// contract: transcript text in, validated AnalysisResult out, with a typed
// error when the engine's output cannot be validated.
package risk

import (
	"context"
	"strings"

	"github.com/coachline/coachline/internal/models"
)

// Options modifies one analysis call.
type Options struct {
	// Regenerate asks for a fresh response in a different style; the engine
	// must not serve a cached or previously produced answer.
	Regenerate bool
}

type Analyzer interface {
	Analyze(ctx context.Context, transcript string, opts Options) (*models.AnalysisResult, error)
	Close() error
}

// InvalidResponseError reports engine output that failed parsing or schema
// validation. It propagates to the caller; it is never silently defaulted.
type InvalidResponseError struct {
	Reason string
}

func (e *InvalidResponseError) Error() string {
	if e.Reason == "" {
		return "invalid analysis response format"
	}
	return "invalid analysis response format: " + e.Reason
}

var escalationKeywords = []string{
	"manager",
	"supervisor",
	"escalate",
	"complaint",
	"speak to someone higher",
}

var medicalUrgentKeywords = []string{
	"cancer", "screening", "surgery", "surgical", "emergency", "medical",
	"health", "hospital", "doctor", "physician", "diagnosis", "treatment",
	"medication", "prescription", "urgent", "critical", "life-threatening",
	"pain", "bleeding", "chest pain", "stroke", "heart attack",
}

// hasEscalationKeywords gates the deflection-scripts addon.
func hasEscalationKeywords(transcript string) bool {
	return containsAny(transcript, escalationKeywords)
}

// hasMedicalOrUrgentKeywords gates the empathy-weighting addon.
func hasMedicalOrUrgentKeywords(transcript string) bool {
	return containsAny(transcript, medicalUrgentKeywords)
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
