package risk

import (
	"encoding/json"
	"strings"

	"github.com/coachline/coachline/internal/models"
)

// parseResult validates and coerces raw engine output into an
// AnalysisResult. Numeric scores clamp to 0-100, enum fields fall back to
// their safest value, risk drivers cap at 3, text fields are length-capped.
// Anything that is not a JSON object is an InvalidResponseError.
func parseResult(raw string, includeDeflection bool) (*models.AnalysisResult, error) {
	raw = stripCodeFence(strings.TrimSpace(raw))
	if raw == "" {
		return nil, &InvalidResponseError{Reason: "empty response"}
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, &InvalidResponseError{Reason: "not a JSON object"}
	}

	res := &models.AnalysisResult{
		EscalationRisk:    clampScore(jsonNumber(parsed["escalationRisk"])),
		EscalationLevel:   models.NormalizeRiskLevel(jsonString(parsed["escalationLevel"])),
		ComplaintRisk:     clampScore(jsonNumber(parsed["complaintRisk"])),
		ComplaintLevel:    models.NormalizeRiskLevel(jsonString(parsed["complaintLevel"])),
		ConfidenceScore:   clampScore(jsonNumber(parsed["confidenceScore"])),
		RiskDrivers:       parseDrivers(parsed["riskDrivers"]),
		SuggestedResponse: capLen(jsonString(parsed["suggestedResponse"]), 500),
		Summary:           capLen(jsonString(parsed["summary"]), 300),
	}

	res.ToneAnalysis = parseTone(parsed["toneAnalysis"])

	if includeDeflection {
		res.Deflection = parseDeflection(parsed["escalationDeflectionOptions"])
	}

	return res, nil
}

// Some engines wrap JSON output in a markdown fence despite instructions.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseTone(raw json.RawMessage) models.ToneAnalysis {
	tone := models.ToneAnalysis{
		CustomerSentiment: models.SentimentCalm,
		AgentTone:         models.ToneNeutral,
	}
	if len(raw) == 0 {
		return tone
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return tone
	}

	tone.VolatilityScore = clampScore(jsonNumber(obj["volatilityScore"]))

	switch s := models.CustomerSentiment(jsonString(obj["customerSentiment"])); s {
	case models.SentimentCalm, models.SentimentFrustrated, models.SentimentAngry, models.SentimentEscalating:
		tone.CustomerSentiment = s
	}
	switch a := models.AgentTone(jsonString(obj["agentTone"])); a {
	case models.ToneProfessional, models.ToneNeutral, models.ToneDefensive, models.ToneEmpathetic:
		tone.AgentTone = a
	}
	return tone
}

func parseDrivers(raw json.RawMessage) []string {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return []string{}
	}
	out := make([]string, 0, 3)
	for _, el := range arr {
		if len(out) == 3 {
			break
		}
		var s string
		if err := json.Unmarshal(el, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func parseDeflection(raw json.RawMessage) *models.DeflectionScripts {
	if len(raw) == 0 {
		return nil
	}
	var obj struct {
		EmpatheticDelay          map[string]string `json:"empatheticDelay"`
		ManagerUnavailableScript map[string]string `json:"managerUnavailableScript"`
		StructuredContainment    map[string]string `json:"structuredContainment"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	if obj.EmpatheticDelay == nil || obj.ManagerUnavailableScript == nil || obj.StructuredContainment == nil {
		return nil
	}

	line := func(m map[string]string, key string) string { return capLen(m[key], 300) }

	d := &models.DeflectionScripts{}
	d.EmpatheticDelay.AcknowledgeRequest = line(obj.EmpatheticDelay, "acknowledgeRequest")
	d.EmpatheticDelay.ReinforceOwnership = line(obj.EmpatheticDelay, "reinforceOwnership")
	d.EmpatheticDelay.OfferResolutionFirst = line(obj.EmpatheticDelay, "offerResolutionFirst")
	d.ManagerUnavailableScript.ExplainSupervisorAvailability = line(obj.ManagerUnavailableScript, "explainSupervisorAvailability")
	d.ManagerUnavailableScript.OfferCallbackOption = line(obj.ManagerUnavailableScript, "offerCallbackOption")
	d.ManagerUnavailableScript.OfferInternalEscalationWithoutTransfer = line(obj.ManagerUnavailableScript, "offerInternalEscalationWithoutTransfer")
	d.StructuredContainment.OfferNextActionTimeline = line(obj.StructuredContainment, "offerNextActionTimeline")
	d.StructuredContainment.OfferReferenceNumber = line(obj.StructuredContainment, "offerReferenceNumber")
	d.StructuredContainment.OfferFollowUpCommitment = line(obj.StructuredContainment, "offerFollowUpCommitment")
	return d
}

func jsonNumber(raw json.RawMessage) float64 {
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

func jsonString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v + 0.5)
}

func capLen(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
