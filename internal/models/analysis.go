package models

import "strings"

type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

var riskLevels = []RiskLevel{RiskLow, RiskModerate, RiskHigh, RiskCritical}

// NormalizeRiskLevel trims and capitalizes a model-produced level, accepting
// the legacy "Medium" spelling. Unrecognized input falls back to Low.
func NormalizeRiskLevel(v string) RiskLevel {
	t := strings.TrimSpace(v)
	if t == "" {
		return RiskLow
	}
	if strings.EqualFold(t, "medium") {
		return RiskModerate
	}
	cap := strings.ToUpper(t[:1]) + strings.ToLower(t[1:])
	for _, lvl := range riskLevels {
		if RiskLevel(cap) == lvl {
			return lvl
		}
	}
	return RiskLow
}

// UrgencyLevel maps an escalation level onto the lowercase urgency scale
// stored with call events.
func UrgencyLevel(level RiskLevel) string {
	switch level {
	case RiskCritical:
		return "critical"
	case RiskHigh:
		return "high"
	case RiskModerate:
		return "medium"
	default:
		return "low"
	}
}

type CustomerSentiment string

const (
	SentimentCalm       CustomerSentiment = "Calm"
	SentimentFrustrated CustomerSentiment = "Frustrated"
	SentimentAngry      CustomerSentiment = "Angry"
	SentimentEscalating CustomerSentiment = "Escalating"
)

type AgentTone string

const (
	ToneProfessional AgentTone = "Professional"
	ToneNeutral      AgentTone = "Neutral"
	ToneDefensive    AgentTone = "Defensive"
	ToneEmpathetic   AgentTone = "Empathetic"
)

type ToneAnalysis struct {
	CustomerSentiment CustomerSentiment `json:"customerSentiment"`
	AgentTone         AgentTone         `json:"agentTone"`
	VolatilityScore   int               `json:"volatilityScore"`
}

// DeflectionScripts holds agent-ready lines for containing an escalation
// request without a live transfer. Present only when the analyzed context
// suggests the customer is asking for a manager or escalation.
type DeflectionScripts struct {
	EmpatheticDelay struct {
		AcknowledgeRequest   string `json:"acknowledgeRequest"`
		ReinforceOwnership   string `json:"reinforceOwnership"`
		OfferResolutionFirst string `json:"offerResolutionFirst"`
	} `json:"empatheticDelay"`
	ManagerUnavailableScript struct {
		ExplainSupervisorAvailability          string `json:"explainSupervisorAvailability"`
		OfferCallbackOption                    string `json:"offerCallbackOption"`
		OfferInternalEscalationWithoutTransfer string `json:"offerInternalEscalationWithoutTransfer"`
	} `json:"managerUnavailableScript"`
	StructuredContainment struct {
		OfferNextActionTimeline string `json:"offerNextActionTimeline"`
		OfferReferenceNumber    string `json:"offerReferenceNumber"`
		OfferFollowUpCommitment string `json:"offerFollowUpCommitment"`
	} `json:"structuredContainment"`
}

// AnalysisResult is the validated output of one risk-analysis call.
type AnalysisResult struct {
	EscalationRisk    int                `json:"escalationRisk"`
	EscalationLevel   RiskLevel          `json:"escalationLevel"`
	ComplaintRisk     int                `json:"complaintRisk"`
	ComplaintLevel    RiskLevel          `json:"complaintLevel"`
	ConfidenceScore   int                `json:"confidenceScore"`
	RiskDrivers       []string           `json:"riskDrivers"`
	ToneAnalysis      ToneAnalysis       `json:"toneAnalysis"`
	SuggestedResponse string             `json:"suggestedResponse"`
	Summary           string             `json:"summary"`
	Deflection        *DeflectionScripts `json:"escalationDeflectionOptions,omitempty"`
}
