package risk

const systemPrompt = `You are a customer service risk analyst. Analyze the live transcript and respond with ONLY a single valid JSON object. No markdown, no commentary, no explanation.

Schema (exact keys):

{
  "escalationRisk": <number 0-100>,
  "escalationLevel": "<Low|Moderate|High|Critical>",
  "complaintRisk": <number 0-100>,
  "complaintLevel": "<Low|Moderate|High|Critical>",
  "confidenceScore": <number 0-100>,
  "riskDrivers": ["<string>", "<string>", "<string>"],
  "toneAnalysis": {
    "customerSentiment": "<Calm|Frustrated|Angry|Escalating>",
    "agentTone": "<Professional|Neutral|Defensive|Empathetic>",
    "volatilityScore": <number 0-100>
  },
  "suggestedResponse": "<string>",
  "summary": "<string>"
}

Constraints (prioritize speed and brevity):
- riskDrivers: max 3 short phrases. Tactical guidance only.
- suggestedResponse: max 2 sentences. What the agent could say next.
- summary: one short sentence.
- Levels: Low <25, Moderate 25-49, High 50-74, Critical 75+.
- Output only the JSON object.`

const deflectionAddon = `

If the transcript suggests the customer is asking for a manager, supervisor, escalation, complaint, or to speak to someone higher, ALSO include this key in your JSON (same object, no extra wrapper):
"escalationDeflectionOptions": {
  "empatheticDelay": {
    "acknowledgeRequest": "<one short script line: acknowledge their request>",
    "reinforceOwnership": "<one short script line: reinforce that you own resolving this>",
    "offerResolutionFirst": "<one short script line: offer to resolve before escalating>"
  },
  "managerUnavailableScript": {
    "explainSupervisorAvailability": "<one short script line: explain supervisor availability without refusing>",
    "offerCallbackOption": "<one short script line: offer callback option>",
    "offerInternalEscalationWithoutTransfer": "<one short script line: offer internal escalation without live transfer>"
  },
  "structuredContainment": {
    "offerNextActionTimeline": "<one short script line: offer a clear next-action timeline>",
    "offerReferenceNumber": "<one short script line: offer a reference/case number>",
    "offerFollowUpCommitment": "<one short script line: commit to follow-up>"
  }
}

Tone for all deflection scripts: reduce confrontation, avoid refusal or dismissive tone, maintain authority and empathy. One sentence per value, agent-ready phrasing.`

const empathyAddon = `

This transcript may mention medical, health, or urgent topics. Prioritize empathy in your response:
- suggestedResponse: Lead with acknowledgment and care; use warmer, more supportive language.
- summary: Note any sensitivity around health/urgency.
- riskDrivers: Include emotional support as a consideration.
- Keep tone calm and reassuring while remaining accurate and helpful.`

const regenerateAddon = `

This is a regenerate request. Provide an alternative approach with a different phrasing style. Avoid repeating prior structure. Do not reuse any cached or previous response; generate a fresh response.`

// buildPrompt assembles the system prompt for one call and reports whether
// the deflection block is expected in the response.
func buildPrompt(transcript string, opts Options) (prompt string, includeDeflection bool) {
	includeDeflection = hasEscalationKeywords(transcript)

	prompt = systemPrompt
	if includeDeflection {
		prompt += deflectionAddon
	}
	if hasMedicalOrUrgentKeywords(transcript) {
		prompt += empathyAddon
	}
	if opts.Regenerate {
		prompt += regenerateAddon
	}
	return prompt, includeDeflection
}
