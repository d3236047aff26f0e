package risk

import (
	"context"

	vertexgenai "cloud.google.com/go/vertexai/genai"

	"github.com/coachline/coachline/internal/models"
)

// VertexGemini runs risk analysis on Gemini through Vertex AI, asking for a
// JSON-mode single response.
type VertexGemini struct {
	client    *vertexgenai.Client
	modelName string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	return &VertexGemini{client: c, modelName: modelName}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Analyze(ctx context.Context, transcript string, opts Options) (*models.AnalysisResult, error) {
	prompt, includeDeflection := buildPrompt(transcript, opts)

	m := v.client.GenerativeModel(v.modelName)
	m.SystemInstruction = &vertexgenai.Content{
		Parts: []vertexgenai.Part{vertexgenai.Text(prompt)},
	}
	m.GenerationConfig.ResponseMIMEType = "application/json"
	if opts.Regenerate {
		m.SetTemperature(0.7)
	} else {
		m.SetTemperature(0.2)
	}
	maxTokens := int32(600)
	if includeDeflection {
		maxTokens = 950
	}
	m.SetMaxOutputTokens(maxTokens)

	user := transcript
	if user == "" {
		user = "(empty transcript)"
	}

	resp, err := m.GenerateContent(ctx, vertexgenai.Text(user))
	if err != nil {
		return nil, err
	}

	var raw string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				raw += string(t)
			}
		}
	}

	return parseResult(raw, includeDeflection)
}
