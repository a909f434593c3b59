package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/internal/domain/scoring"
	openai "github.com/sashabaranov/go-openai"
)

// Default LLM feed configuration constants.
const (
	defaultModel       = "gpt-4o-mini"
	defaultTemperature = 0.1
	defaultMaxTokens   = 200
)

const systemPrompt = `You are an urban safety analyst. Given coordinates and a local time,
estimate area safety factors. Respond with a single JSON object:
{"crime_index": n, "lighting": n, "population_density": n, "emergency_proximity": n, "confidence": n}
where every value is an integer 0-100 and higher means safer (for confidence,
higher means more certain). Respond with JSON only.`

// LLMFeed asks a chat model for an area assessment.
type LLMFeed struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewLLMFeed creates an LLM-backed feed. A non-empty baseURL redirects the
// client to an OpenAI-compatible endpoint.
func NewLLMFeed(apiKey, baseURL string, opts ...LLMOption) *LLMFeed {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	f := &LLMFeed{
		client:      openai.NewClientWithConfig(cfg),
		model:       defaultModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}

	// Apply all options
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// AreaAssessment queries the model and parses its JSON reply.
func (f *LLMFeed) AreaAssessment(ctx context.Context, lat, lng float64, at time.Time) (scoring.Assessment, error) {
	prompt := fmt.Sprintf(
		"Coordinates: %.5f, %.5f. Local time: %s (%s).",
		lat, lng, at.Format("15:04"), at.Weekday(),
	)

	resp, err := f.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: f.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: f.temperature,
		MaxTokens:   f.maxTokens,
	})
	if err != nil {
		return scoring.Assessment{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return scoring.Assessment{}, fmt.Errorf("%w: empty completion", ErrBadResponse)
	}

	return ParseAssessment(resp.Choices[0].Message.Content)
}

// assessmentPayload mirrors the JSON shape the model is prompted for.
type assessmentPayload struct {
	CrimeIndex         *float64 `json:"crime_index"`
	Lighting           *float64 `json:"lighting"`
	PopulationDensity  *float64 `json:"population_density"`
	EmergencyProximity *float64 `json:"emergency_proximity"`
	Confidence         *float64 `json:"confidence"`
}

// ParseAssessment decodes a model reply into an assessment. Out-of-range
// values are clamped to [0,100]; missing factors fail the parse.
func ParseAssessment(content string) (scoring.Assessment, error) {
	var p assessmentPayload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return scoring.Assessment{}, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if p.CrimeIndex == nil || p.Lighting == nil || p.PopulationDensity == nil ||
		p.EmergencyProximity == nil || p.Confidence == nil {
		return scoring.Assessment{}, fmt.Errorf("%w: incomplete factor set", ErrBadResponse)
	}

	a := scoring.Assessment{
		Factors: map[string]float64{
			model.FactorCrime:     clamp(*p.CrimeIndex),
			model.FactorLighting:  clamp(*p.Lighting),
			model.FactorDensity:   clamp(*p.PopulationDensity),
			model.FactorProximity: clamp(*p.EmergencyProximity),
		},
		Confidence: int(clamp(*p.Confidence)),
	}
	return a, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
