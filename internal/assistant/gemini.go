package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"safe-assistant/internal/i18n"
)

// Turn is one serialized conversation turn replayed to the model on every
// request. Role is "user" or "model".
type Turn struct {
	Role   string  `json:"role"`
	Text   string  `json:"text"`
	Images []Image `json:"images,omitempty"`
}

// EncodeHistory serializes a turn history for storage.
func EncodeHistory(turns []Turn) ([]byte, error) {
	raw, err := json.Marshal(turns)
	if err != nil {
		return nil, fmt.Errorf("failed to encode turn history: %w", err)
	}
	return raw, nil
}

// DecodeHistory restores a turn history; nil input yields an empty history.
func DecodeHistory(raw []byte) ([]Turn, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var turns []Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("failed to decode turn history: %w", err)
	}
	return turns, nil
}

// Generator produces model responses. The Gemini implementation is the only
// production one; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, lang i18n.Language, history []Turn, prompt Prompt) (string, error)
	DescribeImages(ctx context.Context, lang i18n.Language, images []Image) (string, error)
}

const (
	answerTemperature   float32 = 0.5
	describeTemperature float32 = 0.1
)

// Gemini generates responses through the Gemini API, replaying the stored
// turn history on every call.
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini returns a Generator backed by the given Gemini model.
func NewGemini(client *genai.Client, modelName string) *Gemini {
	return &Gemini{client: client, modelName: modelName}
}

// Generate answers the prompt in the context of the prior history, with the
// per-language first-aid system instruction applied.
func (g *Gemini) Generate(ctx context.Context, lang i18n.Language, history []Turn, prompt Prompt) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, turnContent(turn))
	}
	contents = append(contents, turnContent(Turn{Role: "user", Text: prompt.Text, Images: prompt.Images}))

	return g.generate(ctx, contents, i18n.SystemPrompt(lang), answerTemperature)
}

// DescribeImages returns a per-image textual description in the requested
// language. It runs outside the conversation history.
func (g *Gemini) DescribeImages(ctx context.Context, lang i18n.Language, images []Image) (string, error) {
	contents := []*genai.Content{turnContent(Turn{Role: "user", Text: "Describe the images.", Images: images})}
	return g.generate(ctx, contents, i18n.ImagePrompt(lang), describeTemperature)
}

func (g *Gemini) generate(ctx context.Context, contents []*genai.Content, system string, temperature float32) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       &temperature,
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model returned no candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func turnContent(turn Turn) *genai.Content {
	var parts []*genai.Part
	if turn.Text != "" {
		parts = append(parts, &genai.Part{Text: turn.Text})
	}
	for _, img := range turn.Images {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}})
	}
	return &genai.Content{Role: turn.Role, Parts: parts}
}
