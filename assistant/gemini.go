package assistant

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini generates replies with the Gemini API
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini returns a Gemini generator for model
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate sends history to the model with system as the system instruction
func (g *Gemini) Generate(ctx context.Context, system string, history []Message) (string, error) {
	contents := make([]*genai.Content, len(history))
	for i, m := range history {
		contents[i] = genai.NewContentFromText(m.Parts, genai.Role(m.Role))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, generationConfig(system))
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	return resp.Text(), nil
}

func generationConfig(system string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0.9),
		TopK:              genai.Ptr[float32](32),
		TopP:              genai.Ptr[float32](0.95),
		MaxOutputTokens:   8192,
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
}
