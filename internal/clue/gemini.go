package clue

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultRegion = "europe-west1"
	defaultModel  = "gemini-2.5-flash"
)

const describePrompt = `Écris une définition de mots croisés pour le mot « %s ».

Règles :
- Une seule phrase, 12 mots maximum.
- Ne cite jamais le mot lui-même ni un mot de la même famille.
- La définition doit être exigeante mais juste.
- Réponds UNIQUEMENT avec la définition, sans guillemets ni commentaire.`

// Gemini describes words with a Gemini model on VertexAI.
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a client using Application Default Credentials.
// Set GOOGLE_APPLICATION_CREDENTIALS to the service account key file path.
func NewGemini(ctx context.Context, projectID, region, model string) (*Gemini, error) {
	if region == "" {
		region = defaultRegion
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client:    client,
		modelName: model,
	}, nil
}

// Describe asks the model for a one-line definition of word.
func (g *Gemini) Describe(ctx context.Context, word string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		genai.Text(fmt.Sprintf(describePrompt, word)),
		generateConfig(),
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.Trim(strings.TrimSpace(resp.Text()), `"«» `)
	if text == "" {
		return "", ErrEmptyDescription
	}
	return text, nil
}

// generateConfig disables thinking: on 2.5 models thinking tokens count
// against MaxOutputTokens and would leave no room for the answer.
func generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(0.7)),
		MaxOutputTokens: 64,
		ThinkingConfig:  &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	}
}

// Close releases resources held by the client.
func (g *Gemini) Close() error {
	return nil
}
