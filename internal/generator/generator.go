package generator

import (
	"context"
	"fmt"
	"log"
	"os"

	"docquiz/internal/config"
)

const defaultModel = "claude-sonnet-4-20250514"

// Generator turns chunks of source text into validated question batches.
type Generator struct {
	llm   LLMClient
	model string
}

// New wraps an explicit LLM client; tests use this with fakes.
func New(llm LLMClient) *Generator {
	return &Generator{llm: llm, model: "custom"}
}

// NewFromConfig selects the provider: "mock" always works offline;
// "anthropic" (the default when an API key is present) calls the API.
func NewFromConfig(cfg config.Config) *Generator {
	provider := cfg.Generator.Provider
	if provider == "" {
		if os.Getenv("ANTHROPIC_API_KEY") != "" {
			provider = "anthropic"
		} else {
			provider = "mock"
		}
	}

	if provider == "mock" {
		log.Println("generator using mock client")
		return &Generator{llm: NewMockClient(), model: "mock"}
	}

	model := cfg.Generator.Model
	if model == "" {
		model = defaultModel
	}
	log.Printf("generator using anthropic model %s", model)
	return &Generator{llm: NewAPIClient(model), model: model}
}

// ModelName reports the backing model, for logs.
func (g *Generator) ModelName() string {
	return g.model
}

// GenerateBatch produces questions for one chunk of source text.
func (g *Generator) GenerateBatch(ctx context.Context, text string, numMCQ, numSAQ int, difficulty string) (*GeneratedBatch, error) {
	response, err := g.llm.Complete(ctx, systemPrompt(), userPrompt(text, numMCQ, numSAQ, difficulty))
	if err != nil {
		return nil, fmt.Errorf("generate batch: %w", err)
	}

	batch, err := ParseBatch(response)
	if err != nil {
		return nil, fmt.Errorf("parse batch: %w", err)
	}
	return batch, nil
}
