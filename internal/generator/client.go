package generator

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// LLMClient is the seam between the generation pipeline and the model
// provider. Both the Anthropic client and the mock satisfy it.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// APIClient calls the Anthropic Messages API.
type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   8192,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return "", err
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in API response")
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("retrying anthropic call in %v (attempt %d)", backoff, attempt+1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("anthropic attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// MockClient returns a canned batch without any network call; used for
// local development and tests.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return mockBatchJSON, nil
}

const mockBatchJSON = `{
  "questions": [
    {
      "type": "MCQ",
      "question": "Which statement best summarizes the passage?",
      "options": ["It describes a process", "It argues a position", "It lists examples", "It defines a term"],
      "answer": "A",
      "explanation": "The passage walks through a sequence of steps."
    },
    {
      "type": "MCQ",
      "question": "What does the author identify as the main constraint?",
      "options": ["Time", "Budget", "Scope", "Tooling"],
      "answer": "C",
      "explanation": "Scope is named explicitly as the limiting factor."
    },
    {
      "type": "MCQ",
      "question": "Which term is used for the repeated cycle described?",
      "options": ["Iteration", "Recursion", "Batching", "Streaming"],
      "answer": "A",
      "explanation": "The text calls each repetition an iteration."
    },
    {
      "type": "SAQ",
      "question": "In one sentence, state the passage's central claim.",
      "answer": "The described process improves outcomes through repeated small corrections.",
      "explanation": "The conclusion restates the claim about incremental correction."
    },
    {
      "type": "SAQ",
      "question": "Name the trade-off the author acknowledges.",
      "answer": "Speed is traded for accuracy.",
      "explanation": "The author concedes slower progress in exchange for fewer errors."
    }
  ]
}`
