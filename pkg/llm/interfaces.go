// Package llm provides clients for the text-generation endpoints the
// pipeline depends on: an OpenAI-compatible chat-completion client used for
// SEO content generation and an Anthropic messages client used for QA review.
package llm

import "context"

// GenerationClient defines the chat-completion operations used by the
// content generator. Use this interface for dependency injection to enable
// mocking in tests.
type GenerationClient interface {
	// GenerateResponse sends a prompt with a system instruction and returns
	// the first choice's message content.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// ReviewClient defines the messages operation used by the QA reviewer.
type ReviewClient interface {
	// Review sends a review prompt and returns the model's text response.
	Review(ctx context.Context, prompt string) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// GenerateResponseResult holds a completion's content and usage stats.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
