package llm

import "context"

// MockGenerationClient is a configurable mock for testing content generation.
// Set the function fields to control behavior in tests.
type MockGenerationClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, returns an empty result and nil error.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string) (*GenerateResponseResult, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Endpoint is returned by GetEndpoint. Defaults to "http://mock-endpoint".
	Endpoint string

	// Call tracking for verification
	GenerateResponseCalls int
	LastPrompt            string
	LastSystemMessage     string
}

// NewMockGenerationClient creates a new mock with sensible defaults.
func NewMockGenerationClient() *MockGenerationClient {
	return &MockGenerationClient{
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// GenerateResponse implements GenerationClient.
func (m *MockGenerationClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string) (*GenerateResponseResult, error) {
	m.GenerateResponseCalls++
	m.LastPrompt = prompt
	m.LastSystemMessage = systemMessage
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage)
	}
	return &GenerateResponseResult{}, nil
}

// GetModel implements GenerationClient.
func (m *MockGenerationClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements GenerationClient.
func (m *MockGenerationClient) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}

var _ GenerationClient = (*MockGenerationClient)(nil)

// MockReviewClient is a configurable mock for testing QA review.
type MockReviewClient struct {
	// ReviewFunc is called when Review is invoked.
	// If nil, returns an empty result and nil error.
	ReviewFunc func(ctx context.Context, prompt string) (*GenerateResponseResult, error)

	// Model is returned by GetModel. Defaults to "mock-review-model".
	Model string

	// Call tracking for verification
	ReviewCalls int
	LastPrompt  string
}

// NewMockReviewClient creates a new mock review client.
func NewMockReviewClient() *MockReviewClient {
	return &MockReviewClient{Model: "mock-review-model"}
}

// Review implements ReviewClient.
func (m *MockReviewClient) Review(ctx context.Context, prompt string) (*GenerateResponseResult, error) {
	m.ReviewCalls++
	m.LastPrompt = prompt
	if m.ReviewFunc != nil {
		return m.ReviewFunc(ctx, prompt)
	}
	return &GenerateResponseResult{}, nil
}

// GetModel implements ReviewClient.
func (m *MockReviewClient) GetModel() string {
	if m.Model == "" {
		return "mock-review-model"
	}
	return m.Model
}

var _ ReviewClient = (*MockReviewClient)(nil)
