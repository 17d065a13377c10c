package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threecubed/seo-engine/pkg/fda"
	"github.com/threecubed/seo-engine/pkg/llm"
	"github.com/threecubed/seo-engine/pkg/models"
)

func testSubmission() *models.Submission {
	return &models.Submission{
		ProductName:     "Keytruda",
		GenericName:     "pembrolizumab",
		Indication:      "Advanced Melanoma",
		TherapeuticArea: "Oncology",
	}
}

func TestContentGenerator_ParsedResponse(t *testing.T) {
	mock := llm.NewMockGenerationClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{
			Content: `{"seo_title": "Keytruda (Pembrolizumab) for Advanced Melanoma", "meta_description": "Learn about Keytruda.", "primary_keywords": ["Keytruda", "pembrolizumab"]}`,
		}, nil
	}

	gen := NewContentGenerator(mock, zap.NewNop())
	result, err := gen.Generate(context.Background(), testSubmission(), &fda.Summary{})

	require.NoError(t, err)
	assert.Equal(t, ParseStatusParsed, result.Status)
	assert.Equal(t, "Keytruda (Pembrolizumab) for Advanced Melanoma", result.Content.SEOTitle)
	assert.Equal(t, 1, mock.GenerateResponseCalls)
}

func TestContentGenerator_FencedResponse(t *testing.T) {
	mock := llm.NewMockGenerationClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{
			Content: "Here you go:\n```json\n{\"seo_title\": \"Fenced Title\"}\n```",
		}, nil
	}

	gen := NewContentGenerator(mock, zap.NewNop())
	result, err := gen.Generate(context.Background(), testSubmission(), &fda.Summary{})

	require.NoError(t, err)
	assert.Equal(t, ParseStatusParsed, result.Status)
	assert.Equal(t, "Fenced Title", result.Content.SEOTitle)
}

func TestContentGenerator_GarbageFallsBack(t *testing.T) {
	mock := llm.NewMockGenerationClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{
			Content: "I'm sorry, I can't produce JSON today.",
		}, nil
	}

	gen := NewContentGenerator(mock, zap.NewNop())
	sub := testSubmission()
	result, err := gen.Generate(context.Background(), sub, &fda.Summary{})

	require.NoError(t, err, "unparseable output degrades, it does not fail")
	assert.Equal(t, ParseStatusFallback, result.Status)
	assert.NotEmpty(t, result.Content.SEOTitle)
	assert.Contains(t, result.Content.SEOTitle, "Keytruda")
	assert.Equal(t, "I'm sorry, I can't produce JSON today.", result.RawResponse)
}

func TestContentGenerator_EmptyTitleFallsBack(t *testing.T) {
	mock := llm.NewMockGenerationClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{
			Content: `{"meta_description": "parsed but no title"}`,
		}, nil
	}

	gen := NewContentGenerator(mock, zap.NewNop())
	result, err := gen.Generate(context.Background(), testSubmission(), &fda.Summary{})

	require.NoError(t, err)
	assert.Equal(t, ParseStatusFallback, result.Status)
	assert.NotEmpty(t, result.Content.SEOTitle)
}

func TestContentGenerator_ProviderErrorIsHard(t *testing.T) {
	mock := llm.NewMockGenerationClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string) (*llm.GenerateResponseResult, error) {
		return nil, errors.New("connection refused")
	}

	gen := NewContentGenerator(mock, zap.NewNop())
	result, err := gen.Generate(context.Background(), testSubmission(), &fda.Summary{})

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestContentGenerator_PromptIncludesProductFacts(t *testing.T) {
	mock := llm.NewMockGenerationClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: `{"seo_title": "T"}`}, nil
	}

	gen := NewContentGenerator(mock, zap.NewNop())
	summary := &fda.Summary{HasApprovedNDA: true, ActiveTrials: 3}
	_, err := gen.Generate(context.Background(), testSubmission(), summary)

	require.NoError(t, err)
	assert.Contains(t, mock.LastPrompt, "Keytruda")
	assert.Contains(t, mock.LastPrompt, "pembrolizumab")
	assert.Contains(t, mock.LastPrompt, "Advanced Melanoma")
	assert.NotEmpty(t, mock.LastSystemMessage)
}

func TestTemplatedContent(t *testing.T) {
	sub := testSubmission()
	content := TemplatedContent(sub)

	assert.Contains(t, content.SEOTitle, "Keytruda")
	assert.Contains(t, content.SEOTitle, "Advanced Melanoma")
	assert.Contains(t, content.MetaDescription, "pembrolizumab")
	assert.NotEmpty(t, content.PrimaryKeywords)
	assert.NotEmpty(t, content.H1Tags)
	assert.NotEmpty(t, content.H2Tags)
	assert.NotEmpty(t, content.ConsumerQuestions)
}

func TestTemplatedContent_NoGenericName(t *testing.T) {
	sub := &models.Submission{
		ProductName:     "BMN-333",
		Indication:      "Achondroplasia",
		TherapeuticArea: "Rare Disease",
	}
	content := TemplatedContent(sub)

	// Product name stands in for the missing generic name
	assert.Contains(t, content.MetaDescription, "BMN-333")
}
