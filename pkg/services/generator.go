// Package services implements the per-submission pipeline: enrichment,
// content generation, QA review, and the state writes that tie them together.
package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/threecubed/seo-engine/pkg/fda"
	"github.com/threecubed/seo-engine/pkg/llm"
	"github.com/threecubed/seo-engine/pkg/models"
	"github.com/threecubed/seo-engine/pkg/prompts"
)

// ParseStatus tags how a content result was obtained, so callers branch
// explicitly instead of relying on error chains.
type ParseStatus string

const (
	// ParseStatusParsed means the model's JSON parsed (directly or after
	// extraction from fences/prose).
	ParseStatusParsed ParseStatus = "parsed"
	// ParseStatusFallback means no JSON could be extracted and the content
	// was built from the deterministic template instead.
	ParseStatusFallback ParseStatus = "fallback"
)

// ContentResult is the content generator's output. Content is always
// non-nil: when the model response is unusable the deterministic template
// fills in, never nothing.
type ContentResult struct {
	Status  ParseStatus
	Content *models.GeneratedContent
	// RawResponse preserves the model output for audit when Status is fallback.
	RawResponse string
}

// ContentGenerator produces SEO content artifacts from product facts and an
// enrichment summary via one chat-completion call.
type ContentGenerator struct {
	client llm.GenerationClient
	logger *zap.Logger
}

// NewContentGenerator creates a new content generator.
func NewContentGenerator(client llm.GenerationClient, logger *zap.Logger) *ContentGenerator {
	return &ContentGenerator{
		client: client,
		logger: logger.Named("generator"),
	}
}

// Generate calls the generation model and parses its response. Provider
// failure (network, non-2xx) is a hard error; an unparseable response is not:
// it degrades to the templated fallback so the pipeline always has usable
// content to carry forward.
func (g *ContentGenerator) Generate(ctx context.Context, sub *models.Submission, summary *fda.Summary) (*ContentResult, error) {
	prompt := prompts.BuildContentPrompt(sub, summary)

	result, err := g.client.GenerateResponse(ctx, prompt, prompts.GenerationSystemMessage)
	if err != nil {
		return nil, fmt.Errorf("content generation: %w", err)
	}

	content, err := llm.ParseJSONResponse[models.GeneratedContent](result.Content)
	if err != nil {
		g.logger.Warn("generation response unparseable, using templated fallback",
			zap.String("product", sub.ProductName),
			zap.Int("response_len", len(result.Content)),
			zap.Error(err))
		return &ContentResult{
			Status:      ParseStatusFallback,
			Content:     TemplatedContent(sub),
			RawResponse: result.Content,
		}, nil
	}

	if content.SEOTitle == "" {
		// A parsed object with no title is as useless as garbage text.
		g.logger.Warn("generation response missing seo_title, using templated fallback",
			zap.String("product", sub.ProductName))
		return &ContentResult{
			Status:      ParseStatusFallback,
			Content:     TemplatedContent(sub),
			RawResponse: result.Content,
		}, nil
	}

	return &ContentResult{
		Status:  ParseStatusParsed,
		Content: &content,
	}, nil
}

// TemplatedContent builds deterministic SEO content from the raw product
// facts. It is the generation fallback of last resort: factual, unexciting,
// and always valid.
func TemplatedContent(sub *models.Submission) *models.GeneratedContent {
	generic := sub.EffectiveGenericName()
	area := sub.TherapeuticArea
	if area == "" {
		area = "Treatment"
	}

	return &models.GeneratedContent{
		SEOTitle: fmt.Sprintf("%s for %s | %s", sub.ProductName, sub.Indication, area),
		MetaDescription: fmt.Sprintf(
			"Learn about %s (%s) for %s. Treatment information, dosing, and safety data.",
			sub.ProductName, generic, sub.Indication),
		PrimaryKeywords: []string{
			sub.ProductName,
			generic,
			sub.Indication,
			area,
		},
		LongTailKeywords: []string{
			fmt.Sprintf("what is %s used for", generic),
			fmt.Sprintf("how does %s work", sub.ProductName),
			fmt.Sprintf("%s side effects", sub.ProductName),
		},
		H1Tags: []string{
			fmt.Sprintf("%s (%s) for %s", sub.ProductName, generic, sub.Indication),
		},
		H2Tags: []string{
			fmt.Sprintf("What is %s?", sub.ProductName),
			"How It Works",
			"Clinical Trial Results",
			"Safety and Side Effects",
			"Dosing Information",
		},
		ConsumerQuestions: []models.ConsumerQuestion{
			{
				Question: fmt.Sprintf("What is %s used for?", sub.ProductName),
				Answer:   fmt.Sprintf("%s (%s) is being developed for %s.", sub.ProductName, generic, sub.Indication),
			},
		},
		ContentStrategy: fmt.Sprintf(
			"Target patients and HCPs searching for %s treatments. Focus on clinical efficacy, safety profile, and differentiation.",
			sub.Indication),
	}
}
