package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/threecubed/seo-engine/pkg/apperrors"
	"github.com/threecubed/seo-engine/pkg/fda"
	"github.com/threecubed/seo-engine/pkg/jsonutil"
	"github.com/threecubed/seo-engine/pkg/llm"
	"github.com/threecubed/seo-engine/pkg/models"
	"github.com/threecubed/seo-engine/pkg/prompts"
)

// QAReviewer scores generated content against compliance and accuracy
// rubrics and issues the gating recommendation.
//
// Unlike the content generator, the reviewer has no templated fallback: a
// fabricated compliance score would let unreviewed content advance, so an
// unparseable model response is a hard failure.
type QAReviewer struct {
	client llm.ReviewClient
	logger *zap.Logger
}

// NewQAReviewer creates a new QA reviewer.
func NewQAReviewer(client llm.ReviewClient, logger *zap.Logger) *QAReviewer {
	return &QAReviewer{
		client: client,
		logger: logger.Named("reviewer"),
	}
}

// rawReview mirrors the requested scorecard schema with RawMessage score
// fields, tolerating models that return "85" instead of 85.
type rawReview struct {
	Scores struct {
		MedicalAccuracy  json.RawMessage `json:"medical_accuracy"`
		FDACompliance    json.RawMessage `json:"fda_compliance"`
		SEOEffectiveness json.RawMessage `json:"seo_effectiveness"`
		ContentQuality   json.RawMessage `json:"content_quality"`
		RiskAssessment   json.RawMessage `json:"risk_assessment"`
	} `json:"scores"`
	OverallScore    json.RawMessage `json:"overall_score"`
	Recommendation  json.RawMessage `json:"recommendation"`
	Issues          []string        `json:"issues"`
	RequiredChanges []string        `json:"required_changes"`
	Strengths       []string        `json:"strengths"`
	ComplianceNotes string          `json:"compliance_notes"`
}

// Review scores the generated content and returns the scorecard, annotated
// with review time and reviewer identity.
func (r *QAReviewer) Review(ctx context.Context, content *models.GeneratedContent, sub *models.Submission, summary *fda.Summary) (*models.QAReview, error) {
	prompt := prompts.BuildReviewPrompt(content, sub, summary)

	result, err := r.client.Review(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("qa review: %w", err)
	}

	raw, err := llm.ParseJSONResponse[rawReview](result.Content)
	if err != nil {
		r.logger.Error("qa response unparseable",
			zap.String("product", sub.ProductName),
			zap.Int("response_len", len(result.Content)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQAUnparseable, err)
	}

	review, err := r.buildScorecard(&raw)
	if err != nil {
		r.logger.Error("qa scorecard invalid",
			zap.String("product", sub.ProductName),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQAUnparseable, err)
	}

	r.logger.Info("qa review completed",
		zap.String("product", sub.ProductName),
		zap.Int("overall_score", review.OverallScore),
		zap.String("recommendation", string(review.Recommendation)))

	return review, nil
}

func (r *QAReviewer) buildScorecard(raw *rawReview) (*models.QAReview, error) {
	review := &models.QAReview{
		Issues:          raw.Issues,
		RequiredChanges: raw.RequiredChanges,
		Strengths:       raw.Strengths,
		ComplianceNotes: raw.ComplianceNotes,
		ReviewedAt:      time.Now().UTC(),
		Reviewer:        r.client.GetModel(),
	}

	scores := []struct {
		name string
		raw  json.RawMessage
		dst  *int
	}{
		{"medical_accuracy", raw.Scores.MedicalAccuracy, &review.Scores.MedicalAccuracy},
		{"fda_compliance", raw.Scores.FDACompliance, &review.Scores.FDACompliance},
		{"seo_effectiveness", raw.Scores.SEOEffectiveness, &review.Scores.SEOEffectiveness},
		{"content_quality", raw.Scores.ContentQuality, &review.Scores.ContentQuality},
		{"risk_assessment", raw.Scores.RiskAssessment, &review.Scores.RiskAssessment},
		{"overall_score", raw.OverallScore, &review.OverallScore},
	}
	for _, s := range scores {
		v, err := jsonutil.FlexibleIntValue(s.raw)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", s.name, err)
		}
		*s.dst = v
	}

	review.Recommendation = normalizeRecommendation(jsonutil.FlexibleStringValue(raw.Recommendation))

	if err := review.Validate(); err != nil {
		return nil, err
	}
	return review, nil
}

// normalizeRecommendation maps recommendation spellings ("approve",
// "APPROVED", trailing whitespace) onto the canonical tri-state. Unknown
// values pass through so Validate rejects them with the original text.
func normalizeRecommendation(s string) models.Recommendation {
	trimmed := strings.TrimSpace(s)
	switch {
	case strings.EqualFold(trimmed, "approve") || strings.EqualFold(trimmed, "approved"):
		return models.RecommendationApprove
	case strings.EqualFold(trimmed, "revise"):
		return models.RecommendationRevise
	case strings.EqualFold(trimmed, "reject") || strings.EqualFold(trimmed, "rejected"):
		return models.RecommendationReject
	default:
		return models.Recommendation(trimmed)
	}
}
