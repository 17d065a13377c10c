package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/threecubed/seo-engine/pkg/fda"
	"github.com/threecubed/seo-engine/pkg/models"
	"github.com/threecubed/seo-engine/pkg/repositories"
)

// Enricher gathers regulatory context for a product. Implementations are
// fault tolerant and return partial or empty results instead of errors.
type Enricher interface {
	Enrich(ctx context.Context, productName, genericName, indication string) *fda.Enrichment
}

// Generator produces SEO content for a submission.
type Generator interface {
	Generate(ctx context.Context, sub *models.Submission, summary *fda.Summary) (*ContentResult, error)
}

// Reviewer scores generated content against the compliance rubric.
type Reviewer interface {
	Review(ctx context.Context, content *models.GeneratedContent, sub *models.Submission, summary *fda.Summary) (*models.QAReview, error)
}

// Processor runs the full enrichment, generation, and review pipeline for a
// single submission and persists the outcome.
type Processor struct {
	repo      repositories.SubmissionRepository
	enricher  Enricher
	generator Generator
	reviewer  Reviewer
	logger    *zap.Logger
}

// NewProcessor creates a pipeline processor.
func NewProcessor(repo repositories.SubmissionRepository, enricher Enricher, generator Generator, reviewer Reviewer, logger *zap.Logger) *Processor {
	return &Processor{
		repo:      repo,
		enricher:  enricher,
		generator: generator,
		reviewer:  reviewer,
		logger:    logger.Named("pipeline"),
	}
}

// stageForRecommendation maps the QA verdict to the next human-review stage.
// Approved and revise-worthy content both land in seo_review so an editor
// sees it; rejected content goes straight to revision_requested.
func stageForRecommendation(rec models.Recommendation) models.WorkflowStage {
	if rec == models.RecommendationReject {
		return models.StageRevisionRequested
	}
	return models.StageSEOReview
}

// Process runs the pipeline for one submission. Any failure after entry marks
// the submission failed with an error message; Process itself returns the
// failure so webhook callers can surface it.
func (p *Processor) Process(ctx context.Context, id uuid.UUID) (err error) {
	logger := p.logger.With(zap.String("submission_id", id.String()))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
			logger.Error("Pipeline panicked", zap.Any("panic", r))
			p.fail(ctx, id, err)
		}
	}()

	sub, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load submission: %w", err)
	}

	// A submission already in processing is a stalled run being retried, not
	// a state violation.
	if sub.AIProcessingStatus != models.ProcessingRunning &&
		!sub.AIProcessingStatus.CanTransitionTo(models.ProcessingRunning) {
		return fmt.Errorf("submission %s is %s and cannot enter processing", id, sub.AIProcessingStatus)
	}

	// Reruns of already-reviewed submissions keep their stage; fresh or
	// failed submissions move to ai_processing.
	stage := sub.WorkflowStage
	if sub.WorkflowStage.CanTransitionTo(models.StageAIProcessing) {
		stage = models.StageAIProcessing
	}
	if err := p.repo.MarkProcessing(ctx, id, stage); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	logger.Info("Pipeline started",
		zap.String("product", sub.ProductName),
		zap.String("compliance_id", sub.ComplianceID))

	enrichment := p.enricher.Enrich(ctx, sub.ProductName, sub.EffectiveGenericName(), sub.Indication)
	fdaJSON, err := json.Marshal(enrichment)
	if err != nil {
		p.fail(ctx, id, fmt.Errorf("marshal enrichment: %w", err))
		return fmt.Errorf("marshal enrichment: %w", err)
	}

	contentResult, err := p.generator.Generate(ctx, sub, &enrichment.Summary)
	if err != nil {
		p.fail(ctx, id, fmt.Errorf("content generation: %w", err))
		return fmt.Errorf("content generation: %w", err)
	}
	if contentResult.Status == ParseStatusFallback {
		logger.Warn("Generated content fell back to template",
			zap.String("product", sub.ProductName))
	}

	review, err := p.reviewer.Review(ctx, contentResult.Content, sub, &enrichment.Summary)
	if err != nil {
		p.fail(ctx, id, fmt.Errorf("qa review: %w", err))
		return fmt.Errorf("qa review: %w", err)
	}

	result := &repositories.PipelineResult{
		Content:       contentResult.Content,
		FDAData:       fdaJSON,
		QAReview:      review,
		WorkflowStage: stageForRecommendation(review.Recommendation),
		ProcessedAt:   time.Now().UTC(),
	}
	if err := p.repo.ApplyResult(ctx, id, result); err != nil {
		p.fail(ctx, id, fmt.Errorf("persist result: %w", err))
		return fmt.Errorf("persist result: %w", err)
	}

	logger.Info("Pipeline completed",
		zap.String("recommendation", string(review.Recommendation)),
		zap.Int("overall_score", review.OverallScore),
		zap.String("next_stage", string(result.WorkflowStage)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// fail records the failure on the submission. The write uses a fresh context
// so a cancelled pipeline context still leaves an error trail.
func (p *Processor) fail(ctx context.Context, id uuid.UUID, cause error) {
	writeCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	if err := p.repo.MarkFailed(writeCtx, id, cause.Error()); err != nil {
		p.logger.Error("Failed to record pipeline failure",
			zap.String("submission_id", id.String()),
			zap.NamedError("cause", cause),
			zap.Error(err))
	}
}
