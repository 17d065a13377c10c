// Package repositories provides data access for submissions.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/threecubed/seo-engine/pkg/apperrors"
	"github.com/threecubed/seo-engine/pkg/database"
	"github.com/threecubed/seo-engine/pkg/models"
)

// ListFilter narrows submission list queries for the review-queue views.
type ListFilter struct {
	Stage  models.WorkflowStage
	Status models.ProcessingStatus
	Limit  int
}

// PipelineResult is everything one completed pipeline run persists. The
// repository writes it as a single UPDATE so the dashboard never observes a
// half-populated record as completed.
type PipelineResult struct {
	Content       *models.GeneratedContent
	FDAData       []byte // Enrichment snapshot (JSONB)
	QAReview      *models.QAReview
	WorkflowStage models.WorkflowStage
	ProcessedAt   time.Time
}

// SubmissionRepository provides data access for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, sub *models.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Submission, error)

	// ListStuck returns submissions whose pipeline started but never wrote
	// output: status processing with no generated title.
	ListStuck(ctx context.Context, limit int) ([]*models.Submission, error)

	// MarkProcessing records pipeline entry: status processing, the given
	// stage, incremented retry count, cleared error.
	MarkProcessing(ctx context.Context, id uuid.UUID, stage models.WorkflowStage) error

	// ApplyResult atomically writes a completed pipeline run: all content
	// fields, enrichment snapshot, QA scorecard, denormalized scores, the
	// target workflow stage, and status completed, in one statement.
	ApplyResult(ctx context.Context, id uuid.UUID, result *PipelineResult) error

	// MarkFailed records pipeline failure: status failed, stage failed,
	// non-null error message.
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error

	// UpdateStage advances the human-review workflow stage.
	UpdateStage(ctx context.Context, id uuid.UUID, stage models.WorkflowStage) error
}

type submissionRepository struct {
	db *database.DB
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(db *database.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

var _ SubmissionRepository = (*submissionRepository)(nil)

const submissionColumns = `
	id, compliance_id, product_name, generic_name, indication, therapeutic_area,
	target_audience, priority_level, submitter_name, submitter_email,
	workflow_stage, ai_processing_status,
	content, fda_data, qa_review,
	qa_score, compliance_score, medical_accuracy, seo_effectiveness,
	error_message, retry_count, processed_at, created_at, updated_at`

func (r *submissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.ComplianceID == "" {
		sub.ComplianceID = NewComplianceID(sub.ID, now)
	}
	if sub.WorkflowStage == "" {
		sub.WorkflowStage = models.StageFormSubmitted
	}
	if sub.AIProcessingStatus == "" {
		sub.AIProcessingStatus = models.ProcessingPending
	}

	contentJSON, err := marshalNullable(sub.Content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	qaJSON, err := marshalNullable(sub.QAReview)
	if err != nil {
		return fmt.Errorf("marshal qa review: %w", err)
	}

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	_, err = r.db.Exec(ctx, query,
		sub.ID, sub.ComplianceID, sub.ProductName, sub.GenericName, sub.Indication, sub.TherapeuticArea,
		sub.TargetAudience, sub.PriorityLevel, sub.SubmitterName, sub.SubmitterEmail,
		sub.WorkflowStage, sub.AIProcessingStatus,
		contentJSON, nullableBytes(sub.FDAData), qaJSON,
		sub.QAScore, sub.ComplianceScore, sub.MedicalAccuracy, sub.SEOEffectiveness,
		sub.ErrorMessage, sub.RetryCount, sub.ProcessedAt, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

func (r *submissionRepository) List(ctx context.Context, filter ListFilter) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE 1=1`
	args := []any{}
	argn := 0

	if filter.Stage != "" {
		argn++
		query += fmt.Sprintf(" AND workflow_stage = $%d", argn)
		args = append(args, filter.Stage)
	}
	if filter.Status != "" {
		argn++
		query += fmt.Sprintf(" AND ai_processing_status = $%d", argn)
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		argn++
		query += fmt.Sprintf(" LIMIT $%d", argn)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

func (r *submissionRepository) ListStuck(ctx context.Context, limit int) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + `
		FROM submissions
		WHERE ai_processing_status = $1 AND (content IS NULL OR content->>'seo_title' IS NULL)
		ORDER BY updated_at ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, models.ProcessingRunning, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck submissions: %w", err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

func (r *submissionRepository) MarkProcessing(ctx context.Context, id uuid.UUID, stage models.WorkflowStage) error {
	query := `
		UPDATE submissions
		SET workflow_stage = $2,
			ai_processing_status = $3,
			retry_count = retry_count + 1,
			error_message = NULL,
			updated_at = $4
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, stage, models.ProcessingRunning, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark submission processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *submissionRepository) ApplyResult(ctx context.Context, id uuid.UUID, result *PipelineResult) error {
	if result.Content == nil || result.Content.SEOTitle == "" {
		return fmt.Errorf("refusing to complete submission without generated content")
	}
	if result.QAReview == nil {
		return fmt.Errorf("refusing to complete submission without qa review")
	}

	contentJSON, err := json.Marshal(result.Content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	qaJSON, err := json.Marshal(result.QAReview)
	if err != nil {
		return fmt.Errorf("marshal qa review: %w", err)
	}

	// One statement writes everything: the invariant is that no reader ever
	// sees status completed with missing content or QA fields.
	query := `
		UPDATE submissions
		SET workflow_stage = $2,
			ai_processing_status = $3,
			content = $4,
			fda_data = $5,
			qa_review = $6,
			qa_score = $7,
			compliance_score = $8,
			medical_accuracy = $9,
			seo_effectiveness = $10,
			error_message = NULL,
			processed_at = $11,
			updated_at = $12
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		id, result.WorkflowStage, models.ProcessingCompleted,
		contentJSON, nullableBytes(result.FDAData), qaJSON,
		result.QAReview.OverallScore,
		result.QAReview.Scores.FDACompliance,
		result.QAReview.Scores.MedicalAccuracy,
		result.QAReview.Scores.SEOEffectiveness,
		result.ProcessedAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to apply pipeline result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *submissionRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	if message == "" {
		message = "pipeline failed with no error detail"
	}

	query := `
		UPDATE submissions
		SET workflow_stage = $2,
			ai_processing_status = $3,
			error_message = $4,
			updated_at = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, models.StageFailed, models.ProcessingFailed, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark submission failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *submissionRepository) UpdateStage(ctx context.Context, id uuid.UUID, stage models.WorkflowStage) error {
	query := `
		UPDATE submissions
		SET workflow_stage = $2, updated_at = $3
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, stage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update workflow stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// NewComplianceID derives the human-readable compliance code shown on review
// screens, e.g. "SEO-2026-4F2A1C9B".
func NewComplianceID(id uuid.UUID, now time.Time) string {
	short := id.String()[:8]
	return fmt.Sprintf("SEO-%d-%s", now.Year(), toUpperHex(short))
}

func toUpperHex(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'f' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// ============================================================================
// Scanning helpers
// ============================================================================

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var sub models.Submission
	var contentJSON, fdaJSON, qaJSON []byte

	err := row.Scan(
		&sub.ID, &sub.ComplianceID, &sub.ProductName, &sub.GenericName, &sub.Indication, &sub.TherapeuticArea,
		&sub.TargetAudience, &sub.PriorityLevel, &sub.SubmitterName, &sub.SubmitterEmail,
		&sub.WorkflowStage, &sub.AIProcessingStatus,
		&contentJSON, &fdaJSON, &qaJSON,
		&sub.QAScore, &sub.ComplianceScore, &sub.MedicalAccuracy, &sub.SEOEffectiveness,
		&sub.ErrorMessage, &sub.RetryCount, &sub.ProcessedAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(contentJSON) > 0 {
		var content models.GeneratedContent
		if err := json.Unmarshal(contentJSON, &content); err != nil {
			return nil, fmt.Errorf("unmarshal content: %w", err)
		}
		sub.Content = &content
	}
	sub.FDAData = fdaJSON
	if len(qaJSON) > 0 {
		var qa models.QAReview
		if err := json.Unmarshal(qaJSON, &qa); err != nil {
			return nil, fmt.Errorf("unmarshal qa review: %w", err)
		}
		sub.QAReview = &qa
	}

	return &sub, nil
}

func scanSubmissions(rows pgx.Rows) ([]*models.Submission, error) {
	subs := []*models.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}

func marshalNullable(v any) ([]byte, error) {
	switch val := v.(type) {
	case *models.GeneratedContent:
		if val == nil {
			return nil, nil
		}
	case *models.QAReview:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
