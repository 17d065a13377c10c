package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/threecubed/seo-engine/pkg/apperrors"
)

// ============================================================================
// Workflow Stage
// ============================================================================

// WorkflowStage represents the human-review lifecycle position of a submission.
// State machine:
//
//	draft → form_submitted → ai_processing → seo_review → client_review → mlr_review → published
//	                              ↓                            ⇅
//	                           failed                  revision_requested
//
// Stage names are canonically snake_case.
type WorkflowStage string

const (
	StageDraft             WorkflowStage = "draft"
	StageFormSubmitted     WorkflowStage = "form_submitted"
	StageAIProcessing      WorkflowStage = "ai_processing"
	StageSEOReview         WorkflowStage = "seo_review"
	StageClientReview      WorkflowStage = "client_review"
	StageRevisionRequested WorkflowStage = "revision_requested"
	StageMLRReview         WorkflowStage = "mlr_review"
	StagePublished         WorkflowStage = "published"
	StageFailed            WorkflowStage = "failed"
)

// ValidWorkflowStages contains all valid stage values.
var ValidWorkflowStages = []WorkflowStage{
	StageDraft,
	StageFormSubmitted,
	StageAIProcessing,
	StageSEOReview,
	StageClientReview,
	StageRevisionRequested,
	StageMLRReview,
	StagePublished,
	StageFailed,
}

// IsValidWorkflowStage checks if the given stage is valid.
func IsValidWorkflowStage(s WorkflowStage) bool {
	for _, v := range ValidWorkflowStages {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransitionTo returns true if transitioning from this stage to the target is valid.
func (s WorkflowStage) CanTransitionTo(target WorkflowStage) bool {
	switch s {
	case StageDraft:
		return target == StageFormSubmitted || target == StageAIProcessing
	case StageFormSubmitted:
		return target == StageAIProcessing
	case StageAIProcessing:
		return target == StageSEOReview || target == StageRevisionRequested || target == StageFailed
	case StageSEOReview:
		return target == StageClientReview || target == StageRevisionRequested
	case StageClientReview:
		return target == StageMLRReview || target == StageRevisionRequested
	case StageRevisionRequested:
		// Revised content re-enters the automated pipeline or goes back to client review.
		return target == StageAIProcessing || target == StageClientReview
	case StageMLRReview:
		return target == StagePublished || target == StageRevisionRequested
	case StagePublished, StageFailed:
		return false // Terminal states
	default:
		return false
	}
}

// IsTerminal returns true for stages with no outgoing transitions.
func (s WorkflowStage) IsTerminal() bool {
	return s == StagePublished || s == StageFailed
}

// ============================================================================
// AI Processing Status
// ============================================================================

// ProcessingStatus represents the automated-pipeline lifecycle position,
// tracked independently of WorkflowStage because the human workflow and the
// automated enrichment can desynchronize.
// State machine: pending → processing → completed | failed.
// No transition skips processing; completed and failed both allow a return
// to processing so an operator can re-run the pipeline.
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingRunning   ProcessingStatus = "processing"
	ProcessingCompleted ProcessingStatus = "completed"
	ProcessingFailed    ProcessingStatus = "failed"
)

// ValidProcessingStatuses contains all valid status values.
var ValidProcessingStatuses = []ProcessingStatus{
	ProcessingPending,
	ProcessingRunning,
	ProcessingCompleted,
	ProcessingFailed,
}

// IsValidProcessingStatus checks if the given status is valid.
func IsValidProcessingStatus(s ProcessingStatus) bool {
	for _, v := range ValidProcessingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransitionTo returns true if transitioning from this status to the target is valid.
func (s ProcessingStatus) CanTransitionTo(target ProcessingStatus) bool {
	switch s {
	case ProcessingPending:
		return target == ProcessingRunning
	case ProcessingRunning:
		return target == ProcessingCompleted || target == ProcessingFailed
	case ProcessingCompleted, ProcessingFailed:
		// Operator-driven reprocessing re-enters the running state.
		return target == ProcessingRunning
	default:
		return false
	}
}

// ============================================================================
// Generated Content
// ============================================================================

// ConsumerQuestion is one patient-facing FAQ entry in the generated content.
type ConsumerQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// GeneratedContent holds the SEO artifacts produced by the content generator.
// All fields are nullable on the submission until generation completes.
type GeneratedContent struct {
	SEOTitle              string             `json:"seo_title"`
	MetaDescription       string             `json:"meta_description"`
	PrimaryKeywords       []string           `json:"primary_keywords"`
	LongTailKeywords      []string           `json:"long_tail_keywords"`
	H1Tags                []string           `json:"h1_tags"`
	H2Tags                []string           `json:"h2_tags"`
	ConsumerQuestions     []ConsumerQuestion `json:"consumer_questions"`
	CompetitiveAdvantages []string           `json:"competitive_advantages"`
	ContentStrategy       string             `json:"content_strategy"`
}

// ============================================================================
// QA Scorecard
// ============================================================================

// Recommendation is the gating verdict of the QA reviewer.
type Recommendation string

const (
	RecommendationApprove Recommendation = "Approve"
	RecommendationRevise  Recommendation = "Revise"
	RecommendationReject  Recommendation = "Reject"
)

// IsValidRecommendation checks if the given recommendation is valid.
func IsValidRecommendation(r Recommendation) bool {
	return r == RecommendationApprove || r == RecommendationRevise || r == RecommendationReject
}

// QAScores holds the five 0-100 rubric sub-scores.
type QAScores struct {
	MedicalAccuracy  int `json:"medical_accuracy"`
	FDACompliance    int `json:"fda_compliance"`
	SEOEffectiveness int `json:"seo_effectiveness"`
	ContentQuality   int `json:"content_quality"`
	RiskAssessment   int `json:"risk_assessment"`
}

// QAReview is the structured output of the compliance/quality review step.
type QAReview struct {
	Scores          QAScores       `json:"scores"`
	OverallScore    int            `json:"overall_score"`
	Recommendation  Recommendation `json:"recommendation"`
	Issues          []string       `json:"issues,omitempty"`
	RequiredChanges []string       `json:"required_changes,omitempty"`
	Strengths       []string       `json:"strengths,omitempty"`
	ComplianceNotes string         `json:"compliance_notes,omitempty"`
	ReviewedAt      time.Time      `json:"reviewed_at"`
	Reviewer        string         `json:"reviewer"`
}

// Passed returns true when the reviewer approved the content outright.
func (q *QAReview) Passed() bool {
	return q.Recommendation == RecommendationApprove
}

// NeedsRevision returns true when the reviewer asked for changes.
func (q *QAReview) NeedsRevision() bool {
	return q.Recommendation == RecommendationRevise
}

// Validate checks the scorecard invariants: all scores in [0,100] and a
// known recommendation.
func (q *QAReview) Validate() error {
	scores := map[string]int{
		"medical_accuracy":  q.Scores.MedicalAccuracy,
		"fda_compliance":    q.Scores.FDACompliance,
		"seo_effectiveness": q.Scores.SEOEffectiveness,
		"content_quality":   q.Scores.ContentQuality,
		"risk_assessment":   q.Scores.RiskAssessment,
		"overall_score":     q.OverallScore,
	}
	for name, score := range scores {
		if score < 0 || score > 100 {
			return fmt.Errorf("%s out of range: %d", name, score)
		}
	}
	if !IsValidRecommendation(q.Recommendation) {
		return fmt.Errorf("unknown recommendation %q", q.Recommendation)
	}
	return nil
}

// ============================================================================
// Submission
// ============================================================================

// Submission is a pharmaceutical product content request.
// It is created by form submission, mutated by the enrichment/generation/review
// pipeline, and then read and advanced by dashboard reviewers. Submissions are
// never hard-deleted in normal operation.
type Submission struct {
	ID           uuid.UUID `json:"id"`
	ComplianceID string    `json:"compliance_id"`

	// Product facts, required at creation.
	ProductName     string `json:"product_name"`
	GenericName     string `json:"generic_name"`
	Indication      string `json:"indication"`
	TherapeuticArea string `json:"therapeutic_area"`

	// Optional intake metadata.
	TargetAudience string `json:"target_audience,omitempty"`
	PriorityLevel  string `json:"priority_level,omitempty"`
	SubmitterName  string `json:"submitter_name,omitempty"`
	SubmitterEmail string `json:"submitter_email,omitempty"`

	// The two independent lifecycles.
	WorkflowStage      WorkflowStage    `json:"workflow_stage"`
	AIProcessingStatus ProcessingStatus `json:"ai_processing_status"`

	// Pipeline output, nullable until the pipeline completes.
	Content  *GeneratedContent `json:"content,omitempty"`
	FDAData  []byte            `json:"fda_data,omitempty"` // Raw enrichment snapshot (JSONB)
	QAReview *QAReview         `json:"qa_review,omitempty"`

	// Denormalized QA scores for dashboard filtering.
	QAScore          *int `json:"qa_score,omitempty"`
	ComplianceScore  *int `json:"compliance_score,omitempty"`
	MedicalAccuracy  *int `json:"medical_accuracy,omitempty"`
	SEOEffectiveness *int `json:"seo_effectiveness,omitempty"`

	// Error channel, non-null whenever AIProcessingStatus is failed.
	ErrorMessage *string `json:"error_message,omitempty"`
	RetryCount   int     `json:"retry_count"`

	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// EffectiveGenericName returns the generic name, falling back to the product
// name for compounds submitted before INN assignment.
func (s *Submission) EffectiveGenericName() string {
	if s.GenericName != "" {
		return s.GenericName
	}
	return s.ProductName
}

// ValidateIntake checks the fields required at submission-creation time.
// Submissions failing validation never enter the pipeline.
func (s *Submission) ValidateIntake() error {
	missing := []string{}
	if s.ProductName == "" {
		missing = append(missing, "product_name")
	}
	if s.Indication == "" {
		missing = append(missing, "indication")
	}
	if s.TherapeuticArea == "" {
		missing = append(missing, "therapeutic_area")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %v", apperrors.ErrValidation, missing)
	}
	return nil
}
