package repositories

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/threecubed/seo-engine/pkg/apperrors"
	"github.com/threecubed/seo-engine/pkg/models"
)

// MockSubmissionRepository is a configurable in-memory implementation for
// tests. Function fields override individual operations; unset fields fall
// back to the in-memory map.
type MockSubmissionRepository struct {
	mu          sync.Mutex
	Submissions map[uuid.UUID]*models.Submission

	CreateFunc         func(ctx context.Context, sub *models.Submission) error
	GetByIDFunc        func(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	ListFunc           func(ctx context.Context, filter ListFilter) ([]*models.Submission, error)
	ListStuckFunc      func(ctx context.Context, limit int) ([]*models.Submission, error)
	MarkProcessingFunc func(ctx context.Context, id uuid.UUID, stage models.WorkflowStage) error
	ApplyResultFunc    func(ctx context.Context, id uuid.UUID, result *PipelineResult) error
	MarkFailedFunc     func(ctx context.Context, id uuid.UUID, message string) error
	UpdateStageFunc    func(ctx context.Context, id uuid.UUID, stage models.WorkflowStage) error

	ApplyResultCalls int
	MarkFailedCalls  int
	LastFailure      string
	LastResult       *PipelineResult
}

// NewMockSubmissionRepository creates an empty in-memory repository.
func NewMockSubmissionRepository() *MockSubmissionRepository {
	return &MockSubmissionRepository{
		Submissions: make(map[uuid.UUID]*models.Submission),
	}
}

var _ SubmissionRepository = (*MockSubmissionRepository)(nil)

// AppliedCount returns how many times ApplyResult ran. Safe to call while a
// pipeline goroutine is still writing.
func (m *MockSubmissionRepository) AppliedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ApplyResultCalls
}

// Put seeds a submission directly into the store.
func (m *MockSubmissionRepository) Put(sub *models.Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Submissions[sub.ID] = sub
}

func (m *MockSubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, sub)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.ComplianceID == "" {
		sub.ComplianceID = "SEO-TEST-" + sub.ID.String()[:8]
	}
	if sub.AIProcessingStatus == "" {
		sub.AIProcessingStatus = models.ProcessingPending
	}
	m.Submissions[sub.ID] = sub
	return nil
}

func (m *MockSubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.Submissions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return sub, nil
}

func (m *MockSubmissionRepository) List(ctx context.Context, filter ListFilter) ([]*models.Submission, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := []*models.Submission{}
	for _, sub := range m.Submissions {
		if filter.Stage != "" && sub.WorkflowStage != filter.Stage {
			continue
		}
		if filter.Status != "" && sub.AIProcessingStatus != filter.Status {
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (m *MockSubmissionRepository) ListStuck(ctx context.Context, limit int) ([]*models.Submission, error) {
	if m.ListStuckFunc != nil {
		return m.ListStuckFunc(ctx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := []*models.Submission{}
	for _, sub := range m.Submissions {
		if sub.AIProcessingStatus != models.ProcessingRunning {
			continue
		}
		if sub.Content != nil && sub.Content.SEOTitle != "" {
			continue
		}
		subs = append(subs, sub)
		if len(subs) == limit {
			break
		}
	}
	return subs, nil
}

func (m *MockSubmissionRepository) MarkProcessing(ctx context.Context, id uuid.UUID, stage models.WorkflowStage) error {
	if m.MarkProcessingFunc != nil {
		return m.MarkProcessingFunc(ctx, id, stage)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.Submissions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	sub.WorkflowStage = stage
	sub.AIProcessingStatus = models.ProcessingRunning
	sub.RetryCount++
	sub.ErrorMessage = nil
	return nil
}

func (m *MockSubmissionRepository) ApplyResult(ctx context.Context, id uuid.UUID, result *PipelineResult) error {
	m.mu.Lock()
	m.ApplyResultCalls++
	m.LastResult = result
	m.mu.Unlock()
	if m.ApplyResultFunc != nil {
		return m.ApplyResultFunc(ctx, id, result)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.Submissions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	sub.Content = result.Content
	sub.FDAData = result.FDAData
	sub.QAReview = result.QAReview
	sub.WorkflowStage = result.WorkflowStage
	sub.AIProcessingStatus = models.ProcessingCompleted
	sub.ProcessedAt = &result.ProcessedAt
	return nil
}

func (m *MockSubmissionRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	m.MarkFailedCalls++
	m.LastFailure = message
	m.mu.Unlock()
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id, message)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.Submissions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	sub.WorkflowStage = models.StageFailed
	sub.AIProcessingStatus = models.ProcessingFailed
	sub.ErrorMessage = &message
	return nil
}

func (m *MockSubmissionRepository) UpdateStage(ctx context.Context, id uuid.UUID, stage models.WorkflowStage) error {
	if m.UpdateStageFunc != nil {
		return m.UpdateStageFunc(ctx, id, stage)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.Submissions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	sub.WorkflowStage = stage
	return nil
}
