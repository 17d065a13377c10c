package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threecubed/seo-engine/pkg/models"
	"github.com/threecubed/seo-engine/pkg/repositories"
)

func newTestPoller(repo *repositories.MockSubmissionRepository, maxAttempts int) *StatusPoller {
	p := NewStatusPoller(repo, PollerConfig{Interval: time.Second, MaxAttempts: maxAttempts}, zap.NewNop())
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

func TestStatusPoller_Completed(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedSubmission(repo)
	sub.AIProcessingStatus = models.ProcessingCompleted

	poller := newTestPoller(repo, 5)
	outcome, got, err := poller.Wait(context.Background(), sub.ID)

	require.NoError(t, err)
	assert.Equal(t, PollCompleted, outcome)
	assert.Equal(t, sub.ID, got.ID)
}

func TestStatusPoller_Failed(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedSubmission(repo)
	sub.AIProcessingStatus = models.ProcessingFailed

	poller := newTestPoller(repo, 5)
	outcome, _, err := poller.Wait(context.Background(), sub.ID)

	require.NoError(t, err)
	assert.Equal(t, PollFailed, outcome)
}

func TestStatusPoller_EventualCompletion(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedSubmission(repo)
	sub.AIProcessingStatus = models.ProcessingRunning

	reads := 0
	repo.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
		reads++
		if reads >= 3 {
			sub.AIProcessingStatus = models.ProcessingCompleted
		}
		return sub, nil
	}

	poller := newTestPoller(repo, 10)
	outcome, _, err := poller.Wait(context.Background(), sub.ID)

	require.NoError(t, err)
	assert.Equal(t, PollCompleted, outcome)
	assert.Equal(t, 3, reads)
}

func TestStatusPoller_Timeout(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedSubmission(repo)
	sub.AIProcessingStatus = models.ProcessingRunning

	poller := newTestPoller(repo, 4)
	outcome, got, err := poller.Wait(context.Background(), sub.ID)

	// Timeout is distinct from failure: the pipeline may still finish later
	require.NoError(t, err)
	assert.Equal(t, PollTimeout, outcome)
	assert.NotNil(t, got, "last observed state comes back even on timeout")
}

func TestStatusPoller_TransientReadErrors(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedSubmission(repo)

	reads := 0
	repo.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
		reads++
		if reads < 2 {
			return nil, assert.AnError
		}
		sub.AIProcessingStatus = models.ProcessingCompleted
		return sub, nil
	}

	poller := newTestPoller(repo, 5)
	outcome, _, err := poller.Wait(context.Background(), sub.ID)

	require.NoError(t, err)
	assert.Equal(t, PollCompleted, outcome)
}

func TestStatusPoller_ContextCancelled(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedSubmission(repo)
	sub.AIProcessingStatus = models.ProcessingRunning

	poller := NewStatusPoller(repo, PollerConfig{Interval: time.Millisecond, MaxAttempts: 50}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, _, err := poller.Wait(ctx, sub.ID)

	assert.Error(t, err)
	assert.Equal(t, PollTimeout, outcome)
}
