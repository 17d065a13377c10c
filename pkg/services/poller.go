package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/threecubed/seo-engine/pkg/models"
	"github.com/threecubed/seo-engine/pkg/repositories"
)

// PollOutcome is the terminal result of waiting on a pipeline run.
type PollOutcome string

const (
	PollCompleted PollOutcome = "completed"
	PollFailed    PollOutcome = "failed"
	PollTimeout   PollOutcome = "timeout"
)

// PollerConfig bounds a polling loop. Attempts times Interval is the maximum
// wall-clock wait.
type PollerConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// StatusPoller watches a submission until its pipeline reaches a terminal
// processing status or the attempt budget runs out. Callers that block a
// request on pipeline completion use this instead of sleeping ad hoc.
type StatusPoller struct {
	repo   repositories.SubmissionRepository
	cfg    PollerConfig
	logger *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewStatusPoller creates a poller.
func NewStatusPoller(repo repositories.SubmissionRepository, cfg PollerConfig, logger *zap.Logger) *StatusPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 20
	}
	return &StatusPoller{
		repo:   repo,
		cfg:    cfg,
		logger: logger.Named("poller"),
		sleep:  sleepCtx,
	}
}

// Wait polls until the submission is completed or failed, or attempts are
// exhausted. The returned submission is the last state observed; it is nil
// only when every read failed.
func (p *StatusPoller) Wait(ctx context.Context, id uuid.UUID) (PollOutcome, *models.Submission, error) {
	var last *models.Submission

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		sub, err := p.repo.GetByID(ctx, id)
		if err != nil {
			p.logger.Warn("Status read failed",
				zap.String("submission_id", id.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else {
			last = sub
			switch sub.AIProcessingStatus {
			case models.ProcessingCompleted:
				return PollCompleted, sub, nil
			case models.ProcessingFailed:
				return PollFailed, sub, nil
			}
		}

		if attempt == p.cfg.MaxAttempts {
			break
		}
		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			return PollTimeout, last, err
		}
	}

	p.logger.Warn("Polling budget exhausted",
		zap.String("submission_id", id.String()),
		zap.Int("attempts", p.cfg.MaxAttempts))
	return PollTimeout, last, nil
}
