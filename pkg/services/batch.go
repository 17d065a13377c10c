package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/threecubed/seo-engine/pkg/llm"
	"github.com/threecubed/seo-engine/pkg/models"
	"github.com/threecubed/seo-engine/pkg/repositories"
)

// BatchConfig controls the stuck-submission reprocessor.
type BatchConfig struct {
	BatchSize  int
	BatchDelay time.Duration
	MaxTotal   int // safety cap per run, 0 means no cap
}

// BatchReport summarizes one reprocessing run.
type BatchReport struct {
	Found     int       `json:"found"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Aborted   bool      `json:"aborted"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}

// BatchProcessor re-runs the pipeline for submissions whose earlier run
// stalled mid-flight. Work proceeds in small batches with a pause between
// them so reruns never saturate the content providers, and a circuit breaker
// aborts the run when consecutive failures suggest a provider outage.
type BatchProcessor struct {
	repo    repositories.SubmissionRepository
	proc    *Processor
	breaker *llm.CircuitBreaker
	cfg     BatchConfig
	logger  *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewBatchProcessor creates a batch reprocessor.
func NewBatchProcessor(repo repositories.SubmissionRepository, proc *Processor, cfg BatchConfig, logger *zap.Logger) *BatchProcessor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 2 * time.Second
	}
	return &BatchProcessor{
		repo:    repo,
		proc:    proc,
		breaker: llm.NewCircuitBreaker(llm.DefaultCircuitBreakerConfig()),
		cfg:     cfg,
		logger:  logger.Named("batch"),
		sleep:   sleepCtx,
	}
}

// Run reprocesses stuck submissions until none remain, the cap is reached, or
// the circuit breaker opens.
func (b *BatchProcessor) Run(ctx context.Context) (*BatchReport, error) {
	report := &BatchReport{StartedAt: time.Now().UTC()}
	defer func() { report.Duration = time.Since(report.StartedAt).Round(time.Millisecond).String() }()

	processed := 0
	for {
		if ctx.Err() != nil {
			report.Aborted = true
			return report, ctx.Err()
		}

		limit := b.cfg.BatchSize
		if b.cfg.MaxTotal > 0 && b.cfg.MaxTotal-processed < limit {
			limit = b.cfg.MaxTotal - processed
		}
		if limit <= 0 {
			return report, nil
		}

		stuck, err := b.repo.ListStuck(ctx, limit)
		if err != nil {
			return report, fmt.Errorf("list stuck submissions: %w", err)
		}
		if len(stuck) == 0 {
			return report, nil
		}
		report.Found += len(stuck)

		b.logger.Info("Reprocessing batch",
			zap.Int("size", len(stuck)),
			zap.Int("processed_so_far", processed))

		for _, sub := range stuck {
			if ok, cbErr := b.breaker.Allow(); !ok {
				b.logger.Error("Circuit breaker open, aborting reprocessing run",
					zap.Int("consecutive_failures", b.breaker.ConsecutiveFailures()))
				report.Skipped += remaining(stuck, sub)
				report.Aborted = true
				return report, cbErr
			}

			if err := b.runOne(ctx, sub); err != nil {
				report.Failed++
				b.breaker.RecordFailure()
				b.logger.Warn("Reprocessing failed",
					zap.String("submission_id", sub.ID.String()),
					zap.String("product", sub.ProductName),
					zap.Error(err))
			} else {
				report.Succeeded++
				b.breaker.RecordSuccess()
			}
			processed++
		}

		if len(stuck) < limit {
			return report, nil
		}
		if err := b.sleep(ctx, b.cfg.BatchDelay); err != nil {
			report.Aborted = true
			return report, err
		}
	}
}

func (b *BatchProcessor) runOne(ctx context.Context, sub *models.Submission) error {
	return b.proc.Process(ctx, sub.ID)
}

func remaining(batch []*models.Submission, current *models.Submission) int {
	for i, s := range batch {
		if s.ID == current.ID {
			return len(batch) - i
		}
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
