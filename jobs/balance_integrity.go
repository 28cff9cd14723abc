package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/thvgger/igs-portal/internal/ledger"
)

// IntegrityChecker lists drifted balance rows.
type IntegrityChecker interface {
	CheckBalanceIntegrity(ctx context.Context) ([]ledger.IntegrityIssue, error)
}

// DriftRecorder exposes the size of the last scan.
type DriftRecorder interface {
	JobObserver
	SetBalanceDrift(rows int)
}

// BalanceIntegrityJob reports StudentBalance rows whose balance is not owed minus paid.
type BalanceIntegrityJob struct {
	Checker IntegrityChecker
	Logger  *slog.Logger
	Metrics DriftRecorder
}

// NewBalanceIntegrityJob initialises the integrity scan handler.
func NewBalanceIntegrityJob(checker IntegrityChecker, logger *slog.Logger, metrics DriftRecorder) *BalanceIntegrityJob {
	return &BalanceIntegrityJob{Checker: checker, Logger: logger, Metrics: metrics}
}

// Handle runs the scan. Drift is reported, never repaired.
func (j *BalanceIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Checker == nil {
		return errors.New("balance integrity: handler not configured")
	}
	defer func() {
		if j.Metrics != nil {
			j.Metrics.ObserveJob(TaskBalanceIntegrity, resultErr)
		}
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskBalanceIntegrity))

	start := time.Now()
	issues, err := j.Checker.CheckBalanceIntegrity(ctx)
	if err != nil {
		logger.Error("balance integrity scan failed", slog.Any("error", err))
		return err
	}
	for _, issue := range issues {
		logger.Warn("balance drift",
			slog.Int64("balance_id", issue.BalanceID),
			slog.Int64("student_id", issue.StudentID),
			slog.String("stored", issue.Stored.String()),
			slog.String("expected", issue.Expected.String()),
		)
	}
	if j.Metrics != nil {
		j.Metrics.SetBalanceDrift(len(issues))
	}
	logger.Info("balance integrity scan completed",
		slog.Int("drifted", len(issues)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
